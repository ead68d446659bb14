// Package check ties rules and solutions together into runnable
// compliance checks and tracks the outcome of a run.
package check

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/rule"
	"github.com/hostcomply/hostcomply/internal/solution"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// Status is the outcome of the most recent evaluation of a check.
type Status string

const (
	StatusPending       Status = ""
	StatusPassed        Status = "PASSED"
	StatusFailed        Status = "FAILED"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// Reporter receives evaluation events and non-fatal load problems.
type Reporter interface {
	rule.Reporter
	SolutionParseError(checkID int, err error)
	CheckEvaluated(c *Check)
}

// NopReporter discards everything.
type NopReporter struct{ rule.NopReporter }

func (NopReporter) SolutionParseError(checkID int, err error) {}
func (NopReporter) CheckEvaluated(c *Check)                   {}

// Check is one loaded compliance check.
type Check struct {
	ID          int
	Title       string
	Description string
	Rationale   string
	Remediation string
	Compliance  []map[string][]string
	References  []string

	Rules    *rule.Set
	Solution *solution.Solution

	Status Status
}

// New builds a check from its document. A bad condition keyword is a
// configuration error and fails the load. A malformed solution is
// reported and dropped; the check itself still runs.
func New(doc models.Check, rep Reporter) (*Check, error) {
	set, err := rule.NewSet(doc.ID, doc.Condition, doc.Rules, rep)
	if err != nil {
		return nil, fmt.Errorf("check %d: %w", doc.ID, err)
	}

	sol, err := solution.Parse(doc.ID, doc.Solution)
	if err != nil {
		rep.SolutionParseError(doc.ID, err)
		sol = nil
	}

	return &Check{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		Rationale:   doc.Rationale,
		Remediation: doc.Remediation,
		Compliance:  doc.Compliance,
		References:  doc.References,
		Rules:       set,
		Solution:    sol,
	}, nil
}

// Evaluate runs the check's rules and updates its status.
func (c *Check) Evaluate(ctx context.Context, p rule.Prober, rep Reporter) Status {
	switch c.Rules.Eval(ctx, p, rep) {
	case rule.ResultTrue:
		c.Status = StatusPassed
	case rule.ResultFalse:
		c.Status = StatusFailed
	default:
		c.Status = StatusNotApplicable
	}
	rep.CheckEvaluated(c)
	return c.Status
}

// ApplySolution walks the operator through the check's remediation.
//
// After confirmation, the solution is applied and the check re-run, up
// to four attempts. Each failed recheck asks before retrying; after the
// fourth attempt the check is abandoned. With recheck disabled the
// solution is applied exactly once, blind.
func (c *Check) ApplySolution(ctx context.Context, env solution.Environment, p rule.Prober, rep Reporter, out io.Writer) error {
	if c.Solution == nil {
		return nil
	}

	fmt.Fprintln(out)
	ok, err := env.Confirm(c.Title, c.Describe()+"\nApply?")
	if err != nil || !ok {
		return err
	}

	attempts := 1
	if c.Solution.Recheck {
		attempts = 5
	}
	for retry := 0; retry < attempts; retry++ {
		if retry == 4 {
			fmt.Fprintln(out, termfmt.Error("Reached maximum tries to apply the solution. Moving on..."))
			return nil
		}
		if retry > 0 {
			fmt.Fprintln(out, "Rechecking ...")
			if c.Evaluate(ctx, p, rep) == StatusPassed {
				return nil
			}
			fmt.Fprintln(out, termfmt.Error(fmt.Sprintf("Recheck failed. Retrying %d/3", retry)))
			ok, err := env.Confirm("", "Retry?")
			if err != nil || !ok {
				return err
			}
		}

		fmt.Fprintln(out, "\n------------ APPLY START ------------")
		if err := c.Solution.Apply(ctx, env); err != nil {
			return err
		}
		fmt.Fprintln(out, "------------ APPLY END   ------------")
		fmt.Fprintln(out)
	}
	return nil
}

// Describe renders the check for prompts and the show command.
func (c *Check) Describe() string {
	txt := fmt.Sprintf("ID: %d\n", c.ID)
	if c.Title != "" {
		txt += "Title:\n\t" + strings.TrimSpace(c.Title) + "\n"
	}
	if c.Rationale != "" {
		txt += termfmt.Wrap("Rationale:\n\t"+strings.TrimSpace(c.Rationale)+"\n", termfmt.DefaultWidth)
	}
	if c.Remediation != "" {
		txt += termfmt.Wrap("Remediation:\n\t"+strings.TrimSpace(c.Remediation)+"\n", termfmt.DefaultWidth)
	}
	if c.Description != "" {
		txt += termfmt.Wrap("Description:\n\t"+strings.TrimSpace(c.Description)+"\n", termfmt.DefaultWidth)
	}
	if len(c.References) > 0 {
		txt += "References:\n\t- " + strings.Join(c.References, "\n\t- ") + "\n"
	}
	txt += c.Rules.String()
	if len(c.Compliance) > 0 {
		var entries []string
		for _, item := range c.Compliance {
			keys := make([]string, 0, len(item))
			for k := range item {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				entries = append(entries, k+": "+strings.Join(item[k], ","))
			}
		}
		txt += "\nCompliance\n\t- " + strings.Join(entries, "\n\t- ")
	}
	txt += "\n" + c.Solution.String()
	return txt
}
