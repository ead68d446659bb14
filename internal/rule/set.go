package rule

import (
	"context"
	"fmt"
)

// Condition governs how a set of rule outcomes is combined.
type Condition string

const (
	ConditionAll  Condition = "all"
	ConditionAny  Condition = "any"
	ConditionNone Condition = "none"
)

// ParseCondition validates a condition keyword. An unknown keyword is a
// configuration error and aborts document loading.
func ParseCondition(s string) (Condition, error) {
	switch Condition(s) {
	case ConditionAll, ConditionAny, ConditionNone:
		return Condition(s), nil
	default:
		return "", fmt.Errorf("bad condition %q (use all, any or none)", s)
	}
}

// Reporter receives non-fatal rule problems: parse failures and probe
// failures. Both are surfaced to the operator and execution continues.
type Reporter interface {
	RuleParseError(checkID int, raw string, err error)
	RuleCheckError(checkID int, r *Rule, err error)
}

// NopReporter discards reports.
type NopReporter struct{}

func (NopReporter) RuleParseError(checkID int, raw string, err error) {}
func (NopReporter) RuleCheckError(checkID int, r *Rule, err error)    {}

// Set is an ordered collection of rules combined under one condition.
//
// Structural existence rules (f:/d: without content patterns) are moved
// ahead of content and command rules, keeping relative order within each
// group, so that short-circuiting skips the slower probes.
type Set struct {
	CheckID   int
	Condition Condition
	Rules     []*Rule
}

// NewSet parses the rule strings and builds the evaluation order. Parse
// failures are reported through rep and kept as vacuously-true rules.
func NewSet(checkID int, condition string, raws []string, rep Reporter) (*Set, error) {
	cond, err := ParseCondition(condition)
	if err != nil {
		return nil, err
	}

	var existence, rest []*Rule
	for _, raw := range raws {
		r := Parse(checkID, raw)
		if r.ParseErr != nil {
			rep.RuleParseError(checkID, raw, r.ParseErr)
		}
		if existenceKind(r.Kind) {
			existence = append(existence, r)
		} else {
			rest = append(rest, r)
		}
	}

	return &Set{
		CheckID:   checkID,
		Condition: cond,
		Rules:     append(existence, rest...),
	}, nil
}

// String renders the set for check descriptions and lint output.
func (s *Set) String() string {
	txt := fmt.Sprintf("Checks (Condition: %s):", s.Condition)
	for _, r := range s.Rules {
		txt += "\n\t- " + r.String()
	}
	return txt
}

// Eval combines rule outcomes under the set's condition.
//
//	all:  first false decides false; else NA if any rule was NA; else true.
//	any:  first true decides true; else NA if any rule was NA; else false.
//	none: first true decides false; else NA if any rule was NA; else true.
//
// Evaluation stops at the first decisive outcome; rules after it are not
// executed and cause no side effects.
func (s *Set) Eval(ctx context.Context, p Prober, rep Reporter) Result {
	notApplicable := false

	decide := func(r Result) (Result, bool) {
		switch s.Condition {
		case ConditionAll:
			if r == ResultFalse {
				return ResultFalse, true
			}
		case ConditionAny:
			if r == ResultTrue {
				return ResultTrue, true
			}
		case ConditionNone:
			if r == ResultTrue {
				return ResultFalse, true
			}
		}
		return 0, false
	}

	for _, r := range s.Rules {
		res, err := r.Eval(ctx, p)
		if err != nil {
			rep.RuleCheckError(s.CheckID, r, err)
		}
		if final, done := decide(res); done {
			return final
		}
		if res == ResultNotApplicable {
			notApplicable = true
		}
	}

	if notApplicable {
		return ResultNotApplicable
	}
	if s.Condition == ConditionAny {
		return ResultFalse
	}
	return ResultTrue
}
