package cli

import (
	"fmt"
	"io"

	"github.com/hostcomply/hostcomply/internal/check"
	"github.com/hostcomply/hostcomply/internal/rule"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// consoleReporter prints evaluation events as they happen: one status
// line per check and a tagged warning per non-fatal problem.
type consoleReporter struct {
	out io.Writer

	parseErrors    int
	checkErrors    int
	solutionErrors int
}

func (r *consoleReporter) RuleParseError(checkID int, raw string, err error) {
	r.parseErrors++
	fmt.Fprintln(r.out, termfmt.Warn("[RuleParseError]"), checkID, raw, termfmt.Underline(err.Error()))
}

func (r *consoleReporter) RuleCheckError(checkID int, ru *rule.Rule, err error) {
	r.checkErrors++
	fmt.Fprintln(r.out, termfmt.Warn("[RuleCheckError]"), checkID, ru.Raw, termfmt.Underline(err.Error()))
}

func (r *consoleReporter) SolutionParseError(checkID int, err error) {
	r.solutionErrors++
	fmt.Fprintln(r.out, termfmt.Warn("[SolutionParseError]"), checkID, termfmt.Underline(err.Error()))
}

func (r *consoleReporter) CheckEvaluated(c *check.Check) {
	switch c.Status {
	case check.StatusPassed:
		fmt.Fprintln(r.out, termfmt.Success("[    PASSED    ]"), c.ID, c.Title)
	case check.StatusFailed:
		fmt.Fprintln(r.out, termfmt.Error("[    FAILED    ]"), c.ID, c.Title)
	default:
		fmt.Fprintln(r.out, termfmt.Muted("[NOT APPLICABLE]"), c.ID, c.Title)
	}
}
