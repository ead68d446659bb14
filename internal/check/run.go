package check

import (
	"context"

	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/rule"
)

// Run holds the checks of one policy run. The pass/fail partitions are
// views over per-check status, so a recheck that flips a check moves it
// between partitions instead of counting it twice.
type Run struct {
	Policy models.PolicyMeta
	Checks []*Check

	rebootRequired bool
}

// NewRun builds the run's checks from a loaded policy. When only is
// non-empty, checks outside it are skipped.
func NewRun(policy *models.Policy, only []int, rep Reporter) (*Run, error) {
	wanted := make(map[int]bool, len(only))
	for _, id := range only {
		wanted[id] = true
	}

	run := &Run{Policy: policy.Policy}
	for _, doc := range policy.Checks {
		if len(wanted) > 0 && !wanted[doc.ID] {
			continue
		}
		c, err := New(doc, rep)
		if err != nil {
			return nil, err
		}
		run.Checks = append(run.Checks, c)
	}
	return run, nil
}

// EvaluateAll runs every check once, in document order.
func (r *Run) EvaluateAll(ctx context.Context, p rule.Prober, rep Reporter) {
	for _, c := range r.Checks {
		c.Evaluate(ctx, p, rep)
	}
}

func (r *Run) withStatus(status Status) []*Check {
	var out []*Check
	for _, c := range r.Checks {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

func (r *Run) Passed() []*Check        { return r.withStatus(StatusPassed) }
func (r *Run) Failed() []*Check        { return r.withStatus(StatusFailed) }
func (r *Run) NotApplicable() []*Check { return r.withStatus(StatusNotApplicable) }

// AvailableSolutions lists the failed checks that carry a usable
// remediation.
func (r *Run) AvailableSolutions() []*Check {
	var out []*Check
	for _, c := range r.Failed() {
		if c.Solution != nil {
			out = append(out, c)
		}
	}
	return out
}

// SetRebootRequired flags the host for reboot. The flag only ever goes
// up; nothing in a run can clear it.
func (r *Run) SetRebootRequired() { r.rebootRequired = true }

func (r *Run) RebootRequired() bool { return r.rebootRequired }
