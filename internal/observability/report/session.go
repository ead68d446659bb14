package report

import (
	"context"
	"time"

	"github.com/hostcomply/hostcomply/internal/check"
	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in reports.
const MaxErrorLength = 2048

// Session tracks one policy run
type Session struct {
	ctx    context.Context
	start  time.Time
	source string
}

// Start session
func Start(ctx context.Context, source string) *Session {
	return &Session{
		ctx:    ctx,
		start:  time.Now(),
		source: source,
	}
}

// Option configures report
type Option func(*Report)

// WithPolicy option
func WithPolicy(meta models.PolicyMeta) Option {
	return func(r *Report) {
		r.Policy = &PolicyRef{
			ID:   meta.ID,
			Name: meta.Name,
			File: meta.File,
		}
	}
}

// WithRun records the per-check outcomes and summary of a run.
func WithRun(run *check.Run) Option {
	return func(r *Report) {
		for _, c := range run.Checks {
			r.Checks = append(r.Checks, CheckOutcome{
				ID:          c.ID,
				Title:       c.Title,
				Status:      string(c.Status),
				HasSolution: c.Solution != nil,
			})
		}
		r.Summary = &Summary{
			Passed:             len(run.Passed()),
			Failed:             len(run.Failed()),
			NotApplicable:      len(run.NotApplicable()),
			SolutionsAvailable: len(run.AvailableSolutions()),
			RebootRequired:     run.RebootRequired(),
		}
	}
}

// Finish and write report
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		// No writer configured, reports disabled
		return nil
	}

	r := Report{
		SchemaVersion: SchemaVersion,
		OpID:          observability.OpID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Source:        s.source,
	}

	if err != nil {
		r.Result = Result{
			Status: "fail",
			Error:  truncateError(err.Error()),
		}
	} else {
		r.Result = Result{
			Status: "success",
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

// truncateError helper
func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
