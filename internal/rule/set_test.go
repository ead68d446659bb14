package rule

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

type recordingReporter struct {
	parseErrs []string
	checkErrs []string
}

func (r *recordingReporter) RuleParseError(checkID int, raw string, err error) {
	r.parseErrs = append(r.parseErrs, fmt.Sprintf("%d %s: %v", checkID, raw, err))
}

func (r *recordingReporter) RuleCheckError(checkID int, ru *Rule, err error) {
	r.checkErrs = append(r.checkErrs, fmt.Sprintf("%d %s: %v", checkID, ru.Raw, err))
}

// outcomeProber drives rule outcomes through file existence:
// "f:/true" passes, "f:/false" fails, "f:/na" errors (a directory).
func outcomeProber() *fakeProber {
	return &fakeProber{
		files: map[string]string{"/true": ""},
		dirs:  map[string][]string{"/na": {}},
	}
}

func outcomeRules(outcomes ...string) []string {
	raws := make([]string, len(outcomes))
	for i, o := range outcomes {
		raws[i] = "f:/" + o
	}
	return raws
}

func TestConditionTables(t *testing.T) {
	tests := []struct {
		condition string
		outcomes  []string
		want      Result
	}{
		{"all", []string{"true", "true"}, ResultTrue},
		{"all", []string{"true", "false"}, ResultFalse},
		{"all", []string{"true", "na"}, ResultNotApplicable},
		{"any", []string{"false", "false"}, ResultFalse},
		{"any", []string{"true", "false"}, ResultTrue},
		{"any", []string{"false", "na"}, ResultNotApplicable},
		{"none", []string{"false", "false"}, ResultTrue},
		{"none", []string{"true", "false"}, ResultFalse},
		{"none", []string{"false", "na"}, ResultNotApplicable},
	}

	for _, tt := range tests {
		name := tt.condition + "(" + strings.Join(tt.outcomes, ",") + ")"
		t.Run(name, func(t *testing.T) {
			set, err := NewSet(1, tt.condition, outcomeRules(tt.outcomes...), NopReporter{})
			if err != nil {
				t.Fatalf("NewSet failed: %v", err)
			}
			got := set.Eval(context.Background(), outcomeProber(), NopReporter{})
			if got != tt.want {
				t.Errorf("%s = %s, want %s", name, got, tt.want)
			}
		})
	}
}

func TestBadConditionIsConfigurationError(t *testing.T) {
	if _, err := NewSet(1, "some", []string{"f:/x"}, NopReporter{}); err == nil {
		t.Error("expected error for unknown condition keyword")
	}
}

func TestExistenceRulesRunFirst(t *testing.T) {
	// The content rule is listed first, but the existence rule must run
	// first; its failure decides the set and the file is never opened.
	raws := []string{
		"f:/true -> r:some content",
		"f:/false",
	}
	set, err := NewSet(1, "all", raws, NopReporter{})
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	if set.Rules[0].Kind != FileExistence {
		t.Fatalf("first rule kind = %s, want FileExistence", set.Rules[0].Kind)
	}

	p := outcomeProber()
	if got := set.Eval(context.Background(), p, NopReporter{}); got != ResultFalse {
		t.Fatalf("Eval = %s, want false", got)
	}
	for _, call := range p.calls {
		if strings.HasPrefix(call, "ReadFile") {
			t.Errorf("content probe executed after decisive outcome: %s", call)
		}
	}
}

func TestShortCircuitSkipsCommands(t *testing.T) {
	raws := []string{
		"c:expensive-probe -> r:anything",
		"f:/true",
	}
	set, err := NewSet(1, "any", raws, NopReporter{})
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	p := outcomeProber()
	if got := set.Eval(context.Background(), p, NopReporter{}); got != ResultTrue {
		t.Fatalf("Eval = %s, want true", got)
	}
	for _, call := range p.calls {
		if strings.HasPrefix(call, "Command") {
			t.Errorf("command executed after decisive outcome: %s", call)
		}
	}
}

func TestUnparsedRuleReportedAndVacuous(t *testing.T) {
	rep := &recordingReporter{}
	set, err := NewSet(9, "all", []string{"r:unsupported", "f:/true"}, rep)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	if len(rep.parseErrs) != 1 {
		t.Fatalf("parse errors reported = %d, want 1", len(rep.parseErrs))
	}

	got := set.Eval(context.Background(), outcomeProber(), rep)
	if got != ResultTrue {
		t.Errorf("Eval = %s, want true (unparsed rule is vacuous)", got)
	}
}

func TestCheckErrorsReported(t *testing.T) {
	rep := &recordingReporter{}
	set, err := NewSet(3, "all", []string{"f:/na"}, rep)
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}

	got := set.Eval(context.Background(), outcomeProber(), rep)
	if got != ResultNotApplicable {
		t.Errorf("Eval = %s, want not_applicable", got)
	}
	if len(rep.checkErrs) != 1 {
		t.Errorf("check errors reported = %d, want 1", len(rep.checkErrs))
	}
}

func TestEmptySet(t *testing.T) {
	tests := []struct {
		condition string
		want      Result
	}{
		{"all", ResultTrue},
		{"any", ResultFalse},
		{"none", ResultTrue},
	}

	for _, tt := range tests {
		set, err := NewSet(1, tt.condition, nil, NopReporter{})
		if err != nil {
			t.Fatalf("NewSet failed: %v", err)
		}
		if got := set.Eval(context.Background(), outcomeProber(), NopReporter{}); got != tt.want {
			t.Errorf("empty %s = %s, want %s", tt.condition, got, tt.want)
		}
	}
}
