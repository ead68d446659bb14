// Package solution parses and applies remediation action trees.
//
// A solution is a list of acts. Each act names one of a closed set of
// actions, carries positional arguments, and may branch into nested
// acts keyed on the action's response. Unknown actions and malformed
// arguments are rejected when the tree is parsed, before anything
// touches the host.
package solution

import (
	"context"
	"fmt"
	"strings"

	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// ActionKind names one remediation action.
type ActionKind string

const (
	ActionExecute           ActionKind = "execute"
	ActionConfirm           ActionKind = "confirm"
	ActionNote              ActionKind = "note"
	ActionChoose            ActionKind = "choose"
	ActionEditor            ActionKind = "nano"
	ActionSetRebootRequired ActionKind = "set_reboot_required"
	ActionBackup            ActionKind = "backup"
)

// Environment supplies the primitives acts run against. The real one
// talks to the host and the terminal; tests script it.
type Environment interface {
	// Execute runs a shell command. With ask it first shows the command
	// and requests confirmation; a declined command returns "".
	Execute(ctx context.Context, cmd string, ask bool) (string, error)
	Confirm(title, prompt string) (bool, error)
	Note(title, prompt string)
	// Choose returns the selected index; ok is false when aborted.
	Choose(title, prompt string, choices []string) (int, bool, error)
	Editor(file, prompt string) error
	SetRebootRequired()
	Backup(ctx context.Context, path string) error
}

// Act is one parsed node of the remediation tree.
type Act struct {
	Kind ActionKind
	Args []string

	// Ask applies to execute acts only and defaults to true.
	Ask bool

	OnResponse []ResponseBranch
}

// ResponseBranch binds nested acts to one response value.
type ResponseBranch struct {
	Value any
	Acts  []*Act
}

// Solution is a parsed remediation tree for one check.
type Solution struct {
	CheckID int
	Recheck bool
	Acts    []*Act
}

// Parse validates a solution document into an applicable tree. A nil
// document means the check has no solution; the result is nil. A
// malformed document is a parse error and the solution stays
// unavailable.
func Parse(checkID int, doc *models.Solution) (*Solution, error) {
	if doc == nil {
		return nil, nil
	}
	acts, err := parseActs(doc.Acts)
	if err != nil {
		return nil, fmt.Errorf("check %d solution: %w", checkID, err)
	}
	return &Solution{
		CheckID: checkID,
		Recheck: doc.RecheckEnabled(),
		Acts:    acts,
	}, nil
}

func parseActs(docs []models.Act) ([]*Act, error) {
	acts := make([]*Act, 0, len(docs))
	for _, doc := range docs {
		act, err := parseAct(doc)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	return acts, nil
}

func parseAct(doc models.Act) (*Act, error) {
	kind := ActionKind(doc.Function)
	act := &Act{Kind: kind, Ask: true}

	for i, arg := range doc.Args {
		switch v := arg.(type) {
		case nil:
			act.Args = append(act.Args, "")
		case string:
			act.Args = append(act.Args, v)
		default:
			return nil, fmt.Errorf("%s: argument %d is not a string: %v", kind, i, arg)
		}
	}

	switch kind {
	case ActionExecute:
		if len(act.Args) != 1 {
			return nil, fmt.Errorf("execute: want 1 argument, got %d", len(act.Args))
		}
		for key, val := range doc.Kwargs {
			if key != "ask" {
				return nil, fmt.Errorf("execute: unknown option %q", key)
			}
			ask, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("execute: ask is not a bool: %v", val)
			}
			act.Ask = ask
		}
	case ActionConfirm, ActionNote, ActionEditor:
		if len(act.Args) != 2 {
			return nil, fmt.Errorf("%s: want 2 arguments, got %d", kind, len(act.Args))
		}
	case ActionChoose:
		if len(act.Args) < 3 {
			return nil, fmt.Errorf("choose: want a title, a prompt and at least one choice, got %d arguments", len(act.Args))
		}
	case ActionSetRebootRequired:
		if len(act.Args) != 0 {
			return nil, fmt.Errorf("set_reboot_required: takes no arguments, got %d", len(act.Args))
		}
	case ActionBackup:
		if len(act.Args) != 1 {
			return nil, fmt.Errorf("backup: want 1 argument, got %d", len(act.Args))
		}
	default:
		return nil, fmt.Errorf("unknown action %q", doc.Function)
	}
	if kind != ActionExecute && len(doc.Kwargs) != 0 {
		return nil, fmt.Errorf("%s: takes no options", kind)
	}

	for _, resp := range doc.OnResponse {
		nested, err := parseActs(resp.Acts)
		if err != nil {
			return nil, err
		}
		act.OnResponse = append(act.OnResponse, ResponseBranch{
			Value: resp.Value,
			Acts:  nested,
		})
	}
	return act, nil
}

// Apply runs the tree in order. The first failing act stops the run.
func (s *Solution) Apply(ctx context.Context, env Environment) error {
	return applyActs(ctx, env, s.Acts)
}

func applyActs(ctx context.Context, env Environment, acts []*Act) error {
	for _, act := range acts {
		if err := act.apply(ctx, env); err != nil {
			return err
		}
	}
	return nil
}

func (a *Act) apply(ctx context.Context, env Environment) error {
	resp, err := a.run(ctx, env)
	if err != nil {
		return err
	}
	for _, branch := range a.OnResponse {
		if responseEqual(resp, branch.Value) {
			if err := applyActs(ctx, env, branch.Acts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Act) run(ctx context.Context, env Environment) (any, error) {
	switch a.Kind {
	case ActionExecute:
		return env.Execute(ctx, a.Args[0], a.Ask)
	case ActionConfirm:
		return env.Confirm(a.Args[0], a.Args[1])
	case ActionNote:
		env.Note(a.Args[0], a.Args[1])
		return nil, nil
	case ActionChoose:
		idx, ok, err := env.Choose(a.Args[0], a.Args[1], a.Args[2:])
		if err != nil || !ok {
			return nil, err
		}
		return idx, nil
	case ActionEditor:
		return nil, env.Editor(a.Args[0], a.Args[1])
	case ActionSetRebootRequired:
		env.SetRebootRequired()
		return nil, nil
	case ActionBackup:
		return nil, env.Backup(ctx, a.Args[0])
	}
	return nil, fmt.Errorf("unknown action %q", a.Kind)
}

// responseEqual compares an act response to a branch value. YAML hands
// us whatever width the decoder picked, so integers compare by value
// across widths; bools and strings compare exactly; nil matches nil.
func responseEqual(resp, value any) bool {
	if resp == nil || value == nil {
		return resp == nil && value == nil
	}
	if ri, ok := toInt64(resp); ok {
		vi, ok := toInt64(value)
		return ok && ri == vi
	}
	switch r := resp.(type) {
	case bool:
		v, ok := value.(bool)
		return ok && r == v
	case string:
		v, ok := value.(string)
		return ok && r == v
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

// String renders the tree for the apply prompt.
func (s *Solution) String() string {
	if s == nil {
		return "Solutions: NotAvailable"
	}
	lines := make([]string, len(s.Acts))
	for i, act := range s.Acts {
		lines[i] = act.String()
	}
	return fmt.Sprintf("Solutions (recheck=%v):\n", s.Recheck) +
		termfmt.Indent(strings.Join(lines, "\n"), 1)
}

func (a *Act) String() string {
	args := make([]string, 0, len(a.Args)+1)
	for _, arg := range a.Args {
		args = append(args, fmt.Sprintf("'%s'", arg))
	}
	if a.Kind == ActionExecute {
		args = append(args, fmt.Sprintf("ask=%v", a.Ask))
	}

	txt := fmt.Sprintf("%s(%s)", a.Kind, strings.Join(args, ", "))
	for _, branch := range a.OnResponse {
		nested := make([]string, len(branch.Acts))
		for i, act := range branch.Acts {
			nested[i] = act.String()
		}
		txt += fmt.Sprintf("\n\t↪ On Value %v: \n", branch.Value) +
			termfmt.Indent(strings.Join(nested, "\n"), 2)
	}
	return txt
}
