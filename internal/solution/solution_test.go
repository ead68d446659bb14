package solution

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostcomply/hostcomply/internal/hostprobe"
	"github.com/hostcomply/hostcomply/internal/models"
	"github.com/hostcomply/hostcomply/internal/prompt"
)

// fakeEnv scripts act responses and records what ran.
type fakeEnv struct {
	executed []string
	notes    []string
	edits    []string
	backups  []string
	reboot   bool

	execOut       map[string]string
	confirmAnswer bool
	chooseIdx     int
	chooseOK      bool
}

func (f *fakeEnv) Execute(ctx context.Context, cmd string, ask bool) (string, error) {
	f.executed = append(f.executed, cmd)
	return f.execOut[cmd], nil
}

func (f *fakeEnv) Confirm(title, prompt string) (bool, error) {
	return f.confirmAnswer, nil
}

func (f *fakeEnv) Note(title, prompt string) {
	f.notes = append(f.notes, prompt)
}

func (f *fakeEnv) Choose(title, prompt string, choices []string) (int, bool, error) {
	return f.chooseIdx, f.chooseOK, nil
}

func (f *fakeEnv) Editor(file, prompt string) error {
	f.edits = append(f.edits, file)
	return nil
}

func (f *fakeEnv) SetRebootRequired() { f.reboot = true }

func (f *fakeEnv) Backup(ctx context.Context, path string) error {
	f.backups = append(f.backups, path)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func TestParseNilDocument(t *testing.T) {
	s, err := Parse(1, nil)
	if s != nil || err != nil {
		t.Errorf("Parse(nil) = %v, %v; want nil, nil", s, err)
	}
}

func TestParseRecheckDefault(t *testing.T) {
	s, err := Parse(1, &models.Solution{Acts: []models.Act{{Function: "set_reboot_required"}}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !s.Recheck {
		t.Error("recheck should default to true")
	}

	s, err = Parse(1, &models.Solution{
		Recheck: boolPtr(false),
		Acts:    []models.Act{{Function: "set_reboot_required"}},
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Recheck {
		t.Error("explicit recheck=false was not honored")
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		acts []models.Act
	}{
		{"unknown action", []models.Act{{Function: "rm_rf"}}},
		{"execute no args", []models.Act{{Function: "execute"}}},
		{"execute extra args", []models.Act{{Function: "execute", Args: []any{"a", "b"}}}},
		{"execute bad ask", []models.Act{{Function: "execute", Args: []any{"a"}, Kwargs: map[string]any{"ask": "yes"}}}},
		{"execute unknown option", []models.Act{{Function: "execute", Args: []any{"a"}, Kwargs: map[string]any{"timeout": 5}}}},
		{"confirm arity", []models.Act{{Function: "confirm", Args: []any{"only prompt"}}}},
		{"choose without choices", []models.Act{{Function: "choose", Args: []any{nil, "pick"}}}},
		{"backup arity", []models.Act{{Function: "backup"}}},
		{"set_reboot_required with args", []models.Act{{Function: "set_reboot_required", Args: []any{"x"}}}},
		{"options on note", []models.Act{{Function: "note", Args: []any{nil, "hi"}, Kwargs: map[string]any{"x": 1}}}},
		{"non-string arg", []models.Act{{Function: "backup", Args: []any{42}}}},
		{"nested bad act", []models.Act{{
			Function: "confirm", Args: []any{nil, "sure?"},
			OnResponse: []models.Response{{Value: true, Acts: []models.Act{{Function: "bogus"}}}},
		}}},
	}

	for _, tt := range tests {
		if _, err := Parse(1, &models.Solution{Acts: tt.acts}); err == nil {
			t.Errorf("%s: Parse should fail", tt.name)
		}
	}
}

func TestExecuteAskDefault(t *testing.T) {
	s, err := Parse(1, &models.Solution{Acts: []models.Act{
		{Function: "execute", Args: []any{"systemctl restart sshd"}},
		{Function: "execute", Args: []any{"id"}, Kwargs: map[string]any{"ask": false}},
	}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !s.Acts[0].Ask {
		t.Error("execute should ask by default")
	}
	if s.Acts[1].Ask {
		t.Error("ask=false was not honored")
	}
}

func TestApplyRunsActsInOrder(t *testing.T) {
	s, err := Parse(1, &models.Solution{Acts: []models.Act{
		{Function: "backup", Args: []any{"/etc/ssh/sshd_config"}},
		{Function: "execute", Args: []any{"sed -i s/no/yes/ /etc/ssh/sshd_config"}},
		{Function: "set_reboot_required"},
	}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	env := &fakeEnv{}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.backups) != 1 || env.backups[0] != "/etc/ssh/sshd_config" {
		t.Errorf("backups = %v", env.backups)
	}
	if len(env.executed) != 1 {
		t.Errorf("executed = %v", env.executed)
	}
	if !env.reboot {
		t.Error("reboot flag not raised")
	}
}

func TestConfirmResponseBranching(t *testing.T) {
	doc := &models.Solution{Acts: []models.Act{{
		Function: "confirm",
		Args:     []any{nil, "Disable the service?"},
		OnResponse: []models.Response{
			{Value: true, Acts: []models.Act{{Function: "execute", Args: []any{"systemctl disable svc"}}}},
			{Value: false, Acts: []models.Act{{Function: "note", Args: []any{nil, "left enabled"}}}},
		},
	}}}
	s, err := Parse(1, doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	env := &fakeEnv{confirmAnswer: true}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.executed) != 1 || len(env.notes) != 0 {
		t.Errorf("yes branch: executed=%v notes=%v", env.executed, env.notes)
	}

	env = &fakeEnv{confirmAnswer: false}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.executed) != 0 || len(env.notes) != 1 {
		t.Errorf("no branch: executed=%v notes=%v", env.executed, env.notes)
	}
}

func TestChooseResponseBranching(t *testing.T) {
	doc := &models.Solution{Acts: []models.Act{{
		Function: "choose",
		Args:     []any{nil, "How?", "mask", "disable"},
		OnResponse: []models.Response{
			{Value: 0, Acts: []models.Act{{Function: "execute", Args: []any{"systemctl mask svc"}}}},
			{Value: 1, Acts: []models.Act{{Function: "execute", Args: []any{"systemctl disable svc"}}}},
		},
	}}}
	s, err := Parse(1, doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	env := &fakeEnv{chooseIdx: 1, chooseOK: true}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.executed) != 1 || env.executed[0] != "systemctl disable svc" {
		t.Errorf("executed = %v", env.executed)
	}

	// An aborted choice matches no numbered branch.
	env = &fakeEnv{chooseOK: false}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.executed) != 0 {
		t.Errorf("aborted choice still executed %v", env.executed)
	}
}

func TestExecuteOutputResponseBranching(t *testing.T) {
	doc := &models.Solution{Acts: []models.Act{{
		Function: "execute",
		Args:     []any{"cat /sys/module/state"},
		OnResponse: []models.Response{
			{Value: "active\n", Acts: []models.Act{{Function: "note", Args: []any{nil, "still active"}}}},
		},
	}}}
	s, err := Parse(1, doc)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	env := &fakeEnv{execOut: map[string]string{"cat /sys/module/state": "active\n"}}
	if err := s.Apply(context.Background(), env); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(env.notes) != 1 {
		t.Errorf("output branch not taken, notes=%v", env.notes)
	}
}

func TestResponseEqual(t *testing.T) {
	tests := []struct {
		resp, value any
		want        bool
	}{
		{int(1), int64(1), true},
		{uint8(3), int(3), true},
		{1, 2, false},
		{true, true, true},
		{true, 1, false}, // bools never match numbers
		{"yes", "yes", true},
		{"yes", "no", false},
		{nil, nil, true},
		{nil, "x", false},
	}
	for _, tt := range tests {
		if got := responseEqual(tt.resp, tt.value); got != tt.want {
			t.Errorf("responseEqual(%v, %v) = %v, want %v", tt.resp, tt.value, got, tt.want)
		}
	}
}

func TestHostEnvBackupNaming(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sshd_config")
	if err := os.WriteFile(target, []byte("Port 22\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	p := prompt.NewWithStreams(strings.NewReader(""), &out)
	p.AssumeYes = true
	env := &HostEnv{Host: hostprobe.New(), Prompter: p, Out: &out}

	if err := env.Backup(context.Background(), target); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(target + ".backup"); err != nil {
		t.Fatalf("main backup missing: %v", err)
	}

	// A second backup must not clobber the first.
	if err := env.Backup(context.Background(), target); err != nil {
		t.Fatalf("second Backup failed: %v", err)
	}
	if _, err := os.Stat(target + ".backup.0"); err != nil {
		t.Fatalf("numbered backup missing: %v", err)
	}

	// Backing up a path that does not exist is a no-op.
	if err := env.Backup(context.Background(), filepath.Join(dir, "absent")); err != nil {
		t.Fatalf("Backup of absent path failed: %v", err)
	}
}

func TestSolutionString(t *testing.T) {
	s, err := Parse(1, &models.Solution{Acts: []models.Act{{
		Function: "confirm",
		Args:     []any{nil, "sure?"},
		OnResponse: []models.Response{
			{Value: true, Acts: []models.Act{{Function: "execute", Args: []any{"id"}}}},
		},
	}}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	str := s.String()
	if !strings.Contains(str, "recheck=true") {
		t.Errorf("missing recheck in %q", str)
	}
	if !strings.Contains(str, "confirm('', 'sure?')") {
		t.Errorf("missing act rendering in %q", str)
	}
	if !strings.Contains(str, "On Value true") {
		t.Errorf("missing response branch in %q", str)
	}

	var nilSolution *Solution
	if nilSolution.String() != "Solutions: NotAvailable" {
		t.Errorf("nil solution string = %q", nilSolution.String())
	}
}
