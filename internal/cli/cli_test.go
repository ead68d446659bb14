package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostcomply/hostcomply/internal/check"
)

const validPolicy = `
policy:
  id: cis_test
  name: Test Policy
  description: Policy used by the command tests.
requirements:
  title: Platform
  condition: all
  rules:
    - "not f:/nonexistent/gate/file"
checks:
  - id: 1
    title: Absent marker file
    condition: none
    rules:
      - "f:/nonexistent/marker/file"
  - id: 2
    title: Another absent marker
    condition: none
    rules:
      - "f:/nonexistent/other/file"
`

const brokenPolicy = `
policy:
  id: cis_broken
  name: Broken Policy
requirements:
  condition: all
  rules:
    - "f:/etc/hostname"
checks:
  - id: 1
    title: Unsupported rule form
    condition: all
    rules:
      - "r:standalone pattern"
    solution:
      acts:
        - function: rm_rf
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestLintValidPolicy(t *testing.T) {
	path := writePolicy(t, validPolicy)

	out, err := execute("lint", path)
	if err != nil {
		t.Fatalf("lint failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Policy is valid") {
		t.Errorf("missing verdict in %q", out)
	}
	if !strings.Contains(out, "2 checks, 0 rule parse errors, 0 solution errors") {
		t.Errorf("missing summary in %q", out)
	}
}

func TestLintReportsProblems(t *testing.T) {
	path := writePolicy(t, brokenPolicy)

	out, err := execute("lint", path)
	if err == nil {
		t.Fatal("lint of a broken policy should fail")
	}
	if !strings.Contains(out, "[RuleParseError]") {
		t.Errorf("missing rule parse error in %q", out)
	}
	if !strings.Contains(out, "[SolutionParseError]") {
		t.Errorf("missing solution parse error in %q", out)
	}
}

func TestShowPrintsChecks(t *testing.T) {
	path := writePolicy(t, validPolicy)

	out, err := execute("show", path)
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	for _, want := range []string{"ID: 1", "Absent marker file", "Checks (Condition: none):"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in show output", want)
		}
	}
}

func TestRunRequiresRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root")
	}
	path := writePolicy(t, validPolicy)

	_, err := execute("run", path)
	if err == nil || !strings.Contains(err.Error(), "root privileges") {
		t.Errorf("err = %v, want root privileges error", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	path := writePolicy(t, validPolicy)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	out, err := execute("run", path, "--allow-non-root", "--yes", "--report", reportPath)
	defer func() { reportFlag = "" }()
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	for _, want := range []string{
		"cis_test",
		"Loaded all rules",
		"Check Report",
		"[    PASSED    ]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in run output", want)
		}
	}

	data, readErr := os.ReadFile(reportPath)
	if readErr != nil {
		t.Fatalf("report not written: %v", readErr)
	}
	for _, want := range []string{`"schema_version"`, `"status":"success"`, `"passed":2`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing %s in report %s", want, data)
		}
	}
}

func TestConsoleReporterStatusLines(t *testing.T) {
	var buf bytes.Buffer
	r := &consoleReporter{out: &buf}

	r.CheckEvaluated(&check.Check{ID: 1, Title: "a", Status: check.StatusPassed})
	r.CheckEvaluated(&check.Check{ID: 2, Title: "b", Status: check.StatusFailed})
	r.CheckEvaluated(&check.Check{ID: 3, Title: "c", Status: check.StatusNotApplicable})

	out := buf.String()
	for _, want := range []string{"[    PASSED    ]", "[    FAILED    ]", "[NOT APPLICABLE]"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
