// Package rule parses and evaluates compliance rule strings.
//
// Grammar: [not ]<selector>:<target>[-> <pattern>[-> <pattern2>]]
//
// Selectors probe the host filesystem (f:, d:), the process table (p:)
// or command output (c:). A rule that fails to parse is retained and
// evaluates vacuously true; a rule whose probe fails evaluates to not
// applicable. Both are reported, never fatal.
package rule

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hostcomply/hostcomply/internal/pattern"
)

// Kind of a parsed rule.
type Kind string

const (
	FileExistence       Kind = "FileExistence"
	DirExistence        Kind = "DirExistence"
	DirContains         Kind = "DirContains"
	RegexAgainstFile    Kind = "RegexAgainstFile"
	RegexAgainstDir     Kind = "RegexAgainstDir"
	RegexAgainstCommand Kind = "RegexAgainstCommand"
	CheckProcessExists  Kind = "CheckProcessExists"
	Unparsed            Kind = "Unparsed"
)

// existenceKind reports whether k is a structural existence check.
// Existence checks are cheap and run before content and command probes.
func existenceKind(k Kind) bool {
	return k == FileExistence || k == DirExistence || k == DirContains
}

// Prober abstracts the host probes a rule needs. The real implementation
// lives in internal/hostprobe; tests substitute fakes.
type Prober interface {
	// FileExists reports whether a regular file exists at path. A
	// directory at path is an error, not a negative.
	FileExists(path string) (bool, error)
	// ReadFile returns the content of a regular file.
	ReadFile(path string) (string, error)
	// DirExists reports whether a directory exists at path. A
	// non-directory at path is an error, not a negative.
	DirExists(path string) (bool, error)
	// ListDir returns the names of regular files directly in path.
	ListDir(path string) ([]string, error)
	// Command runs a shell command and returns combined stdout+stderr,
	// bounded by the prober's configured timeout.
	Command(ctx context.Context, cmd string) (string, error)
	// ProcessExists reports whether a process with exactly this name is
	// in the process table.
	ProcessExists(ctx context.Context, name string) (bool, error)
}

// Rule is one parsed rule string. Immutable after Parse.
type Rule struct {
	CheckID int
	Raw     string
	Kind    Kind
	Negate  bool

	Path       string
	Cmd        string
	Process    string
	FilePat    *pattern.Pattern // d: file-name filter
	ContentPat *pattern.Pattern // content / command-output pattern

	// ParseErr is set when Kind is Unparsed. The rule is kept so it can
	// be reported; it always evaluates true.
	ParseErr error
}

// Parse parses a rule string. Parse never fails: a malformed rule comes
// back with Kind Unparsed and ParseErr set.
func Parse(checkID int, raw string) *Rule {
	r := &Rule{CheckID: checkID, Raw: raw}

	parts := strings.Split(raw, "->")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}

	head := parts[0]
	if strings.HasPrefix(head, "not ") {
		r.Negate = true
		head = head[len("not "):]
	}

	if err := r.dispatch(head, parts[1:]); err != nil {
		return &Rule{CheckID: checkID, Raw: raw, Kind: Unparsed, ParseErr: err}
	}
	return r
}

func (r *Rule) dispatch(head string, patterns []string) error {
	if len(head) < 2 || head[1] != ':' {
		return fmt.Errorf("invalid rule")
	}
	target := head[2:]

	switch head[:2] {
	case "f:":
		switch len(patterns) {
		case 0:
			r.Kind = FileExistence
			r.Path = target
		case 1:
			r.Kind = RegexAgainstFile
			r.Path = target
			r.ContentPat = pattern.Compile(patterns[0])
		default:
			return fmt.Errorf("invalid file check rule")
		}
	case "d:":
		switch len(patterns) {
		case 0:
			r.Kind = DirExistence
			r.Path = target
		case 1:
			r.Kind = DirContains
			r.Path = target
			r.FilePat = pattern.Compile(patterns[0])
		case 2:
			r.Kind = RegexAgainstDir
			r.Path = target
			r.FilePat = pattern.Compile(patterns[0])
			r.ContentPat = pattern.Compile(patterns[1])
		default:
			return fmt.Errorf("invalid directory check rule")
		}
	case "c:":
		if len(patterns) != 1 {
			return fmt.Errorf("invalid command check rule")
		}
		r.Kind = RegexAgainstCommand
		r.Cmd = target
		r.ContentPat = pattern.Compile(patterns[0])
	case "p:":
		if len(patterns) != 0 {
			return fmt.Errorf("invalid process check rule")
		}
		r.Kind = CheckProcessExists
		r.Process = target
	case "r:":
		return fmt.Errorf("r: rules are not supported")
	default:
		return fmt.Errorf("invalid rule")
	}
	return nil
}

func (r *Rule) String() string {
	return r.Raw
}

// Eval executes the rule against the host. An unparsed rule is a vacuous
// pass. A probe failure returns ResultNotApplicable together with the
// error so the caller can report it; negation never applies to an
// undecidable outcome.
func (r *Rule) Eval(ctx context.Context, p Prober) (Result, error) {
	if r.Kind == Unparsed {
		return ResultTrue, nil
	}

	ok, err := r.probe(ctx, p)
	if err != nil {
		return ResultNotApplicable, err
	}

	res := fromBool(ok)
	if r.Negate {
		res = res.Negate()
	}
	return res, nil
}

func (r *Rule) probe(ctx context.Context, p Prober) (bool, error) {
	switch r.Kind {
	case FileExistence:
		return p.FileExists(r.Path)

	case RegexAgainstFile:
		content, err := p.ReadFile(r.Path)
		if err != nil {
			return false, err
		}
		return r.ContentPat.Match(content)

	case DirExistence:
		return p.DirExists(r.Path)

	case DirContains:
		names, err := p.ListDir(r.Path)
		if err != nil {
			return false, err
		}
		for _, name := range names {
			ok, err := r.FilePat.Match(name)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case RegexAgainstDir:
		names, err := p.ListDir(r.Path)
		if err != nil {
			return false, err
		}
		for _, name := range names {
			ok, err := r.FilePat.Match(name)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			content, err := p.ReadFile(filepath.Join(r.Path, name))
			if err != nil {
				return false, err
			}
			ok, err = r.ContentPat.Match(content)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case RegexAgainstCommand:
		out, err := p.Command(ctx, r.Cmd)
		if err != nil {
			return false, err
		}
		return r.ContentPat.Match(out)

	case CheckProcessExists:
		return p.ProcessExists(ctx, r.Process)

	default:
		return false, fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}
