// Package models defines the YAML document types for policies and
// solution files.
package models

import (
	"fmt"
)

// Policy is the top level policy document.
type Policy struct {
	Policy       PolicyMeta  `yaml:"policy"`
	Requirements Requirement `yaml:"requirements"`
	Checks       []Check     `yaml:"checks"`
}

// PolicyMeta identifies the policy document.
type PolicyMeta struct {
	ID          string   `yaml:"id"`
	File        string   `yaml:"file"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	References  []string `yaml:"references"`
}

// Requirement gates the whole run: unless its rules hold, no check in
// the document applies to this host.
type Requirement struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Condition   string   `yaml:"condition"`
	Rules       []string `yaml:"rules"`
}

// Check is one compliance check.
type Check struct {
	ID          int                   `yaml:"id"`
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Rationale   string                `yaml:"rationale"`
	Remediation string                `yaml:"remediation"`
	Compliance  []map[string][]string `yaml:"compliance"`
	References  []string              `yaml:"references"`
	Condition   string                `yaml:"condition"`
	Rules       []string              `yaml:"rules"`
	Solution    *Solution             `yaml:"solution"`
}

// Solution is a remediation action tree attached to a check, either
// inline in the policy or matched by id from a solutions file.
type Solution struct {
	// Recheck defaults to true when omitted.
	Recheck *bool `yaml:"recheck"`
	Acts    []Act `yaml:"acts"`
}

// Act is one node of the remediation tree.
type Act struct {
	Function   string         `yaml:"function"`
	Args       []any          `yaml:"args"`
	Kwargs     map[string]any `yaml:"kwargs"`
	OnResponse []Response     `yaml:"on_response"`
}

// Response binds a nested act list to one possible act outcome.
type Response struct {
	Value any   `yaml:"value"`
	Acts  []Act `yaml:"acts"`
}

// SolutionEntry is one element of a standalone solutions file, matched
// to a check by id.
type SolutionEntry struct {
	ID       int       `yaml:"id"`
	Solution *Solution `yaml:"solution"`
}

// RecheckEnabled resolves the recheck default.
func (s *Solution) RecheckEnabled() bool {
	return s.Recheck == nil || *s.Recheck
}

// Validate checks the structural invariants a run depends on. Rule
// strings and acts are validated later by their own parsers; here we
// reject documents that are missing required identity fields.
func (p *Policy) Validate() error {
	if p.Policy.ID == "" {
		return fmt.Errorf("policy: missing id")
	}
	if p.Policy.Name == "" {
		return fmt.Errorf("policy %s: missing name", p.Policy.ID)
	}
	if p.Requirements.Condition == "" {
		return fmt.Errorf("policy %s: requirements missing condition", p.Policy.ID)
	}
	seen := make(map[int]bool, len(p.Checks))
	for i, c := range p.Checks {
		if c.ID == 0 {
			return fmt.Errorf("checks[%d]: missing id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("checks[%d]: duplicate id %d", i, c.ID)
		}
		seen[c.ID] = true
		if c.Title == "" {
			return fmt.Errorf("check %d: missing title", c.ID)
		}
		if c.Condition == "" {
			return fmt.Errorf("check %d: missing condition", c.ID)
		}
		if len(c.Rules) == 0 {
			return fmt.Errorf("check %d: no rules", c.ID)
		}
	}
	return nil
}
