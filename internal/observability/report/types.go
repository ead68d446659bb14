// Package report writes stable run-report artifacts for audit trails.
package report

// SchemaVersion current
const SchemaVersion = "1.0"

// Report structure
type Report struct {
	SchemaVersion string         `json:"schema_version"`
	OpID          string         `json:"op_id"`
	TsStart       string         `json:"ts_start"`
	TsEnd         string         `json:"ts_end"`
	Source        string         `json:"source"`
	Result        Result         `json:"result"`
	Policy        *PolicyRef     `json:"policy,omitempty"`
	Checks        []CheckOutcome `json:"checks,omitempty"`
	Summary       *Summary       `json:"summary,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// PolicyRef identifies the evaluated policy document.
type PolicyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file,omitempty"`
}

// CheckOutcome detail
type CheckOutcome struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"` // PASSED|FAILED|NOT_APPLICABLE
	HasSolution bool   `json:"has_solution,omitempty"`
}

// Summary counts
type Summary struct {
	Passed             int  `json:"passed"`
	Failed             int  `json:"failed"`
	NotApplicable      int  `json:"not_applicable"`
	SolutionsAvailable int  `json:"solutions_available"`
	RebootRequired     bool `json:"reboot_required"`
}
