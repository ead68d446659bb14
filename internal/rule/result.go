package rule

// Result is the tri-state outcome of a rule or a rule set. Not
// applicable is a legitimate domain outcome, distinct from failure: it
// means the predicate could not be decided on this host.
type Result int

const (
	ResultFalse Result = iota
	ResultTrue
	ResultNotApplicable
)

func (r Result) String() string {
	switch r {
	case ResultTrue:
		return "true"
	case ResultFalse:
		return "false"
	default:
		return "not_applicable"
	}
}

// Negate flips true and false. Not applicable is sticky: negating an
// undecidable outcome does not make it decidable.
func (r Result) Negate() Result {
	switch r {
	case ResultTrue:
		return ResultFalse
	case ResultFalse:
		return ResultTrue
	default:
		return ResultNotApplicable
	}
}

func fromBool(b bool) Result {
	if b {
		return ResultTrue
	}
	return ResultFalse
}
