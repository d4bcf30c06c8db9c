package metrics

const (
	LabelKind    = "kind"
	LabelOutcome = "outcome"
)

// Request kinds
const (
	KindHeaders = "headers"
	KindBodies  = "bodies"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
