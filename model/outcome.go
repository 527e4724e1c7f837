package model

// Disposition tells the caller what to do with a registration id after the
// upload stage ran.
type Disposition string

const (
	DispositionForward Disposition = "FORWARD" // hand the id to the next stage
	DispositionRetry   Disposition = "RETRY"   // re-queue the id for this stage
	DispositionDrop    Disposition = "DROP"    // permanently failed
)

// PipelineOutcome is the result of one upload stage invocation.
type PipelineOutcome struct {
	RegistrationID   string           `json:"registration_id"`
	RegistrationType RegistrationType `json:"registration_type"`
	Accepted         bool             `json:"accepted"`
	InternalError    bool             `json:"internal_error"`
	Classification   string           `json:"classification"`
	Disposition      Disposition      `json:"disposition"`
}
