package domain

import "time"

// RequestState is the lifecycle position of an accepted request.
type RequestState string

const (
	RequestAccepted  RequestState = "accepted"
	RequestSubmitted RequestState = "submitted"
	RequestFinalized RequestState = "finalized"
	RequestFailed    RequestState = "failed"
	RequestExpired   RequestState = "expired"
)

// Terminal reports whether no further transition is allowed.
func (s RequestState) Terminal() bool {
	switch s {
	case RequestFinalized, RequestFailed, RequestExpired:
		return true
	default:
		return false
	}
}

// StateForOutcome maps an outcome status to the request state it produces.
func StateForOutcome(status OutcomeStatus) RequestState {
	switch status {
	case OutcomeFinalized:
		return RequestFinalized
	case OutcomeExpired:
		return RequestExpired
	default:
		return RequestFailed
	}
}

// RequestStatus is the externally visible state of one request.
type RequestStatus struct {
	ReferenceID string       `json:"referenceId"`
	State       RequestState `json:"state"`
	TxHash      string       `json:"txHash,omitempty"`
	Detail      string       `json:"detail,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	// Changed is set by Transition when that call wrote the state.
	Changed bool `json:"-"`
}
