package entities

// Outcome is what the dispatcher did with an inbound event.
type Outcome struct {
	Kind OutcomeKind
	Note string
}

type OutcomeKind string

const (
	// OutcomeKindReplied means a reply was sent to the recipient
	OutcomeKindReplied OutcomeKind = "replied"

	// OutcomeKindAborted means a lookup, fetch or inference step failed and no reply was sent
	OutcomeKindAborted OutcomeKind = "aborted"

	// OutcomeKindUnhandled means the message kind has no handler
	OutcomeKindUnhandled OutcomeKind = "unhandled"

	// OutcomeKindFailed means the reply could not be delivered
	OutcomeKindFailed OutcomeKind = "failed"
)
