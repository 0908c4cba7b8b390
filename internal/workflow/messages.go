package workflow

import "errors"

// User-facing texts for the disambiguation paths.
const (
	MsgSchemeConfirmed     = "Scheme selected and portfolio updated!"
	MsgSchemeConfirmFailed = "Failed to update scheme selection."
)

var (
	ErrClosed             = errors.New("session is closed")
	ErrFormLocked         = errors.New("form is locked while an upload is being resolved")
	ErrNotIdle            = errors.New("an upload attempt is already in progress")
	ErrNoPendingOverride  = errors.New("no mismatch warning is awaiting a decision")
	ErrNoPendingSelection = errors.New("no upload is awaiting a scheme selection")
	ErrSelectionBusy      = errors.New("a scheme confirmation is already in flight")
	ErrUnknownCandidate   = errors.New("scheme is not among the offered candidates")
)

// MessageKind classifies the single status message of a session.
type MessageKind string

const (
	MessageNone    MessageKind = ""
	MessageSuccess MessageKind = "success"
	MessageError   MessageKind = "error"
)

// Message is the status line shown under the form.
type Message struct {
	Kind MessageKind `json:"kind,omitempty"`
	Text string      `json:"text,omitempty"`
}

func successMessage(text string) Message { return Message{Kind: MessageSuccess, Text: text} }

func errorMessage(text string) Message { return Message{Kind: MessageError, Text: text} }
