package workflow

import "github.com/epeers/mftracker/internal/models"

// PhaseTag names the workflow phase in snapshots.
type PhaseTag string

const (
	PhaseIdle           PhaseTag = "idle"
	PhaseSubmitted      PhaseTag = "submitted"
	PhaseNeedsOverride  PhaseTag = "needs_override"
	PhaseNeedsSelection PhaseTag = "needs_selection"
)

// Phase is one of Idle, Submitted, NeedsOverride or NeedsSelection.
// Only one disambiguation payload can exist at a time.
type Phase interface {
	Tag() PhaseTag
	isPhase()
}

// Idle means no attempt is in flight and the form is editable.
type Idle struct{}

// Submitted means an upload request is in flight and the form is locked.
type Submitted struct {
	Override bool
}

// NeedsOverride holds a mismatch warning and the exact request that produced it.
type NeedsOverride struct {
	Warning models.ValidationWarning
	request *models.UploadRequest
}

// NeedsSelection holds an accepted upload awaiting a scheme choice.
// Busy is the scheme code whose confirmation is in flight, if any.
type NeedsSelection struct {
	Pending models.PendingAmbiguity
	Busy    string
}

func (Idle) Tag() PhaseTag           { return PhaseIdle }
func (Submitted) Tag() PhaseTag      { return PhaseSubmitted }
func (NeedsOverride) Tag() PhaseTag  { return PhaseNeedsOverride }
func (NeedsSelection) Tag() PhaseTag { return PhaseNeedsSelection }

func (Idle) isPhase()           {}
func (Submitted) isPhase()      {}
func (NeedsOverride) isPhase()  {}
func (NeedsSelection) isPhase() {}
