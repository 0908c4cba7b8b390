package upload

import (
	"fmt"

	"github.com/epeers/mftracker/internal/models"
)

const MsgUploadSuccess = "Lumpsum investment uploaded successfully!"

// Outcome is the interpretation of an upload response: exactly one of
// *ValidationRequired, *SelectionRequired or *Success.
type Outcome interface {
	isOutcome()
}

// ValidationRequired means the file's fund name did not match the selected scheme.
type ValidationRequired struct {
	Warning models.ValidationWarning
}

// SelectionRequired means the upload was accepted but several schemes match it.
type SelectionRequired struct {
	Pending models.PendingAmbiguity
}

// Success means the upload was stored and bound to a scheme.
type Success struct {
	Message string
	Count   *int
}

func (*ValidationRequired) isOutcome() {}
func (*SelectionRequired) isOutcome()  {}
func (*Success) isOutcome()            {}

// Text is the user-facing success message. A missing count is an accepted
// backend response and falls back to the plain message.
func (s *Success) Text() string {
	if s.Count == nil {
		return MsgUploadSuccess
	}
	return fmt.Sprintf("%s %d holdings processed.", MsgUploadSuccess, *s.Count)
}

// Interpret maps a backend response onto a single outcome.
// With honorValidation false a mismatch signal is ignored, which is how an
// override resubmission is kept from looping back into the mismatch dialog.
func Interpret(resp *models.UploadResponse, honorValidation bool) Outcome {
	if resp == nil {
		return &Success{}
	}
	if honorValidation && resp.ValidationRequired {
		return &ValidationRequired{Warning: models.ValidationWarning{
			WarningText:       resp.ValidationWarning,
			ExtractedFundName: resp.ExtractedFundName,
			ExpectedFundName:  resp.ExpectedSchemeName,
			SimilarityScore:   resp.SimilarityScore,
		}}
	}
	if resp.UploadStatus != nil && resp.UploadStatus.RequiresSelection {
		candidates := make([]models.SchemeCandidate, len(resp.UploadStatus.Candidates))
		copy(candidates, resp.UploadStatus.Candidates)
		return &SelectionRequired{Pending: models.PendingAmbiguity{
			PendingRecordID: string(resp.UploadStatus.ID),
			Candidates:      candidates,
		}}
	}
	return &Success{Message: resp.Message, Count: resp.Count}
}
