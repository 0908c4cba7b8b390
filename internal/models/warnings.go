package models

// WarningCode categorizes soft signals surfaced to the user.
// W3xxx = upload validation, W4xxx = scheme matching.
type WarningCode string

const (
	WarnContentMismatch      WarningCode = "W3001" // extracted fund name does not match the selected scheme
	WarnUnknownExtractedName WarningCode = "W3002" // backend could not extract a fund name from the file
	WarnAmbiguousMatch       WarningCode = "W4001" // several schemes match, user must pick one
)

// Warning represents a non-fatal issue encountered during processing.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
