package models

// SchemeCandidate is a fund scheme as returned by search or by an ambiguous upload.
type SchemeCandidate struct {
	SchemeCode string `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// SelectedScheme is the scheme the user has explicitly confirmed in the form.
type SelectedScheme struct {
	SchemeCode string `json:"scheme_code"`
	SchemeName string `json:"scheme_name"`
}

// Selected converts a candidate into a confirmed selection.
func (c SchemeCandidate) Selected() SelectedScheme {
	return SelectedScheme{SchemeCode: c.SchemeCode, SchemeName: c.SchemeName}
}

// Fund is an entry of the user's tracked fund list.
type Fund struct {
	ID         string  `json:"id"`
	FundName   string  `json:"fund_name"`
	Nickname   string  `json:"nickname,omitempty"`
	SchemeCode string  `json:"scheme_code,omitempty"`
	SchemeName string  `json:"scheme_name,omitempty"`
	Invested   float64 `json:"invested_amount,omitempty"`
}
