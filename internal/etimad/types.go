// Package etimad defines the domain types and extraction primitives for the
// Etimad tender portal. Everything here is pure: no browser, no database.
package etimad

import "encoding/json"

// TenderSummary is one result card from a portal search. Summaries live only
// for the duration of a pipeline run and are never persisted standalone.
type TenderSummary struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	SubCategory string `json:"sub_category"`
	KeywordID   *int64 `json:"keyword_id,omitempty"`
}

// TenderDetailRecord is the raw outcome of scraping one tender page.
// Fields maps the portal's Arabic field labels to their rendered values.
// Err is set when extraction failed or only partially succeeded; the fields
// gathered before the failure are kept.
type TenderDetailRecord struct {
	Link      string
	KeywordID *int64
	Fields    map[string]string
	Raw       []byte
	Err       string
}

// Field returns the value extracted for the given label, or "" if absent.
func (r TenderDetailRecord) Field(label string) string {
	return r.Fields[label]
}

// Serialize captures the link and all extracted fields as JSON for the audit
// copy stored alongside the normalized row.
func (r *TenderDetailRecord) Serialize() error {
	payload := make(map[string]string, len(r.Fields)+1)
	for k, v := range r.Fields {
		payload[k] = v
	}
	payload["Link"] = r.Link
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.Raw = raw
	return nil
}
