package sources

import "encoding/json"

// PageMeta mirrors the offset-pagination envelope spec §4.2 describes: a
// list endpoint returns `page_meta` containing `limit`, `offset`, and
// `next` (null when done).
type PageMeta struct {
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
	Next   *int `json:"next"`
}

// Done reports whether pagination has completed (Next is null).
func (p PageMeta) Done() bool {
	return p.Next == nil
}

// OffsetEnvelope is the minimal shape list responses are expected to embed
// a page_meta object in, alongside whatever list field carries the rows
// (that field is source-specific, so the orchestrator decodes rows with
// its own source-specific struct and decodes PageMeta from this envelope
// separately).
type OffsetEnvelope struct {
	PageMeta PageMeta `json:"page_meta"`
}

// ParsePageMeta decodes an OffsetEnvelope's page_meta from a raw response
// body. A response carrying no page_meta at all is treated as a single,
// already-complete page.
func ParsePageMeta(body []byte) (PageMeta, error) {
	var env OffsetEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return PageMeta{}, err
	}

	if env.PageMeta.Limit == 0 && env.PageMeta.Next == nil && env.PageMeta.Offset == 0 {
		return PageMeta{Next: nil}, nil
	}

	return env.PageMeta, nil
}

// CursorEnvelope carries an opaque, source-defined cursor forward verbatim
// (spec §4.2 "for sources that provide cursor pagination, the cursor is
// opaque and carried forward verbatim").
type CursorEnvelope struct {
	Cursor *string `json:"cursor"`
}

// ParseCursor decodes a cursor envelope. A nil Cursor signals the last
// page.
func ParseCursor(body []byte) (*string, error) {
	var env CursorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	return env.Cursor, nil
}
