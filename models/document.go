package models

// Document is a single entry returned by the vector-store search API.
// Depending on the service version the text lives under "file_content",
// "file" or "content", and the identifier under "file_id", "id" or "name";
// the accessors below normalize that.
type Document struct {
	FileID      string                 `json:"file_id,omitempty"`
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name,omitempty"`
	FileContent string                 `json:"file_content,omitempty"`
	File        string                 `json:"file,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Text returns the first non-empty content-like field.
func (d Document) Text() string {
	if d.FileContent != "" {
		return d.FileContent
	}
	if d.File != "" {
		return d.File
	}
	return d.Content
}

// Identifier returns the first non-empty id-like field, or "unknown".
func (d Document) Identifier() string {
	if d.FileID != "" {
		return d.FileID
	}
	if d.ID != "" {
		return d.ID
	}
	if d.Name != "" {
		return d.Name
	}
	return "unknown"
}

// DedupeKey is the key used when merging retrieval phases: the metadata
// source when present, otherwise the raw content.
func (d Document) DedupeKey() string {
	if d.Metadata != nil {
		if src, ok := d.Metadata["source"].(string); ok && src != "" {
			return src
		}
	}
	return d.Text()
}

// RankedDocument pairs a document with its cross-encoder relevance score.
type RankedDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

// Citation points a response back at one retrieved document.
type Citation struct {
	Ordinal int    `json:"id"`
	FileID  string `json:"file_id"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}
