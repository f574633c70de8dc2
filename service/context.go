package service

import (
	"fmt"

	"ragchat-backend/models"
)

// ExtractContext joins document texts with blank lines, stopping before any
// document whose inclusion would push the total past maxLength. Documents
// past the cutoff are dropped whole, never truncated mid-text.
func ExtractContext(docs []models.Document, maxLength int) string {
	var out string
	total := 0
	for _, doc := range docs {
		text := doc.Text()
		n := len([]rune(text))
		if total+n > maxLength {
			break
		}
		if out != "" {
			out += "\n\n"
		}
		out += text
		total += n
	}
	return out
}

// FilesToCitations derives one citation per document in input order with
// 1-based contiguous ordinals and a synthetic #file-{id} link.
func FilesToCitations(docs []models.Document) []models.Citation {
	citations := make([]models.Citation, 0, len(docs))
	for i, doc := range docs {
		id := doc.Identifier()
		citations = append(citations, models.Citation{
			Ordinal: i + 1,
			FileID:  id,
			Snippet: doc.Text(),
			Link:    fmt.Sprintf("#file-%s", id),
		})
	}
	return citations
}

// MergeDocuments combines two retrieval phases, deduplicating on each
// document's dedupe key. The later occurrence wins so refined-phase results
// override initial-phase results; order is first seen to last kept.
func MergeDocuments(first, second []models.Document) []models.Document {
	index := make(map[string]int)
	merged := make([]models.Document, 0, len(first)+len(second))
	for _, doc := range append(append([]models.Document{}, first...), second...) {
		key := doc.DedupeKey()
		if pos, ok := index[key]; ok {
			merged[pos] = doc
			continue
		}
		index[key] = len(merged)
		merged = append(merged, doc)
	}
	return merged
}
