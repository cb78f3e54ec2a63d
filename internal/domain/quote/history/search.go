package history

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Filter keeps the records whose document name or grade fuzzily contains
// query. Matching ignores case and diacritics, so "ymparisto" finds
// "Ympäristö". An empty query keeps everything.
func Filter(records []Record, query string) []Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	var out []Record
	for _, rec := range records {
		if fuzzy.MatchNormalizedFold(query, rec.DocumentName) || fuzzy.MatchNormalizedFold(query, rec.Grade) {
			out = append(out, rec)
		}
	}
	return out
}
