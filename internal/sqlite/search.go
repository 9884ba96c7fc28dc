package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/claritycopilot/transcripts/internal/domain/transcript"
)

// Search performs a full-text search over topics and summaries
func (r *TranscriptRepository) Search(ctx context.Context, query string, opts transcript.SearchOptions) ([]transcript.SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return []transcript.SearchResult{}, nil
	}

	baseQuery := `
		SELECT
			` + refColumns + `,
			-bm25(transcripts_fts) AS rank,
			snippet(transcripts_fts, 1, '', '', '...', 16) AS snippet
		FROM transcripts_fts
		JOIN transcripts t ON t.rowid = transcripts_fts.rowid
		WHERE transcripts_fts MATCH ?
		ORDER BY bm25(transcripts_fts)
	`
	baseQuery, args := paginate(baseQuery, []interface{}{match}, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search transcripts: %w", err)
	}
	defer rows.Close()

	results := []transcript.SearchResult{}
	for rows.Next() {
		var result transcript.SearchResult
		ref, err := scanRef(rows, &result.Rank, &result.Snippet)
		if err != nil {
			return nil, err
		}
		result.Ref = ref
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}

// ftsQuery turns free text into an FTS5 query that ANDs quoted terms, so
// user input can never be parsed as FTS5 syntax.
func ftsQuery(q string) string {
	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, term := range terms {
		terms[i] = `"` + term + `"`
	}
	return strings.Join(terms, " ")
}
