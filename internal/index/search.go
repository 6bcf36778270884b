// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// SEARCH RESULT
// =============================================================================

// SearchResult represents a single matching message
type SearchResult struct {
	ConversationID string
	Title          string
	MessageID      string
	Role           string
	Snippet        string
	CreatedAt      time.Time
	Rank           float64 // Search relevance rank
}

// SearchOptions configures search behavior
type SearchOptions struct {
	// MaxResults limits the number of results (0 = unlimited)
	MaxResults int

	// Roles filters by message role (empty = all roles)
	Roles []string

	// Since restricts results to messages after this time (zero = no limit)
	Since time.Time
}

// DefaultSearchOptions returns default search options
func DefaultSearchOptions() *SearchOptions {
	return &SearchOptions{
		MaxResults: 50,
	}
}

// =============================================================================
// SEARCH METHODS
// =============================================================================

// Search finds messages matching the query using full-text search
func (idx *ConversationIndex) Search(query string, options *SearchOptions) ([]SearchResult, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	if options == nil {
		options = DefaultSearchOptions()
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		// Empty query not allowed for FTS search
		return []SearchResult{}, nil
	}

	sqlQuery := `
		SELECT
			c.conv_id, c.title,
			m.msg_id, m.role, m.created_at,
			snippet(messages_fts, 0, '', '', '...', 16),
			fts.rank
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		JOIN conversations c ON c.id = m.conversation_id
		WHERE messages_fts MATCH ?
	`

	var args []interface{}
	args = append(args, ftsQuery)

	var conditions []string

	if len(options.Roles) > 0 {
		placeholders := make([]string, len(options.Roles))
		for i, role := range options.Roles {
			placeholders[i] = "?"
			args = append(args, role)
		}
		conditions = append(conditions, "m.role IN ("+strings.Join(placeholders, ",")+")")
	}

	if !options.Since.IsZero() {
		conditions = append(conditions, "m.created_at >= ?")
		args = append(args, options.Since.Unix())
	}

	if len(conditions) > 0 {
		sqlQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sqlQuery += " ORDER BY fts.rank"

	if options.MaxResults > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, options.MaxResults)
	}

	rows, err := idx.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var result SearchResult
		var createdAt int64

		err := rows.Scan(
			&result.ConversationID,
			&result.Title,
			&result.MessageID,
			&result.Role,
			&createdAt,
			&result.Snippet,
			&result.Rank,
		)
		if err != nil {
			continue
		}

		result.CreatedAt = time.Unix(createdAt, 0)
		results = append(results, result)
	}

	return results, nil
}

// SearchConversations returns matching conversations (deduplicated),
// most relevant first.
func (idx *ConversationIndex) SearchConversations(query string, options *SearchOptions) ([]string, error) {
	results, err := idx.Search(query, options)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, r := range results {
		if !seen[r.ConversationID] {
			seen[r.ConversationID] = true
			ids = append(ids, r.ConversationID)
		}
	}

	return ids, nil
}

// ListConversations returns all indexed conversation ids, most recently
// updated first.
func (idx *ConversationIndex) ListConversations() ([]string, error) {
	if !idx.IsIndexed() {
		return nil, ErrNotIndexed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query("SELECT conv_id FROM conversations ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// buildFTSQuery builds an FTS5 query from user input
func buildFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	// Sanitize query by quoting each term, which neutralizes FTS5
	// operators in user input
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, "\"", "\"\"")
		quoted = append(quoted, "\""+term+"\"")
	}

	// Prefix match on the final term so partial words still hit
	if len(quoted) > 0 {
		quoted[len(quoted)-1] += "*"
	}

	return strings.Join(quoted, " ")
}
