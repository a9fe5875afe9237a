package chat

import (
	"encoding/json"
)

// optimizedTokenLimit caps one optimized JSON file so it fits a single
// model request. Token count is estimated at one token per character,
// which overshoots for prose but is safe for dense JSON.
const optimizedTokenLimit = 500_000

const timestampLayout = "2006-01-02T15:04:05"

// OptimizedMeta carries the lookup tables referenced by row indices.
type OptimizedMeta struct {
	Platforms []string `json:"platforms"`
	Senders   []string `json:"senders"`
}

// OptimizedTable is the table-encoded transcript: platform and sender
// lookup tables plus one row per message in column order
// [timestamp, platform_idx, sender_idx, content].
type OptimizedTable struct {
	Meta    OptimizedMeta `json:"meta"`
	Columns []string      `json:"columns"`
	Data    [][]any       `json:"data"`
}

// OptimizeTranscript encodes messages into the table format. Platforms and
// senders are indexed in order of first appearance.
func OptimizeTranscript(msgs []Message) OptimizedTable {
	table := OptimizedTable{
		Columns: []string{"timestamp", "platform_idx", "sender_idx", "content"},
		Data:    make([][]any, 0, len(msgs)),
	}
	platformIdx := make(map[string]int)
	senderIdx := make(map[string]int)

	for _, m := range msgs {
		p, ok := platformIdx[m.Platform]
		if !ok {
			p = len(table.Meta.Platforms)
			platformIdx[m.Platform] = p
			table.Meta.Platforms = append(table.Meta.Platforms, m.Platform)
		}
		s, ok := senderIdx[m.Sender]
		if !ok {
			s = len(table.Meta.Senders)
			senderIdx[m.Sender] = s
			table.Meta.Senders = append(table.Meta.Senders, m.Sender)
		}
		table.Data = append(table.Data, []any{
			m.Timestamp.Format(timestampLayout), p, s, m.Content,
		})
	}
	return table
}

// Split partitions the table into chunks whose estimated size stays under
// maxTokens, each repeating the meta and column header so it stands alone.
// A non-positive maxTokens uses the default limit. At least one chunk is
// always returned.
func (t OptimizedTable) Split(maxTokens int) []OptimizedTable {
	if maxTokens <= 0 {
		maxTokens = optimizedTokenLimit
	}

	empty := OptimizedTable{Meta: t.Meta, Columns: t.Columns, Data: [][]any{}}
	base, _ := json.Marshal(empty)
	baseTokens := len(base)

	chunks := []OptimizedTable{}
	current := baseTokens
	var rows [][]any
	for _, row := range t.Data {
		content, _ := row[3].(string)
		rowTokens := len(content) + 10
		if current+rowTokens > maxTokens && len(rows) > 0 {
			chunks = append(chunks, OptimizedTable{Meta: t.Meta, Columns: t.Columns, Data: rows})
			rows = nil
			current = baseTokens
		}
		rows = append(rows, row)
		current += rowTokens
	}
	if len(rows) > 0 || len(chunks) == 0 {
		if rows == nil {
			rows = [][]any{}
		}
		chunks = append(chunks, OptimizedTable{Meta: t.Meta, Columns: t.Columns, Data: rows})
	}
	return chunks
}
