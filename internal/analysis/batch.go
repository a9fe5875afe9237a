package analysis

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/keepsake/internal/chat"
)

// DefaultBatchSize bounds how many messages go into one extraction call so
// a batch fits comfortably in the model's context window.
const DefaultBatchSize = 50

// Batch is a contiguous slice of messages processed as one extraction
// unit. IDs are 0-based and dense; batches never overlap and together
// cover the input exactly once, in order.
type Batch struct {
	ID       int
	Messages []chat.Message
}

func SplitBatches(msgs []chat.Message, size int) []Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var batches []Batch
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		batches = append(batches, Batch{ID: len(batches), Messages: msgs[start:end]})
	}
	return batches
}

// FormatTranscript renders messages one per line, in original order, for
// the extraction prompt.
func FormatTranscript(msgs []chat.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Sender, m.Content)
	}
	return sb.String()
}
