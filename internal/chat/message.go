package chat

import (
	"sort"
	"time"
)

// Message is one normalized chat line. Content may span multiple physical
// lines, joined with newlines.
type Message struct {
	Timestamp time.Time
	Platform  string
	Sender    string
	Content   string
}

// SortByTime orders messages chronologically, preserving the original order
// of equal timestamps.
func SortByTime(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
