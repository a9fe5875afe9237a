package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

type instagramExport struct {
	Messages []struct {
		SenderName  string `json:"sender_name"`
		TimestampMS int64  `json:"timestamp_ms"`
		Content     string `json:"content"`
		Share       *struct {
			ShareText string `json:"share_text"`
		} `json:"share"`
	} `json:"messages"`
}

// ParseInstagram reads an Instagram message export. Messages without text
// content fall back to the shared-post caption when present and are skipped
// otherwise. The export is reverse chronological; the result is sorted
// oldest first.
func ParseInstagram(r io.Reader) ([]Message, error) {
	var export instagramExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decode instagram export: %w", err)
	}

	var messages []Message
	for _, m := range export.Messages {
		content := m.Content
		if content == "" {
			if m.Share != nil && m.Share.ShareText != "" {
				content = "[Shared Post] " + m.Share.ShareText
			} else {
				continue
			}
		}

		messages = append(messages, Message{
			Timestamp: time.UnixMilli(m.TimestampMS),
			Platform:  "Instagram",
			Sender:    fixMojibake(m.SenderName),
			Content:   fixMojibake(content),
		})
	}

	SortByTime(messages)
	return messages, nil
}

// fixMojibake repairs the classic Instagram/Facebook export defect where
// UTF-8 bytes were decoded as latin-1, leaving each byte as its own code
// point. If the string round-trips to valid UTF-8 through latin-1 bytes,
// the repaired form is returned; anything else passes through unchanged.
func fixMojibake(s string) string {
	b := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		b = append(b, byte(r))
	}
	if len(b) == len(s) {
		// Pure ASCII (or already single-byte): nothing to repair.
		return s
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return s
}
