package chat

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// WhatsApp export lines look like:
//
//	18/07/2024, 19:09 - User Name: Message text
//
// Sender names can contain spaces; message text can continue on following
// lines without the prefix.
var whatsappLine = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4}), (\d{2}:\d{2}) - (.*?): (.*)$`)

const mediaOmitted = "<Media omitted>"

// ParseWhatsApp reads a WhatsApp text export. Lines without the timestamp
// prefix are appended to the previous message; media-only messages are
// dropped entirely, including their continuation lines.
func ParseWhatsApp(r io.Reader) ([]Message, error) {
	var messages []Message
	var current *Message

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		m := whatsappLine.FindStringSubmatch(line)
		if m == nil {
			if current != nil {
				current.Content += "\n" + line
			}
			continue
		}

		if current != nil {
			messages = append(messages, *current)
			current = nil
		}

		dateStr, timeStr, sender, content := m[1], m[2], m[3], m[4]
		if strings.TrimSpace(content) == mediaOmitted {
			continue
		}

		ts, err := time.Parse("02/01/2006 15:04", dateStr+" "+timeStr)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", dateStr+" "+timeStr, err)
		}

		current = &Message{
			Timestamp: ts,
			Platform:  "WhatsApp",
			Sender:    strings.TrimSpace(sender),
			Content:   content,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}

	if current != nil {
		messages = append(messages, *current)
	}

	return messages, nil
}
