package chat

import (
	"encoding/json"
	"fmt"
	"strings"
)

type compactHeader struct {
	Senders []string `json:"senders"`
	Count   int      `json:"count"`
	Format  string   `json:"format"`
}

// CompactTranscript renders messages in a token-efficient export format: a
// metadata JSON line carrying the sender table, then one line per message
// as `YY-MM<tab>senderIdx<tab>content` with embedded newlines escaped.
func CompactTranscript(msgs []Message) string {
	senders := make([]string, 0, 2)
	senderIdx := make(map[string]int)
	for _, m := range msgs {
		if _, ok := senderIdx[m.Sender]; !ok {
			senderIdx[m.Sender] = len(senders)
			senders = append(senders, m.Sender)
		}
	}

	header, _ := json.Marshal(compactHeader{
		Senders: senders,
		Count:   len(msgs),
		Format:  "YY-MM\tSenderIdx\tContent",
	})

	var sb strings.Builder
	sb.Write(header)
	for _, m := range msgs {
		content := strings.ReplaceAll(m.Content, "\n", `\n`)
		content = strings.ReplaceAll(content, "\t", " ")
		fmt.Fprintf(&sb, "\n%s\t%d\t%s", m.Timestamp.Format("06-01"), senderIdx[m.Sender], content)
	}
	return sb.String()
}
