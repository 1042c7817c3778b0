package repositories

import (
	"fmt"
	"strings"
	"time"
)

// RecordView is a human readable summary of a raw store entry.
type RecordView struct {
	Kind      string
	ID        string
	Timestamp time.Time
	Detail    string
}

// DescribeRecord decodes a raw key/value pair of the store for debugging.
// Unknown or corrupted entries are reported as raw bytes.
func DescribeRecord(key string, val []byte) RecordView {
	view := RecordView{Kind: "raw", Detail: fmt.Sprintf("%d bytes", len(val))}
	switch {
	case strings.HasPrefix(key, messagePrefix):
		m, err := unmarshalMessage(val)
		if err != nil {
			view.Detail = err.Error()
			return view
		}
		view.Kind = "message"
		view.ID = m.ID.String()
		view.Timestamp = m.UpdatedAt
		view.Detail = fmt.Sprintf("%s -> %s: %q", m.SenderID, m.RecipientID, m.Subject)
	case strings.HasPrefix(key, personPrefix):
		p, err := unmarshalPerson(val)
		if err != nil {
			view.Detail = err.Error()
			return view
		}
		view.Kind = "person"
		view.ID = p.ID.String()
		view.Timestamp = p.CreatedAt
		view.Detail = fmt.Sprintf("%s <%s>", p.Name, p.Email)
	case strings.HasPrefix(key, mailboxPrefix), strings.HasPrefix(key, replyPrefix):
		view.Kind = "index"
		view.ID = key[strings.LastIndex(key, ":")+1:]
	case strings.HasPrefix(key, personEmailIndex):
		view.Kind = "index"
		view.Detail = strings.TrimPrefix(key, personEmailIndex)
	}
	return view
}
