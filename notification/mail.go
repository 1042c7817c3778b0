package notification

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"messenger/domain"

	"github.com/abadojack/whatlanggo"
)

func mailSubject(n domain.Notification) string {
	if n.IsReply {
		return fmt.Sprintf("%s replied to your message: %s", n.SenderName, n.Subject)
	}
	return fmt.Sprintf("New message from %s: %s", n.SenderName, n.Subject)
}

func mailBody(n domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", n.RecipientName)
	fmt.Fprintf(&b, "%s sent you a message.\n\n", n.SenderName)
	fmt.Fprintf(&b, "Subject: %s\n\n", n.Subject)
	b.WriteString(n.Content)
	fmt.Fprintf(&b, "\n\n--\nMessage %s\n", n.MessageID)
	return b.String()
}

// buildMail renders the notification as an RFC 5322 message. The body is
// quoted-printable so no line exceeds 76 characters.
func buildMail(from string, n domain.Notification, now time.Time) []byte {
	to := mail.Address{Name: n.RecipientName, Address: n.RecipientEmail}
	headers := []string{
		"From: " + from,
		"To: " + to.String(),
		"Subject: " + mime.QEncoding.Encode("utf-8", sanitizeHeader(mailSubject(n))),
		"Date: " + now.Format(time.RFC1123Z),
		fmt.Sprintf("Message-ID: <%s.%d@messenger>", n.MessageID, now.UnixNano()),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"Content-Transfer-Encoding: quoted-printable",
	}
	info := whatlanggo.Detect(n.Content)
	if info.IsReliable() {
		if lang := info.Lang.Iso6391(); lang != "" {
			headers = append(headers, "Content-Language: "+lang)
		}
	}
	var body bytes.Buffer
	writer := quotedprintable.NewWriter(&body)
	_, _ = writer.Write([]byte(normalizeBody(mailBody(n))))
	_ = writer.Close()
	return []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body.String() + "\r\n")
}

func sanitizeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.ReplaceAll(body, "\r", "\n")
	body = strings.ReplaceAll(body, "\n", "\r\n")
	return strings.TrimSpace(body)
}
