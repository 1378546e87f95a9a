package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"

	"github.com/agentstation/patchpilot/pkg/constants"
	"github.com/agentstation/patchpilot/pkg/errors"
	"github.com/agentstation/patchpilot/pkg/logging"
	"github.com/agentstation/patchpilot/pkg/report"
)

// SendFunc sends one message. It has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Summary fields read by the mail body.
const (
	mailPackage      = "Package"
	mailVersion      = "Version"
	mailPolicy       = "Policy"
	mailPatchPolicy  = "Patch policy"
	mailTitle        = "Software title"
	mailImporterName = "Name"
)

// Mail sends a plain-text notice for a newly uploaded package over
// unauthenticated SMTP.
type Mail struct {
	// Addr is host or host:port of the relay. The port defaults to 25.
	Addr string
	From string
	To   []string

	ServerURL   string
	ProductName string

	// TriggerKey optionally names the summary field gating the mail.
	TriggerKey string

	// Send defaults to smtp.SendMail.
	Send SendFunc
}

// Name implements Sink.
func (m *Mail) Name() string { return "mail" }

// Message is a rendered notice.
type Message struct {
	Subject string
	Body    string
}

// Compose renders the notice for s. ok is false when the summary names no
// package, in which case there is nothing to announce.
func (m *Mail) Compose(s *report.Summary) (msg Message, ok bool) {
	pkg := s.Text(mailPackage)
	if pkg == "" {
		return Message{}, false
	}

	product := m.ProductName
	if product == "" {
		product = firstText(s, mailTitle, mailImporterName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A new version of %s has been uploaded\n", product)
	fmt.Fprintf(&b, "Jamf Pro Server : %s\n", m.ServerURL)
	fmt.Fprintf(&b, "Package : %s\n", pkg)
	fmt.Fprintf(&b, "Version : %s\n", s.Text(mailVersion))
	fmt.Fprintf(&b, "Policy : %s\n", firstText(s, mailPolicy, mailPatchPolicy))

	return Message{
		Subject: fmt.Sprintf("New uploaded package for %s is available", product),
		Body:    b.String(),
	}, true
}

// Bytes renders msg as an RFC 5322 message. Header values lose any CR or LF
// and the subject is Q-encoded when it is not plain ASCII.
func (m *Mail) Bytes(msg Message) []byte {
	to := make([]string, len(m.To))
	for i, addr := range m.To {
		to[i] = headerValue(addr)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(m.From))
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// Notify implements Sink.
func (m *Mail) Notify(ctx context.Context, s *report.Summary) (bool, error) {
	log := logging.FromContext(ctx)

	if !Trigger(s, m.TriggerKey) {
		log.Debug().Str("trigger_key", m.TriggerKey).Msg("Trigger key is falsy")
		return false, nil
	}

	msg, ok := m.Compose(s)
	if !ok {
		log.Debug().Msg("No uploaded package in summary")
		return false, nil
	}

	if len(m.To) == 0 || m.From == "" {
		return false, errors.NewValidationError("mail", nil, "sender and recipients are required")
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrCanceled, err)
	}

	send := m.Send
	if send == nil {
		send = smtp.SendMail
	}

	addr := SMTPAddr(m.Addr)
	log.Debug().Str("smtp", addr).Strs("to", m.To).Msg("Sending mail")
	if err := send(addr, nil, m.From, m.To, m.Bytes(msg)); err != nil {
		return false, errors.NewTransportError("smtp://"+addr, 0, err)
	}
	return true, nil
}

var headerBreaks = strings.NewReplacer("\r", "", "\n", "")

func headerValue(s string) string {
	return headerBreaks.Replace(s)
}

// SMTPAddr adds the default port to a relay address without one.
func SMTPAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, constants.DefaultSMTPPort)
}

func firstText(s *report.Summary, fields ...string) string {
	for _, f := range fields {
		if v := s.Text(f); v != "" {
			return v
		}
	}
	return ""
}
