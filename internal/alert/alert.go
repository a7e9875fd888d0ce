package alert

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/mahyarmirrashed/dirclean/internal/config"
	"github.com/mahyarmirrashed/dirclean/internal/scanner"
	log "github.com/sirupsen/logrus"
)

// Message is a plain-text e-mail for a single deleted file.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// NewMessage builds the alert sent after name was deleted for matching keyword.
func NewMessage(from, to, name, keyword string) Message {
	return Message{
		From:    from,
		To:      to,
		Subject: fmt.Sprintf("Directory cleaner alert: WARNING file %s deleted", headerValue(name)),
		Body:    fmt.Sprintf("The file %s was deleted because it matched the keyword '%s'.\n", name, keyword),
	}
}

// headerValue replaces CR and LF so a value cannot start a new header line.
func headerValue(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// Bytes renders the message with RFC 5322 headers and CRLF line endings.
// A non-ASCII subject is sent as RFC 2047 encoded words.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(m.From))
	fmt.Fprintf(&b, "To: %s\r\n", headerValue(m.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(m.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.Bytes()
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends each message over its own connection, upgraded with
// STARTTLS and authenticated with PLAIN auth.
type SMTPSender struct {
	Host      string
	Port      int
	User      string
	Password  string
	TLSConfig *tls.Config // If nil, the server certificate is verified against Host
}

// NewSMTPSender returns a sender for the email section of cfg.
func NewSMTPSender(cfg config.Email) *SMTPSender {
	return &SMTPSender{Host: cfg.Host, Port: cfg.Port, User: cfg.User, Password: cfg.Password}
}

// Send dials the server, sends msg and closes the connection whatever the result.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	tlsConfig := &tls.Config{ServerName: s.Host}
	if s.TLSConfig != nil {
		tlsConfig = s.TLSConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = s.Host
		}
	}
	if err := c.StartTLS(tlsConfig); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if err := c.Auth(smtp.PlainAuth("", s.User, s.Password, s.Host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return c.Quit()
}

// Outcome is the result of alerting for one entry. Err is nil on success.
type Outcome struct {
	Entry scanner.Entry
	Err   error
}

// Notifier sends one alert per matched file.
type Notifier struct {
	Sender  Sender
	Log     log.FieldLogger
	From    string
	To      string
	Keyword string
}

// Notify sends an alert for each entry in order. A failed send is logged and
// recorded; later entries are still attempted.
func (n *Notifier) Notify(ctx context.Context, entries []scanner.Entry) []Outcome {
	outcomes := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		start := time.Now()
		err := n.Sender.Send(ctx, NewMessage(n.From, n.To, e.Name, n.Keyword))
		if err != nil {
			n.Log.Errorf("Failed to send alert for %s: %v", e.Name, err)
		} else {
			n.Log.Infof("Alert sent for %s to %s (%s)", e.Name, n.To, time.Since(start).Round(time.Millisecond))
		}
		outcomes = append(outcomes, Outcome{Entry: e, Err: err})
	}
	return outcomes
}
