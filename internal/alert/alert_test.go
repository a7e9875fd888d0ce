package alert

import (
	"bufio"
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mahyarmirrashed/dirclean/internal/config"
	"github.com/mahyarmirrashed/dirclean/internal/scanner"
	log "github.com/sirupsen/logrus"
)

type fakeSender struct {
	sent []Message
	fail map[string]error // keyed by subject
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return f.fail[msg.Subject]
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("bot@example.com", "ops@example.com", "secret.pdf", "secret")

	if msg.Subject != "Directory cleaner alert: WARNING file secret.pdf deleted" {
		t.Fatalf("unexpected subject: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "secret.pdf") || !strings.Contains(msg.Body, "'secret'") {
		t.Fatalf("body does not name file and keyword: %q", msg.Body)
	}

	raw := string(msg.Bytes())
	for _, want := range []string{
		"From: bot@example.com\r\n",
		"To: ops@example.com\r\n",
		"Subject: Directory cleaner alert: WARNING file secret.pdf deleted\r\n",
		"Content-Type: text/plain; charset=UTF-8\r\n",
		"\r\n\r\nThe file secret.pdf was deleted",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("rendered message missing %q:\n%s", want, raw)
		}
	}
	if strings.Contains(strings.ReplaceAll(raw, "\r\n", ""), "\n") {
		t.Fatalf("rendered message contains bare LF")
	}
}

func TestNotifyContinuesAfterFailure(t *testing.T) {
	first := NewMessage("", "", "a-secret", "secret").Subject
	sender := &fakeSender{fail: map[string]error{first: errors.New("535 authentication failed")}}

	var buf bytes.Buffer
	logger := log.New()
	logger.SetOutput(&buf)

	n := &Notifier{Sender: sender, Log: logger, From: "bot@example.com", To: "ops@example.com", Keyword: "secret"}
	outcomes := n.Notify(context.Background(), []scanner.Entry{{Name: "a-secret"}, {Name: "b-secret"}})

	if len(sender.sent) != 2 {
		t.Fatalf("expected two send attempts, got %d", len(sender.sent))
	}
	if outcomes[0].Err == nil || outcomes[1].Err != nil {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
	out := buf.String()
	if !strings.Contains(out, "Failed to send alert for a-secret") {
		t.Fatalf("expected failure line, got:\n%s", out)
	}
	if !strings.Contains(out, "Alert sent for b-secret") {
		t.Fatalf("expected success line, got:\n%s", out)
	}
	if sender.sent[1].To != "ops@example.com" || sender.sent[1].From != "bot@example.com" {
		t.Fatalf("unexpected envelope: %+v", sender.sent[1])
	}
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	s := NewSMTPSender(config.Email{Host: "127.0.0.1", Port: port, User: "u", Password: "p"})
	err = s.Send(context.Background(), NewMessage("u", "t", "f", "k"))
	if err == nil || !strings.Contains(err.Error(), "dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestMessageHeadersCannotBeInjected(t *testing.T) {
	msg := NewMessage("bot@example.com", "ops@example.com", "evil\r\nBcc: victim@example.com\r\nX: y", "evil")
	raw := string(msg.Bytes())

	headers := raw[:strings.Index(raw, "\r\n\r\n")]
	for _, line := range strings.Split(headers, "\r\n") {
		if strings.HasPrefix(line, "Bcc:") || strings.HasPrefix(line, "X:") {
			t.Fatalf("filename injected header %q:\n%s", line, raw)
		}
	}
	if !strings.Contains(headers, "Subject: Directory cleaner alert: WARNING file evil  Bcc: victim@example.com  X: y deleted") {
		t.Fatalf("unexpected subject header:\n%s", headers)
	}
}

func TestMessageEncodesNonASCIISubject(t *testing.T) {
	raw := string(NewMessage("a@example.com", "b@example.com", "ünï.txt", "ü").Bytes())
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Fatalf("expected RFC 2047 encoded subject:\n%s", raw)
	}
	headers := raw[:strings.Index(raw, "\r\n\r\n")]
	for _, r := range headers {
		if r > 127 {
			t.Fatalf("raw 8-bit byte in headers:\n%s", headers)
		}
	}
}

// smtpServer is a single-connection SMTP server on loopback.
// With a nil tlsConfig it refuses STARTTLS.
type smtpServer struct {
	tlsConfig *tls.Config
	authReply string

	mu     sync.Mutex
	cmds   []string
	data   string
	closed bool
}

func (s *smtpServer) start(t *testing.T) (port int, done <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan struct{})
	go func() {
		defer close(ch)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.serve(conn)
	}()
	return ln.Addr().(*net.TCPAddr).Port, ch
}

func (s *smtpServer) serve(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			io.WriteString(conn, l+"\r\n")
		}
	}
	secure := false

	reply("220 localhost ESMTP test")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			return
		}
		cmd := strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.cmds = append(s.cmds, cmd)
		s.mu.Unlock()

		switch verb := strings.ToUpper(strings.SplitN(cmd, " ", 2)[0]); {
		case verb == "EHLO" && secure:
			reply("250-localhost", "250 AUTH PLAIN")
		case verb == "EHLO" && s.tlsConfig != nil:
			reply("250-localhost", "250 STARTTLS")
		case verb == "EHLO":
			reply("250-localhost", "250 8BITMIME")
		case verb == "STARTTLS" && s.tlsConfig != nil && !secure:
			reply("220 ready to start TLS")
			tconn := tls.Server(conn, s.tlsConfig)
			if err := tconn.Handshake(); err != nil {
				return
			}
			conn, r, secure = tconn, bufio.NewReader(tconn), true
		case verb == "STARTTLS":
			reply("502 not implemented")
		case verb == "AUTH":
			reply(s.authReply)
		case verb == "MAIL", verb == "RCPT":
			reply("250 ok")
		case verb == "DATA":
			reply("354 end with <CRLF>.<CRLF>")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.mu.Lock()
			s.data = b.String()
			s.mu.Unlock()
			reply("250 queued")
		case verb == "QUIT":
			reply("221 bye")
		default:
			reply("500 unknown command")
		}
	}
}

func (s *smtpServer) sawCommand(prefix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cmds {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("smtp server did not finish")
	}
}

// selfSignedTLS returns a server config for 127.0.0.1 and a client config trusting it.
func selfSignedTLS(t *testing.T) (server, client *tls.Config) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(leaf)

	server = &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}}}
	client = &tls.Config{RootCAs: pool}
	return server, client
}

func TestSMTPSenderDelivers(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	srv := &smtpServer{tlsConfig: serverTLS, authReply: "235 2.7.0 authentication successful"}
	port, done := srv.start(t)

	s := &SMTPSender{Host: "127.0.0.1", Port: port, User: "bot@example.com", Password: "hunter2", TLSConfig: clientTLS}
	msg := NewMessage("bot@example.com", "ops@example.com", "secret.pdf", "secret")
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	wait(t, done)

	for _, prefix := range []string{"STARTTLS", "AUTH PLAIN ", "MAIL FROM:<bot@example.com>", "RCPT TO:<ops@example.com>", "DATA", "QUIT"} {
		if !srv.sawCommand(prefix) {
			t.Fatalf("server did not receive %q; got %q", prefix, srv.cmds)
		}
	}
	if !strings.Contains(srv.data, "Subject: Directory cleaner alert: WARNING file secret.pdf deleted\r\n") {
		t.Fatalf("unexpected payload:\n%s", srv.data)
	}
	if !strings.Contains(srv.data, "The file secret.pdf was deleted") {
		t.Fatalf("payload missing body:\n%s", srv.data)
	}
	if !srv.closed {
		t.Fatalf("connection was not closed after send")
	}
}

func TestSMTPSenderAuthFailure(t *testing.T) {
	serverTLS, clientTLS := selfSignedTLS(t)
	srv := &smtpServer{tlsConfig: serverTLS, authReply: "535 5.7.8 authentication failed"}
	port, done := srv.start(t)

	s := &SMTPSender{Host: "127.0.0.1", Port: port, User: "bot@example.com", Password: "wrong", TLSConfig: clientTLS}
	err := s.Send(context.Background(), NewMessage("bot@example.com", "ops@example.com", "f", "k"))
	if err == nil || !strings.Contains(err.Error(), "auth") {
		t.Fatalf("expected auth error, got %v", err)
	}
	wait(t, done)

	if srv.sawCommand("MAIL") || srv.data != "" {
		t.Fatalf("message sent despite auth failure: %q", srv.cmds)
	}
	if !srv.closed {
		t.Fatalf("connection was not closed after auth failure")
	}
}

func TestSMTPSenderNoStartTLS(t *testing.T) {
	srv := &smtpServer{}
	port, done := srv.start(t)

	s := &SMTPSender{Host: "127.0.0.1", Port: port, User: "u", Password: "p"}
	err := s.Send(context.Background(), NewMessage("u", "t", "f", "k"))
	if err == nil || !strings.Contains(err.Error(), "starttls") {
		t.Fatalf("expected starttls error, got %v", err)
	}
	wait(t, done)

	if srv.sawCommand("AUTH") {
		t.Fatalf("credentials sent without TLS")
	}
	if !srv.closed {
		t.Fatalf("connection was not closed after starttls failure")
	}
}
