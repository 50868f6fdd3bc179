package smtp

import (
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

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/wneessen/go-mail"

	"github.com/lattiq/maildispatch/internal/core"
)

type received struct {
	from  string
	rcpts []string
	data  string
}

type backend struct {
	mu     sync.Mutex
	reject map[string]bool
	msgs   []received
}

func (b *backend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &session{b: b}, nil
}

type session struct {
	b   *backend
	cur received
}

func (s *session) Reset()        { s.cur = received{} }
func (s *session) Logout() error { return nil }

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	s.cur.from = from
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.b.reject[to] {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
	}
	s.cur.rcpts = append(s.cur.rcpts, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.cur.data = string(b)
	s.b.mu.Lock()
	s.b.msgs = append(s.b.msgs, s.cur)
	s.b.mu.Unlock()
	return nil
}

func startServer(t *testing.T, reject ...string) (*backend, string, int) {
	t.Helper()

	be := &backend{reject: make(map[string]bool)}
	for _, r := range reject {
		be.reject[r] = true
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return be, addr.IP.String(), addr.Port
}

func newMessage(t *testing.T, from string, to ...string) *core.RichMessage {
	t.Helper()

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		t.Fatalf("from: %v", err)
	}
	if err := m.To(to...); err != nil {
		t.Fatalf("to: %v", err)
	}
	m.Subject("Hello")
	m.SetBodyString(mail.TypeTextPlain, "Hi there")

	return core.NewRichMessage(core.Envelope{Subject: "Hello", Body: "Hi there", To: to, From: from}, m)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		host       string
		port       int
		encryption string
		ok         bool
	}{
		{"localhost", 25, "", true},
		{"localhost", 465, "SSL", true},
		{"localhost", 587, "tls", true},
		{"", 25, "", false},
		{"localhost", 0, "", false},
		{"localhost", 65536, "", false},
		{"localhost", 25, "starttls", false},
	}
	for _, tt := range tests {
		_, err := New(tt.host, tt.port, tt.encryption)
		if (err == nil) != tt.ok {
			t.Fatalf("New(%q, %d, %q) error = %v", tt.host, tt.port, tt.encryption, err)
		}
		if err != nil && !errors.Is(err, core.ErrInvalidConfiguration) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestSendAllAccepted(t *testing.T) {
	be, host, port := startServer(t)

	tr, err := New(host, port, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr.SetTimeout(5 * time.Second)

	res, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com", "b@x.com"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Sent != 2 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.msgs) != 1 {
		t.Fatalf("expected one DATA transaction, got %d", len(be.msgs))
	}
	got := be.msgs[0]
	if got.from != "sender@x.com" || len(got.rcpts) != 2 {
		t.Fatalf("unexpected envelope: %+v", got)
	}
	if !strings.Contains(got.data, "Subject: Hello") || !strings.Contains(got.data, "Hi there") {
		t.Fatalf("unexpected data: %q", got.data)
	}
}

func TestSendPartialRejection(t *testing.T) {
	be, host, port := startServer(t, "b@x.com")

	tr, err := New(host, port, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	res, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com", "b@x.com"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Sent != 1 || len(res.Failed) != 1 || res.Failed[0] != "b@x.com" {
		t.Fatalf("unexpected result: %+v", res)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.msgs) != 1 || len(be.msgs[0].rcpts) != 1 || be.msgs[0].rcpts[0] != "a@x.com" {
		t.Fatalf("unexpected delivery: %+v", be.msgs)
	}
}

func TestSendAllRejectedSkipsData(t *testing.T) {
	be, host, port := startServer(t, "a@x.com")

	tr, err := New(host, port, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	res, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Sent != 0 || len(res.Failed) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.msgs) != 0 {
		t.Fatalf("DATA should not be sent when every recipient is rejected")
	}
}

func TestSendConnectError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	tr, err := New("127.0.0.1", port, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr.SetTimeout(time.Second)

	_, err = tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
	if !errors.Is(err, &core.ProviderError{Provider: "smtp", Code: "connect_error"}) {
		t.Fatalf("expected connect error, got %v", err)
	}
}

// authBackend accepts PLAIN credentials user/secret and records what the
// client presented.
type authBackend struct {
	*backend
	username, password string
	sawTLS             bool
}

func (b *authBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &authSession{session: session{b: b.backend}, ab: b, conn: c}, nil
}

type authSession struct {
	session
	ab   *authBackend
	conn *smtp.Conn
}

func (s *authSession) AuthMechanisms() []string { return []string{sasl.Plain} }

func (s *authSession) Auth(string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(_, username, password string) error {
		s.ab.mu.Lock()
		s.ab.username, s.ab.password = username, password
		s.ab.mu.Unlock()
		if username != "user" || password != "secret" {
			return smtp.ErrAuthFailed
		}
		return nil
	}), nil
}

func (s *authSession) Mail(from string, opts *smtp.MailOptions) error {
	_, isTLS := s.conn.TLSConnectionState()
	s.ab.mu.Lock()
	s.ab.sawTLS = isTLS
	s.ab.mu.Unlock()
	return s.session.Mail(from, opts)
}

// serve starts a server for be. With implicitTLS the listener speaks TLS
// from the first byte; otherwise tlsConfig only enables STARTTLS.
func serve(t *testing.T, be smtp.Backend, tlsConfig *tls.Config, implicitTLS bool) (string, int) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	if implicitTLS {
		ln = tls.NewListener(ln, tlsConfig)
	}

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.TLSConfig = tlsConfig
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return addr.IP.String(), addr.Port
}

// selfSigned returns a server TLS config for 127.0.0.1 and a pool trusting it.
func selfSigned(t *testing.T) (*tls.Config, *x509.CertPool) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(cert)

	return &tls.Config{Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}}}, pool
}

func newAuthBackend() *authBackend {
	return &authBackend{backend: &backend{reject: make(map[string]bool)}}
}

func TestSendPlainAuth(t *testing.T) {
	be := newAuthBackend()
	host, port := serve(t, be, nil, false)

	tr, err := New(host, port, EncryptionNone)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	tr.SetUsername("user")
	tr.SetPassword("secret")

	res, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if be.username != "user" || be.password != "secret" {
		t.Fatalf("server received %q/%q", be.username, be.password)
	}
	if len(be.msgs) != 1 {
		t.Fatalf("expected one delivery, got %d", len(be.msgs))
	}
}

func TestSendAuthRejected(t *testing.T) {
	be := newAuthBackend()
	host, port := serve(t, be, nil, false)

	tr, _ := New(host, port, EncryptionNone)
	tr.SetUsername("user")
	tr.SetPassword("wrong")

	_, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
	var pe *core.ProviderError
	if !errors.As(err, &pe) || pe.Code != "auth_error" || pe.StatusCode != 535 {
		t.Fatalf("expected auth error with status 535, got %v", err)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.msgs) != 0 {
		t.Fatalf("message delivered without authentication")
	}
}

func TestSendEncrypted(t *testing.T) {
	tests := []struct {
		encryption  string
		implicitTLS bool
	}{
		{EncryptionTLS, false},
		{EncryptionSSL, true},
	}
	for _, tt := range tests {
		serverTLS, pool := selfSigned(t)
		be := newAuthBackend()
		host, port := serve(t, be, serverTLS, tt.implicitTLS)

		tr, err := New(host, port, tt.encryption)
		if err != nil {
			t.Fatalf("%s: new: %v", tt.encryption, err)
		}
		tr.tlsConfig.RootCAs = pool
		tr.SetTimeout(5 * time.Second)
		tr.SetUsername("user")
		tr.SetPassword("secret")

		res, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
		if err != nil {
			t.Fatalf("%s: send: %v", tt.encryption, err)
		}
		if res.Sent != 1 {
			t.Fatalf("%s: unexpected result: %+v", tt.encryption, res)
		}

		be.mu.Lock()
		sawTLS, user := be.sawTLS, be.username
		be.mu.Unlock()
		if !sawTLS || user != "user" {
			t.Fatalf("%s: tls=%v user=%q", tt.encryption, sawTLS, user)
		}
	}
}

func TestSendUntrustedCertificate(t *testing.T) {
	serverTLS, _ := selfSigned(t)
	host, port := serve(t, newAuthBackend(), serverTLS, false)

	tr, _ := New(host, port, EncryptionTLS)
	tr.SetTimeout(5 * time.Second)

	_, err := tr.Send(context.Background(), newMessage(t, "sender@x.com", "a@x.com"))
	if !errors.Is(err, &core.ProviderError{Provider: "smtp", Code: "connect_error"}) {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestSendWritesHeadersInOrder(t *testing.T) {
	be, host, port := startServer(t)

	m := mail.NewMsg()
	_ = m.From("sender@x.com")
	_ = m.To("a@x.com")
	m.SetBodyString(mail.TypeTextPlain, "Hi")
	msg := core.NewRichMessage(core.Envelope{
		To:   []string{"a@x.com"},
		From: "sender@x.com",
		Headers: []core.Header{
			{Name: "X-Zeta", Value: "1"},
			{Name: "X-Tag", Value: "one"},
			{Name: "X-Tag", Value: "two"},
		},
	}, m)

	tr, _ := New(host, port, EncryptionNone)
	if _, err := tr.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	be.mu.Lock()
	defer be.mu.Unlock()
	if len(be.msgs) != 1 || !strings.Contains(be.msgs[0].data, "X-Zeta: 1\r\nX-Tag: one\r\nX-Tag: two\r\n") {
		t.Fatalf("headers not delivered in order: %+v", be.msgs)
	}
}
