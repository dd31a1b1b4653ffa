package mailing

import (
	"bufio"
	"context"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal plaintext SMTP server that records one message per
// connection.
type fakeSMTP struct {
	ln       net.Listener
	mu       sync.Mutex
	rcpts    []string
	messages []string
	silent   bool
}

func startFakeSMTP(t *testing.T, silent bool) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeSMTP{ln: ln, silent: silent}
	t.Cleanup(func() { ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSMTP) port() int { return s.ln.Addr().(*net.TCPAddr).Port }

func (s *fakeSMTP) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSMTP) handle(conn net.Conn) {
	defer conn.Close()
	if s.silent {
		time.Sleep(2 * time.Second)
		return
	}
	tp := textproto.NewConn(conn)
	tp.PrintfLine("220 fake ESMTP")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			tp.PrintfLine("250-fake")
			tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "MAIL FROM"):
			tp.PrintfLine("250 ok")
		case strings.HasPrefix(cmd, "RCPT TO"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, line)
			s.mu.Unlock()
			tp.PrintfLine("250 ok")
		case cmd == "DATA":
			tp.PrintfLine("354 go ahead")
			body, err := readData(tp.R)
			if err != nil {
				return
			}
			s.mu.Lock()
			s.messages = append(s.messages, body)
			s.mu.Unlock()
			tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			tp.PrintfLine("221 bye")
			return
		default:
			tp.PrintfLine("502 not implemented")
		}
	}
}

func readData(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		if line == ".\r\n" {
			return b.String(), nil
		}
		b.WriteString(line)
	}
}

func TestSMTPTransportDeliver(t *testing.T) {
	srv := startFakeSMTP(t, false)
	tr := NewSMTPTransport(SMTPConfig{Host: "127.0.0.1", Port: srv.port()})

	err := tr.Deliver(context.Background(), Envelope{
		FromEmail: "it@corp.example",
		FromName:  "IT Support",
		To:        "carol@example.com",
		Subject:   "Vérifiez votre compte",
		HTML:      "<p>bonjour</p>",
	})
	require.NoError(t, err)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Len(t, srv.messages, 1)
	assert.Contains(t, srv.rcpts[0], "carol@example.com")
	msg := srv.messages[0]
	assert.Contains(t, msg, "To: carol@example.com\r\n")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, msg, "<p>bonjour</p>")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
}

func TestSMTPTransportRequireTLS(t *testing.T) {
	srv := startFakeSMTP(t, false)
	tr := NewSMTPTransport(SMTPConfig{Host: "127.0.0.1", Port: srv.port(), RequireTLS: true})

	err := tr.Deliver(context.Background(), Envelope{FromEmail: "a@b.c", To: "d@e.f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STARTTLS")
}

func TestSMTPTransportHonoursContextDeadline(t *testing.T) {
	srv := startFakeSMTP(t, true)
	tr := NewSMTPTransport(SMTPConfig{Host: "127.0.0.1", Port: srv.port()})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.Deliver(ctx, Envelope{FromEmail: "a@b.c", To: "d@e.f"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSMTPTransportConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	tr := NewSMTPTransport(SMTPConfig{Host: "127.0.0.1", Port: port})
	err = tr.Deliver(context.Background(), Envelope{FromEmail: "a@b.c", To: "d@e.f"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:"+strconv.Itoa(port))
}
