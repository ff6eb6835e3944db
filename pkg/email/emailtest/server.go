// Package emailtest runs a minimal in-process SMTP server for tests.
//
// It speaks just enough ESMTP for a client to deliver plain messages
// without TLS, accepts any AUTH PLAIN credentials, and records what it
// receives.
package emailtest

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Message is one accepted mail transaction.
type Message struct {
	From string
	To   []string
	Data string
}

// Server is a fake SMTP server listening on a random loopback port.
type Server struct {
	ln       net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	messages []Message
	conns    map[net.Conn]struct{}
	users    []string
	reject   atomic.Bool
}

// NewServer starts a server and registers its shutdown with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("emailtest: listen: %v", err)
	}

	s := &Server{ln: ln, conns: make(map[net.Conn]struct{})}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Host returns the listening address host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// Messages returns a copy of every message accepted so far.
func (s *Server) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

// Users returns the usernames that authenticated, in order.
func (s *Server) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.users...)
}

// RejectMessages makes the server answer 554 at the end of DATA.
func (s *Server) RejectMessages(reject bool) {
	s.reject.Store(reject)
}

// Close stops accepting connections and drops open sessions.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, conn)
				s.mu.Unlock()
				_ = conn.Close()
			}()
			s.session(conn)
		}()
	}
}

func (s *Server) session(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	reply := func(lines ...string) bool {
		for _, l := range lines {
			if _, err := w.WriteString(l + "\r\n"); err != nil {
				return false
			}
		}
		return w.Flush() == nil
	}

	if !reply("220 emailtest ESMTP ready") {
		return
	}

	var cur Message
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		cmd := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			reply("250-emailtest", "250-8BITMIME", "250-AUTH PLAIN", "250 PIPELINING")
		case strings.HasPrefix(cmd, "HELO"):
			reply("250 emailtest")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			cur = Message{From: address(line)}
			reply("250 2.1.0 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			cur.To = append(cur.To, address(line))
			reply("250 2.1.5 OK")
		case cmd == "DATA":
			if !reply("354 end data with <CR><LF>.<CR><LF>") {
				return
			}
			data, ok := readData(r)
			if !ok {
				return
			}
			if s.reject.Load() {
				reply("554 5.7.1 message rejected")
				cur = Message{}
				continue
			}
			cur.Data = data
			s.mu.Lock()
			s.messages = append(s.messages, cur)
			s.mu.Unlock()
			cur = Message{}
			reply("250 2.0.0 queued")
		case strings.HasPrefix(cmd, "AUTH PLAIN"):
			resp := strings.TrimSpace(line[len("AUTH PLAIN"):])
			if resp == "" {
				if !reply("334 ") {
					return
				}
				if resp, err = r.ReadString('\n'); err != nil {
					return
				}
				resp = strings.TrimSpace(resp)
			}
			user, ok := plainUser(resp)
			if !ok {
				reply("501 5.5.2 malformed AUTH PLAIN response")
				continue
			}
			s.mu.Lock()
			s.users = append(s.users, user)
			s.mu.Unlock()
			reply("235 2.7.0 authentication successful")
		case cmd == "RSET":
			cur = Message{}
			reply("250 2.0.0 OK")
		case cmd == "QUIT":
			reply("221 2.0.0 bye")
			return
		default:
			reply("250 OK")
		}
	}
}

func readData(r *bufio.Reader) (string, bool) {
	var b strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", false
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			return b.String(), true
		}
		if strings.HasPrefix(trimmed, "..") {
			trimmed = trimmed[1:]
		}
		b.WriteString(trimmed)
		b.WriteString("\n")
	}
}

// plainUser decodes "authzid\x00user\x00password".
func plainUser(resp string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(resp)
	if err != nil {
		return "", false
	}
	parts := bytes.Split(raw, []byte{0})
	if len(parts) != 3 {
		return "", false
	}
	return string(parts[1]), true
}

func address(line string) string {
	start := strings.IndexByte(line, '<')
	end := strings.IndexByte(line, '>')
	if start < 0 || end <= start {
		return ""
	}
	return line[start+1 : end]
}
