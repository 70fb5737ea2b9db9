package server

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/celerix-dev/celerix-profiles/pkg/logging"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
	"github.com/celerix-dev/celerix-profiles/pkg/sdk"
)

// maxLineSize bounds a single command, including a PUT payload.
const maxLineSize = 4 << 20

type Router struct {
	store sdk.ProfileStore
	cert  *tls.Certificate
	log   logging.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
}

func NewRouter(s sdk.ProfileStore) *Router {
	return &Router{store: s, log: logging.NoOpLogger{}}
}

// SetCertificate sets the TLS certificate for the router
func (r *Router) SetCertificate(cert tls.Certificate) {
	r.cert = &cert
}

// SetLogger sets the logger for connection errors.
func (r *Router) SetLogger(l logging.Logger) {
	if l != nil {
		r.log = l
	}
}

// Addr returns the listening address, or nil before Listen has bound.
func (r *Router) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Listen starts the TCP server and blocks until Stop is called.
func (r *Router) Listen(port string) error {
	var listener net.Listener
	var err error

	if r.cert != nil {
		config := &tls.Config{Certificates: []tls.Certificate{*r.cert}}
		listener, err = tls.Listen("tcp", ":"+port, config)
	} else {
		listener, err = net.Listen("tcp", ":"+port)
	}
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.listener = listener
	r.mu.Unlock()
	defer listener.Close()

	semaphore := make(chan struct{}, 100) // Max 100 concurrent connections

	for {
		conn, err := listener.Accept()
		if err != nil {
			r.mu.Lock()
			closed := r.closed
			r.mu.Unlock()
			if closed || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		// Set aggressive timeouts for light traffic to prevent resource exhaustion
		conn.SetDeadline(time.Now().Add(5 * time.Minute))

		go func(c net.Conn) {
			semaphore <- struct{}{}
			defer func() {
				<-semaphore
				c.Close()
			}()
			r.handleConnection(c)
		}(conn)
	}
}

// Stop closes the listener; Listen returns once it notices.
func (r *Router) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.listener == nil {
		return nil
	}
	return r.listener.Close()
}

func (r *Router) handleConnection(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for {
		// Set a deadline for the next command
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				r.log.Debug("connection closed", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return // Connection closed or timeout
		}

		line := strings.TrimSpace(scanner.Text())
		parts := strings.Fields(line)
		if len(parts) < 1 {
			continue
		}

		command := strings.ToUpper(parts[0])

		switch command {
		case "GET":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: GET <profile>")
				continue
			}
			doc, err := r.store.Get(parts[1])
			r.reply(conn, doc, err)

		case "PUT":
			if len(parts) < 3 {
				fmt.Fprintln(conn, "ERR usage: PUT <profile> <json>")
				continue
			}
			// The document is everything after the profile ID
			doc, ok := parseDocument(conn, afterFields(line, 2))
			if !ok {
				continue
			}
			r.replyOK(conn, r.store.Put(parts[1], doc))

		case "NEW":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: NEW <json>")
				continue
			}
			doc, ok := parseDocument(conn, afterFields(line, 1))
			if !ok {
				continue
			}
			id, err := r.store.Create(doc)
			if err != nil {
				writeErr(conn, err)
			} else {
				fmt.Fprintln(conn, "OK", id)
			}

		case "DEL":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: DEL <profile>")
				continue
			}
			r.replyOK(conn, r.store.Delete(parts[1]))

		case "LIST":
			list, err := r.store.List()
			if list == nil {
				list = []string{}
			}
			r.reply(conn, list, err)

		case "DUMP":
			data, err := r.store.Dump()
			r.reply(conn, data, err)

		case "MOVE":
			if len(parts) < 3 {
				fmt.Fprintln(conn, "ERR usage: MOVE <src> <dst>")
				continue
			}
			r.replyOK(conn, r.store.Move(parts[1], parts[2]))

		case "RESTORE":
			if len(parts) < 2 {
				fmt.Fprintln(conn, "ERR usage: RESTORE <profile>")
				continue
			}
			r.replyOK(conn, r.store.Restore(parts[1]))

		case "PING":
			fmt.Fprintln(conn, "PONG")

		case "QUIT":
			return

		default:
			fmt.Fprintln(conn, "ERR unknown command", command)
		}
	}
}

// reply sends "OK <json>" or "ERR <message>".
func (r *Router) reply(conn net.Conn, val any, err error) {
	if err != nil {
		writeErr(conn, err)
		return
	}
	res, err := json.Marshal(val)
	if err != nil {
		r.log.Error("failed to encode reply", "error", err)
		fmt.Fprintln(conn, "ERR internal error")
		return
	}
	fmt.Fprintln(conn, "OK", string(res))
}

func (r *Router) replyOK(conn net.Conn, err error) {
	if err != nil {
		writeErr(conn, err)
		return
	}
	fmt.Fprintln(conn, "OK")
}

// writeErr keeps multi-line (joined) errors on a single protocol line.
func writeErr(conn net.Conn, err error) {
	fmt.Fprintln(conn, "ERR", strings.ReplaceAll(err.Error(), "\n", "; "))
}

// afterFields returns line with its first n whitespace-separated fields removed,
// leaving the spacing inside the remainder intact.
func afterFields(line string, n int) string {
	rest := line
	for i := 0; i < n; i++ {
		rest = strings.TrimLeft(rest, " \t")
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = rest[idx:]
	}
	return strings.TrimSpace(rest)
}

func parseDocument(conn net.Conn, raw string) (schema.Document, bool) {
	var doc schema.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		fmt.Fprintln(conn, "ERR invalid json object")
		return nil, false
	}
	return doc, true
}
