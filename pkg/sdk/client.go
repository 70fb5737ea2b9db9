// Package sdk provides the client-side library for interacting with Celerix profiles.
// It supports both remote connections via TCP/TLS and local embedded mode.
package sdk

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
)

// Client is a remote client for the profile daemon.
// It implements the ProfileStore interface.
type Client struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex // Protects concurrent access to the connection
}

// Connect establishes a TLS-encrypted connection to a remote profile daemon.
// If CELERIX_DISABLE_TLS is set to "true", it falls back to plain TCP.
func Connect(addr string) (*Client, error) {
	c := &Client{addr: addr}
	if err := c.reconnect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) reconnect() error {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	var conn net.Conn
	var err error

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}

	if os.Getenv("CELERIX_DISABLE_TLS") == "true" {
		conn, err = dialer.Dial("tcp", c.addr)
	} else {
		config := &tls.Config{
			InsecureSkipVerify: true, // We use self-signed certs for internal traffic
		}
		conn, err = tls.DialWithDialer(dialer, "tcp", c.addr, config)
	}

	if err != nil {
		return err
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Internal helper for TCP communication
func (c *Client) sendAndReceive(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	var resp string

	// Try up to 3 times with backoff
	for i := 0; i < 3; i++ {
		// Ensure we have a connection
		if c.conn == nil {
			if reconnectErr := c.reconnect(); reconnectErr != nil {
				err = fmt.Errorf("reconnect failed: %w", reconnectErr)
				time.Sleep(time.Duration(i*100) * time.Millisecond)
				continue
			}
		}

		// Set deadlines for the operation
		c.conn.SetDeadline(time.Now().Add(30 * time.Second))

		_, err = fmt.Fprint(c.conn, cmd+"\n")
		if err == nil {
			resp, err = c.reader.ReadString('\n')
			if err == nil {
				resp = strings.TrimSpace(resp)
				if strings.HasPrefix(resp, "ERR") {
					return "", remoteError(strings.TrimPrefix(resp, "ERR "))
				}
				return resp, nil
			}

			// The daemon may already have applied the command.
			if !idempotent(cmd) {
				c.conn.Close()
				c.conn = nil
				return "", fmt.Errorf("no reply to %s, outcome unknown: %w", verb(cmd), err)
			}
		}

		// If we got here, there was an error communicating.
		fmt.Fprintf(os.Stderr, "[Celerix SDK] Attempt %d failed: %v. Reconnecting...\n", i+1, err)

		// Force a reconnect on the next iteration
		if closeErr := c.reconnect(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "[Celerix SDK] Reconnect attempt failed: %v\n", closeErr)
		}

		time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
	}

	return "", fmt.Errorf("failed after 3 attempts. last error: %v", err)
}

func verb(cmd string) string {
	name, _, _ := strings.Cut(cmd, " ")
	return name
}

// idempotent reports whether cmd can be sent again after its reply was lost.
func idempotent(cmd string) bool {
	switch verb(cmd) {
	case "GET", "PUT", "LIST", "DUMP", "RESTORE", "PING":
		return true
	}
	return false
}

// checkID rejects IDs the store would refuse and IDs the line protocol
// would split.
func checkID(ids ...string) error {
	for _, id := range ids {
		if err := engine.ValidateProfileID(id); err != nil {
			return err
		}
		if strings.ContainsFunc(id, unicode.IsSpace) {
			return fmt.Errorf("%w: %q contains whitespace", engine.ErrInvalidProfileID, id)
		}
	}
	return nil
}

// remoteSentinels are the engine errors a daemon reply can be mapped back to.
var remoteSentinels = []error{
	engine.ErrNoProfileID,
	engine.ErrInvalidProfileID,
	engine.ErrProfileNotFound,
	engine.ErrProfileExists,
	engine.ErrVerification,
	engine.ErrBackupUnavailable,
	engine.ErrSerialize,
	engine.ErrDeserialize,
	engine.ErrIO,
}

// remoteError rebuilds a wrapped sentinel from an error message so callers
// can use errors.Is against the engine errors.
func remoteError(msg string) error {
	for _, sentinel := range remoteSentinels {
		text := sentinel.Error()
		if msg == text {
			return sentinel
		}
		if strings.HasPrefix(msg, text+":") || strings.HasPrefix(msg, text+";") {
			return fmt.Errorf("%w%s", sentinel, msg[len(text):])
		}
	}
	return errors.New(msg)
}

func payload(resp string) string {
	return strings.TrimPrefix(resp, "OK ")
}

func (c *Client) Get(profileID string) (schema.Document, error) {
	if err := checkID(profileID); err != nil {
		return nil, err
	}
	resp, err := c.sendAndReceive(fmt.Sprintf("GET %s", profileID))
	if err != nil {
		return nil, err
	}
	var doc schema.Document
	err = json.Unmarshal([]byte(payload(resp)), &doc)
	return doc, err
}

func (c *Client) Put(profileID string, doc schema.Document) error {
	if err := checkID(profileID); err != nil {
		return err
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = c.sendAndReceive(fmt.Sprintf("PUT %s %s", profileID, string(jsonData)))
	return err
}

func (c *Client) Create(doc schema.Document) (string, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	resp, err := c.sendAndReceive(fmt.Sprintf("NEW %s", string(jsonData)))
	if err != nil {
		return "", err
	}
	return payload(resp), nil
}

func (c *Client) Delete(profileID string) error {
	if err := checkID(profileID); err != nil {
		return err
	}
	_, err := c.sendAndReceive(fmt.Sprintf("DEL %s", profileID))
	return err
}

func (c *Client) List() ([]string, error) {
	resp, err := c.sendAndReceive("LIST")
	if err != nil {
		return nil, err
	}
	var list []string
	err = json.Unmarshal([]byte(payload(resp)), &list)
	return list, err
}

func (c *Client) Dump() (map[string]schema.Document, error) {
	resp, err := c.sendAndReceive("DUMP")
	if err != nil {
		return nil, err
	}
	var out map[string]schema.Document
	err = json.Unmarshal([]byte(payload(resp)), &out)
	return out, err
}

func (c *Client) Move(srcProfile, dstProfile string) error {
	if err := checkID(srcProfile, dstProfile); err != nil {
		return err
	}
	_, err := c.sendAndReceive(fmt.Sprintf("MOVE %s %s", srcProfile, dstProfile))
	return err
}

func (c *Client) Restore(profileID string) error {
	if err := checkID(profileID); err != nil {
		return err
	}
	_, err := c.sendAndReceive(fmt.Sprintf("RESTORE %s", profileID))
	return err
}

// Ping checks that the daemon answers.
func (c *Client) Ping() error {
	resp, err := c.sendAndReceive("PING")
	if err != nil {
		return err
	}
	if resp != "PONG" {
		return fmt.Errorf("unexpected ping reply %q", resp)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	fmt.Fprintln(c.conn, "QUIT")
	return c.conn.Close()
}

// --- Generics Support ---

// Get retrieves a profile as a typed record.
// It handles the JSON conversion from the schemaless document automatically.
func Get[T any](s ProfileReader, profileID string) (T, error) {
	var target T
	doc, err := s.Get(profileID)
	if err != nil {
		return target, err
	}

	bytes, err := json.Marshal(doc)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(bytes, &target)
	return target, err
}

// Put stores a typed record. T must encode to a JSON object.
func Put[T any](s ProfileWriter, profileID string, val T) error {
	bytes, err := json.Marshal(val)
	if err != nil {
		return err
	}
	var doc schema.Document
	if err := json.Unmarshal(bytes, &doc); err != nil {
		return fmt.Errorf("profile value must encode to a JSON object: %w", err)
	}
	return s.Put(profileID, doc)
}
