// Package testutil provides helpers shared by integration tests.
package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/diceroll/internal/frontend/telnet"
)

// TelnetClient is a simple Telnet test client for roll session tests.
type TelnetClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}
}

// ReadUntil reads until the accumulated output ends with suffix or timeout
// occurs. It returns everything read, suffix included, with Telnet
// negotiation bytes removed.
//
// Precondition: suffix must be non-empty.
// Postcondition: Returns output ending in suffix, or fails the test.
func (c *TelnetClient) ReadUntil(suffix string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var buf []byte
	for !strings.HasSuffix(string(buf), suffix) {
		b, err := c.reader.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", suffix, buf, err)
		}
		buf = append(buf, b)
	}
	return string(telnet.FilterIAC(buf))
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Exchange sends text and returns the response up to the next prompt, with
// ANSI styling stripped, the prompt removed and \r\n folded to \n.
func (c *TelnetClient) Exchange(text, prompt string) string {
	c.t.Helper()
	c.Send(text)
	return c.Plain(c.ReadUntil(prompt, 5*time.Second), prompt)
}

// Plain strips ANSI styling and the trailing prompt from out and folds \r\n to \n.
func (c *TelnetClient) Plain(out, prompt string) string {
	out = strings.TrimSuffix(out, prompt)
	return strings.ReplaceAll(telnet.StripANSI(out), "\r\n", "\n")
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}
