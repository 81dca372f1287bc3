package telnet

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet command and option bytes (RFC 854, RFC 858).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	NOP  byte = 241
	SE   byte = 240

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
	OptLinemode        byte = 34
)

// DefaultMaxLine is the input line limit used when ConnConfig.MaxLine is unset.
const DefaultMaxLine = 4096

// ErrLineTooLong is returned by ReadLine when a line exceeds the connection's
// limit. The remainder of that line has been discarded.
var ErrLineTooLong = errors.New("telnet: input line too long")

// ConnConfig holds the per-connection limits. Zero timeouts never expire.
type ConnConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// MaxLine bounds a single input line in bytes. <= 0 uses DefaultMaxLine.
	MaxLine int
}

type decodeState uint8

const (
	inData decodeState = iota
	inCommand
	inOption
	inSub
	inSubCommand
)

// decoder strips the command layer out of a client byte stream one byte at
// a time, so a sequence split across reads is still recognised.
type decoder struct {
	state decodeState
}

// feed consumes b and reports the data byte it yields, if any. An escaped
// IAC yields a literal 0xFF.
func (d *decoder) feed(b byte) (byte, bool) {
	switch d.state {
	case inCommand:
		switch b {
		case IAC:
			d.state = inData
			return IAC, true
		case WILL, WONT, DO, DONT:
			d.state = inOption
		case SB:
			d.state = inSub
		default:
			d.state = inData
		}
	case inOption:
		d.state = inData
	case inSub:
		if b == IAC {
			d.state = inSubCommand
		}
	case inSubCommand:
		if b == SE {
			d.state = inData
		} else {
			d.state = inSub
		}
	default:
		if b != IAC {
			return b, true
		}
		d.state = inCommand
	}
	return 0, false
}

// FilterIAC returns input with every Telnet command sequence removed.
//
// Postcondition: len(result) <= len(input).
func FilterIAC(input []byte) []byte {
	var d decoder
	out := make([]byte, 0, len(input))
	for _, b := range input {
		if c, ok := d.feed(b); ok {
			out = append(out, c)
		}
	}
	return out
}

// Conn is a line-oriented Telnet connection for a roll session. Reads come
// from a single session goroutine; writes may come from any goroutine.
type Conn struct {
	raw net.Conn
	in  *bufio.Reader
	dec decoder
	cfg ConnConfig

	wmu sync.Mutex
}

// NewConn wraps raw.
//
// Precondition: raw must be an open connection.
func NewConn(raw net.Conn, cfg ConnConfig) *Conn {
	if cfg.MaxLine <= 0 {
		cfg.MaxLine = DefaultMaxLine
	}
	return &Conn{raw: raw, in: bufio.NewReader(raw), cfg: cfg}
}

// Negotiate offers to suppress go-ahead. Echo stays with the client.
func (c *Conn) Negotiate() error {
	return c.send([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next line without its terminator. CR, LF and CRLF all
// end a line. Command sequences, control characters other than tab, and
// literal 0xFF bytes are dropped. At most MaxLine bytes are kept; a longer
// line is read to its end and reported as ErrLineTooLong.
//
// Postcondition: Returns the line, or an error (io.EOF when the client hung up).
func (c *Conn) ReadLine() (string, error) {
	if c.cfg.ReadTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	}

	line := make([]byte, 0, 64)
	dropped := 0
	for {
		raw, err := c.in.ReadByte()
		if err != nil {
			return string(line), err
		}
		b, ok := c.dec.feed(raw)
		if !ok {
			continue
		}

		if b == '\r' || b == '\n' {
			if b == '\r' {
				c.skipLF()
			}
			if dropped > 0 {
				return "", fmt.Errorf("%w: %d bytes over the %d byte limit", ErrLineTooLong, dropped, c.cfg.MaxLine)
			}
			return string(line), nil
		}
		if !printable(b) {
			continue
		}
		if len(line) == c.cfg.MaxLine {
			dropped++
			continue
		}
		line = append(line, b)
	}
}

// skipLF consumes the LF of a CRLF pair when it has already arrived.
func (c *Conn) skipLF() {
	if c.in.Buffered() == 0 {
		return
	}
	if next, err := c.in.Peek(1); err == nil && next[0] == '\n' {
		_, _ = c.in.ReadByte()
	}
}

func printable(b byte) bool {
	return b == '\t' || (b >= ' ' && b != IAC)
}

func (c *Conn) send(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	if c.cfg.WriteTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	_, err := c.raw.Write(p)
	return err
}

// Write sends p unchanged.
func (c *Conn) Write(p []byte) error {
	return c.send(p)
}

// WritePrompt sends prompt with no line terminator.
func (c *Conn) WritePrompt(prompt string) error {
	return c.send([]byte(prompt))
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.send([]byte(text + "\r\n"))
}

// WriteLines sends multi-line text with every line ending in CRLF, in one
// write. A trailing newline does not add a blank line; empty text sends
// nothing.
func (c *Conn) WriteLines(text string) error {
	text = strings.TrimSuffix(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if text == "" {
		return nil
	}
	return c.send([]byte(strings.ReplaceAll(text, "\n", "\r\n") + "\r\n"))
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the client's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
