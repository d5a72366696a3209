package message

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// envelope is the JSON-lines wire form of a Message.
type envelope struct {
	Name       string         `json:"name"`
	Target     []string       `json:"target,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Encoder writes messages as JSON lines.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates a new message encoder.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		w: bufio.NewWriter(w),
	}
}

// Encode writes msg followed by a newline and flushes.
func (e *Encoder) Encode(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if msg.Name() == "" {
		return fmt.Errorf("message name is required")
	}

	data, err := json.Marshal(envelope{
		Name:       msg.name,
		Target:     msg.target,
		Parameters: msg.params,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", msg.Name(), err)
	}

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return nil
}

// Decoder reads JSON-lines messages.
type Decoder struct {
	r *bufio.Scanner
}

// NewDecoder creates a new message decoder.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)
	return &Decoder{r: scanner}
}

// Decode reads the next message. Blank lines are skipped; io.EOF marks the
// end of input.
func (d *Decoder) Decode() (*Message, error) {
	for d.r.Scan() {
		line := d.r.Bytes()
		if len(line) == 0 {
			continue
		}

		var env envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		if env.Name == "" {
			return nil, fmt.Errorf("invalid message: name is required")
		}
		return New(env.Name, env.Target, env.Parameters), nil
	}
	if err := d.r.Err(); err != nil {
		return nil, fmt.Errorf("scan error: %w", err)
	}
	return nil, io.EOF
}
