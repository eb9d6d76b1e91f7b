// Package journal records the progress of a plugin install as an ordered list
// of (level, text) messages. One goroutine appends while another polls with
// Drain, receiving only the messages it has not seen yet.
package journal

import (
	"fmt"
	"sync"
)

// Level classifies a journal message.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Terminator is the final message of every install.
const Terminator = "Done!"

// Message is a single journal entry.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s", m.Level, m.Text)
}

// Journal is an append-only message log with a built-in drain cursor.
type Journal struct {
	mu       sync.Mutex
	messages []Message
	cursor   int
	done     bool
	gen      int
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Reset discards all messages and read state and starts a new log with the
// given messages.
func (j *Journal) Reset(first ...Message) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.messages = append([]Message(nil), first...)
	j.cursor = 0
	j.done = false
	j.gen++
}

// Append adds a message.
func (j *Journal) Append(level Level, text string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.messages = append(j.messages, Message{Level: level, Text: text})
}

// Info appends an info message.
func (j *Journal) Info(format string, args ...any) {
	j.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Error appends an error message.
func (j *Journal) Error(format string, args ...any) {
	j.Append(LevelError, fmt.Sprintf(format, args...))
}

// Finish appends the terminator message and marks the journal done.
func (j *Journal) Finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.messages = append(j.messages, Message{Level: LevelInfo, Text: Terminator})
	j.done = true
}

// Done reports whether Finish has been called since the last Reset.
func (j *Journal) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.done
}

// Len returns the number of messages.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.messages)
}

// Messages returns a copy of every message.
func (j *Journal) Messages() []Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Message(nil), j.messages...)
}

// Drain returns the messages appended since the previous Drain and marks them
// read. A second call with no intervening append returns an empty slice.
func (j *Journal) Drain() []Message {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := append([]Message{}, j.messages[j.cursor:]...)
	j.cursor = len(j.messages)
	return out
}

// Cursor returns an independent reader starting at the first message, for
// consumers other than the one using Drain.
func (j *Journal) Cursor() *Cursor {
	j.mu.Lock()
	defer j.mu.Unlock()
	return &Cursor{j: j, gen: j.gen}
}

// Cursor tracks which messages a single consumer has already received.
type Cursor struct {
	j    *Journal
	gen  int
	next int
}

// Next returns the messages this cursor has not yet delivered.
func (c *Cursor) Next() []Message {
	c.j.mu.Lock()
	defer c.j.mu.Unlock()
	if c.gen != c.j.gen {
		c.gen = c.j.gen
		c.next = 0
	}
	out := append([]Message{}, c.j.messages[c.next:]...)
	c.next = len(c.j.messages)
	return out
}
