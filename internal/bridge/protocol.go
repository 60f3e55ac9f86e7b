package bridge

import (
	"errors"
	"fmt"
	"strings"
)

// Channel is the message handler name the page posts to
const Channel = "duckDuckDo"

var (
	ErrEmptyMessage    = errors.New("empty bridge message")
	ErrUnknownCommand  = errors.New("unknown bridge command")
	ErrInvalidArgument = errors.New("invalid bridge argument")
)

// CommandKind names a page → host command
type CommandKind string

const (
	CommandAppLoaded       CommandKind = "appLoaded"
	CommandPageLoaded      CommandKind = "pageLoaded"
	CommandChangeUIVersion CommandKind = "changeUIVersion"
)

var knownCommands = map[CommandKind]bool{
	CommandAppLoaded:       true,
	CommandPageLoaded:      true,
	CommandChangeUIVersion: true,
}

// Known reports whether k is a recognised command
func (k CommandKind) Known() bool {
	return knownCommands[k]
}

// Message is one parsed bridge payload
type Message struct {
	Command CommandKind
	Args    []string
}

// String encodes the message in wire format
func (m Message) String() string {
	if len(m.Args) == 0 {
		return string(m.Command)
	}
	return string(m.Command) + " " + strings.Join(m.Args, " ")
}

// Arg returns the i-th argument or "" when absent
func (m Message) Arg(i int) string {
	if i < 0 || i >= len(m.Args) {
		return ""
	}
	return m.Args[i]
}

// Parse decodes a wire payload. An unknown command yields ErrUnknownCommand
// together with the parsed message so callers can log the name.
func Parse(payload string) (Message, error) {
	tokens := strings.Fields(payload)
	if len(tokens) == 0 {
		return Message{}, ErrEmptyMessage
	}

	msg := Message{Command: CommandKind(tokens[0])}
	if len(tokens) > 1 {
		msg.Args = tokens[1:]
	}

	if !msg.Command.Known() {
		return msg, fmt.Errorf("%w: %q", ErrUnknownCommand, tokens[0])
	}
	return msg, nil
}

// NewMessage builds a message for host-side emission (readiness signals)
func NewMessage(cmd CommandKind, args ...string) Message {
	return Message{Command: cmd, Args: args}
}
