// Package chat defines the chat-source boundary.
//
// Platform listeners live outside this system; their only job is to emit
// (platform, user, text) events into the dispatcher.
package chat

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Message is a raw chat event from a platform.
type Message struct {
	Platform string
	User     string
	Text     string
}

// HandlerFunc receives chat messages from a source.
type HandlerFunc func(msg Message)

// Source emits chat messages until the context is canceled.
type Source interface {
	Name() string
	Listen(ctx context.Context, handle HandlerFunc) error
}

// ConsoleSource reads operator commands line by line, typically from stdin.
type ConsoleSource struct {
	platform string
	reader   io.Reader
}

// NewConsoleSource creates a console source reporting the given platform name.
func NewConsoleSource(platform string, reader io.Reader) *ConsoleSource {
	return &ConsoleSource{platform: platform, reader: reader}
}

// Name returns the platform name.
func (s *ConsoleSource) Name() string {
	return s.platform
}

// Listen reads lines until EOF or context cancellation. The console user is
// the platform itself.
func (s *ConsoleSource) Listen(ctx context.Context, handle HandlerFunc) error {
	scanner := bufio.NewScanner(s.reader)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		handle(Message{Platform: s.platform, User: s.platform, Text: line})
	}
	return scanner.Err()
}
