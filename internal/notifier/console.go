// Package notifier holds the MessageSender implementations.
package notifier

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/julianstephens/routinely/internal/models"
)

// ConsoleSender writes one line per reminder.
type ConsoleSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSender(w io.Writer) *ConsoleSender {
	return &ConsoleSender{w: w}
}

func (c *ConsoleSender) Send(_ context.Context, recipientID string, r models.Reminder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("[%s %s] %s %s: %s", r.Date, r.Time, recipientID, r.Kind, r.Name)
	if r.Description != "" {
		line += " - " + r.Description
	}
	if payloads := r.ActionPayloads(); len(payloads) > 0 {
		line += " (" + strings.Join(payloads, ", ") + ")"
	}
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// Text renders a reminder as a single plain sentence for senders that only
// carry text.
func Text(r models.Reminder) string {
	if r.Kind == models.NotificationTask {
		return fmt.Sprintf("Task due at %s: %s", r.Time, r.Name)
	}
	return fmt.Sprintf("Time for %s (%s)", r.Name, r.Time)
}
