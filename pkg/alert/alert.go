// Package alert delivers high-importance posts to chat and webhook destinations.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/techriver/pkg/river"
)

// maxListed bounds how many posts a chat message links to.
const maxListed = 5

// Notification is the data sent to alert destinations.
type Notification struct {
	Community string             `json:"community"`
	Title     string             `json:"title"`
	Body      string             `json:"body"`
	URL       string             `json:"url"`
	Score     float64            `json:"importance_score"`
	Fallback  bool               `json:"fallback"`
	Posts     []river.ScoredPost `json:"posts"`
}

// NewNotification summarises posts from one community. Posts are expected in
// importance order; the first one headlines the message.
func NewNotification(community string, fallback bool, posts []river.ScoredPost) *Notification {
	n := &Notification{
		Community: community,
		Fallback:  fallback,
		Posts:     posts,
	}
	if len(posts) == 0 {
		n.Title = fmt.Sprintf("r/%s: nothing new", community)
		return n
	}

	top := posts[0]
	n.Title = top.Title
	n.URL = top.URL
	n.Score = top.ImportanceScore
	n.Body = fmt.Sprintf("%d important post(s) in r/%s", len(posts), community)
	if fallback {
		n.Body += " (from related communities)"
	}
	return n
}

func (n *Notification) listed() []river.ScoredPost {
	return n.Posts[:min(len(n.Posts), maxListed)]
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Names lists the configured destinations.
func (m *Manager) Names() []string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Broadcast sends a notification to every notifier. One failing destination
// does not stop the others; all failures are joined.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
