// Package memory implements an in-process event publisher for tests and
// single-node deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// Publisher records published events in memory.
type Publisher struct {
	mu     sync.Mutex
	nextID int
	events map[string][]seo.CrawlCompleted
}

// New creates an empty in-memory publisher.
func New() *Publisher {
	return &Publisher{events: make(map[string][]seo.CrawlCompleted)}
}

// Publish appends the event to the topic's history and returns a
// monotonically increasing message ID.
func (p *Publisher) Publish(_ context.Context, topic string, event seo.CrawlCompleted) (string, error) {
	if topic == "" {
		return "", fmt.Errorf("topic is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.events[topic] = append(p.events[topic], event)
	return fmt.Sprintf("mem-%d", p.nextID), nil
}

// Events returns a copy of everything published to topic.
func (p *Publisher) Events(topic string) []seo.CrawlCompleted {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]seo.CrawlCompleted, len(p.events[topic]))
	copy(out, p.events[topic])
	return out
}
