package pubsub

import (
	"context"
	"errors"
	"sync"

	"github.com/sideseat/sideseat/internal/logger"
)

var errShuttingDown = errors.New("pubsub: manager is shutting down")

// Manager owns one Bridge per stream and the process-wide shutdown signal
// that stops all of them (spec §5 "a process-wide shutdown signal stops
// all bridges").
type Manager struct {
	client   streamClient
	consumer string
	log      logger.Logger

	mu       sync.Mutex
	bridges  map[string]*Bridge
	shutdown bool
}

// NewManager builds a Manager. consumer identifies this process within
// every consumer group it joins.
func NewManager(client streamClient, consumer string, log logger.Logger) *Manager {
	return &Manager{client: client, consumer: consumer, log: log, bridges: map[string]*Bridge{}}
}

// Client returns the underlying Redis client, for building a Publisher
// that shares the Manager's connection.
func (m *Manager) Client() streamClient {
	return m.client
}

// Subscribe attaches to (stream, group), creating its Bridge on first use
// and replacing it if a prior one already fully stopped.
func (m *Manager) Subscribe(ctx context.Context, stream, group string) (<-chan Message, func(), error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, nil, errShuttingDown
	}
	b, ok := m.bridges[stream]
	if !ok || b.State() == StateStopped {
		b = NewBridge(m.client, stream, group, m.consumer, m.log)
		m.bridges[stream] = b
	}
	m.mu.Unlock()

	return b.Subscribe(ctx)
}

// Shutdown stops every bridge the manager owns. Safe to call more than
// once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	bridges := make([]*Bridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		bridges = append(bridges, b)
	}
	m.shutdown = true
	m.mu.Unlock()

	for _, b := range bridges {
		b.Shutdown()
	}
}
