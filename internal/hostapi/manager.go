// Package hostapi exposes editor sessions to a host application over HTTP.
package hostapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/example/siteplan/internal/editor"
	"github.com/example/siteplan/internal/export"
)

// ErrNoSession is returned for an unknown session id.
var ErrNoSession = errors.New("no such session")

// maxErrors bounds the load errors kept per session.
const maxErrors = 20

// Sink records what a session reports to its host.
type Sink interface {
	SaveElements(ctx context.Context, sessionID string, elements []export.DrawingElement) (int64, error)
	SaveMeasurement(ctx context.Context, sessionID string, m export.Measurement) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type entry struct {
	session *editor.Session

	mu     sync.Mutex
	errors []string
}

func (e *entry) addError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, err.Error())
	if len(e.errors) > maxErrors {
		e.errors = e.errors[len(e.errors)-maxErrors:]
	}
}

func (e *entry) recentErrors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.errors...)
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry

	opts []editor.Option
	sink Sink
	log  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionOptions applies opts to every session the manager creates.
func WithSessionOptions(opts ...editor.Option) ManagerOption {
	return func(m *Manager) { m.opts = append(m.opts, opts...) }
}

// WithSink records element lists and measurements in s.
func WithSink(s Sink) ManagerOption { return func(m *Manager) { m.sink = s } }

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) ManagerOption { return func(m *Manager) { m.log = l } }

// NewManager returns an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{sessions: make(map[string]*entry)}
	for _, o := range opts {
		o(m)
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	return m
}

// Create starts a session and returns its id. extra options apply after
// the manager's own.
func (m *Manager) Create(extra ...editor.Option) (string, *editor.Session, error) {
	id := uuid.NewString()
	opts := append(append([]editor.Option{}, m.opts...), extra...)
	s, err := editor.New(opts...)
	if err != nil {
		return "", nil, fmt.Errorf("new session: %w", err)
	}
	e := &entry{session: s}
	s.OnError(func(err error) {
		e.addError(err)
		m.log.Warn("session load failed", "session", id, "err", err)
	})
	if m.sink != nil {
		s.OnChange(func(els []export.DrawingElement) {
			if _, err := m.sink.SaveElements(context.Background(), id, els); err != nil {
				m.log.Error("record elements", "session", id, "err", err)
			}
		})
		s.OnMeasure(func(ms export.Measurement) {
			if err := m.sink.SaveMeasurement(context.Background(), id, ms); err != nil {
				m.log.Error("record measurement", "session", id, "err", err)
			}
		})
	}

	m.mu.Lock()
	m.sessions[id] = e
	m.mu.Unlock()
	m.log.Info("session created", "session", id)
	return id, s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*editor.Session, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

func (m *Manager) entry(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return e, nil
}

// Errors returns the most recent load errors of a session.
func (m *Manager) Errors(id string) ([]string, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	return e.recentErrors(), nil
}

// Close ends a session. When purge is set its records are removed from
// the sink too.
func (m *Manager) Close(ctx context.Context, id string, purge bool) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	if err := e.session.Close(); err != nil {
		return err
	}
	m.log.Info("session closed", "session", id)
	if purge && m.sink != nil {
		return m.sink.DeleteSession(ctx, id)
	}
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()
	for _, e := range all {
		_ = e.session.Close()
	}
}
