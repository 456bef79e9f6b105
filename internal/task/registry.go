package task

import (
	"fmt"
	"sync"
	"time"
)

// Registry stores tasks by identifier. Records are replaced as a whole,
// readers never see a partially updated task.
type Registry interface {
	Create(t Task) error
	Update(t Task) error
	Get(id string) (Task, error)
	// Sweep removes terminal tasks not touched for the retention period
	// and returns how many were removed.
	Sweep(now time.Time) int
}

type Memory struct {
	mx        sync.RWMutex
	tasks     map[string]Task
	retention time.Duration
	now       func() time.Time
}

type Option func(*Memory)

func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(retention time.Duration, opts ...Option) *Memory {
	m := &Memory{
		tasks:     make(map[string]Task),
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Create(t Task) error {
	if t.ID == "" {
		return fmt.Errorf("create: empty task id")
	}
	now := m.now().UTC()
	t = t.clone()
	t.CreatedAt = now
	t.UpdatedAt = now

	m.mx.Lock()
	defer m.mx.Unlock()
	if _, ok := m.tasks[t.ID]; ok {
		return fmt.Errorf("create %s: %w", t.ID, ErrExists)
	}
	m.tasks[t.ID] = t
	return nil
}

// Update replaces the stored task. A task which reached a terminal status
// can't be updated anymore.
func (m *Memory) Update(t Task) error {
	t = t.clone()
	t.Progress = min(100, max(0, t.Progress))

	m.mx.Lock()
	defer m.mx.Unlock()
	prev, ok := m.tasks[t.ID]
	if !ok {
		return fmt.Errorf("update %s: %w", t.ID, ErrNotFound)
	}
	if prev.Status.Terminal() {
		return fmt.Errorf("update %s: %w", t.ID, ErrFinished)
	}
	t.CreatedAt = prev.CreatedAt
	t.UpdatedAt = m.now().UTC()
	m.tasks[t.ID] = t
	return nil
}

func (m *Memory) Get(id string) (Task, error) {
	m.mx.RLock()
	defer m.mx.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return t.clone(), nil
}

func (m *Memory) Sweep(now time.Time) int {
	m.mx.Lock()
	defer m.mx.Unlock()
	removed := 0
	for id, t := range m.tasks {
		if t.Status.Terminal() && now.Sub(t.UpdatedAt) >= m.retention {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored tasks.
func (m *Memory) Len() int {
	m.mx.RLock()
	defer m.mx.RUnlock()
	return len(m.tasks)
}
