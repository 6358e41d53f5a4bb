// Package stats computes aggregate views over the task graph: totals and
// completion rates per section, and a recent-activity feed driven by
// recorded task changes. Computed statistics are cached briefly so bursts
// of requests do not recompute the same snapshot.
package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vremyavnikuda/anchora/internal/graph"
)

// Overview is the high-level roll-up across all sections.
type Overview struct {
	TotalTasks      int              `json:"total_tasks"`
	TodoTasks       int              `json:"todo_tasks"`
	InProgressTasks int              `json:"in_progress_tasks"`
	CompletedTasks  int              `json:"completed_tasks"`
	BlockedTasks    int              `json:"blocked_tasks"`
	CompletionRate  float64          `json:"completion_rate"`
	Sections        []SectionSummary `json:"sections"`
}

// SectionSummary is one section's slice of the overview.
type SectionSummary struct {
	Name           string  `json:"name"`
	TotalTasks     int     `json:"total_tasks"`
	Todo           int     `json:"todo"`
	InProgress     int     `json:"in_progress"`
	Done           int     `json:"done"`
	Blocked        int     `json:"blocked"`
	CompletionRate float64 `json:"completion_rate"`
}

// Statistics is the full computed snapshot.
type Statistics struct {
	Overview    Overview   `json:"overview"`
	RecentItems []Activity `json:"recent_activity"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Activity is one entry in the recent-activity feed.
type Activity struct {
	Kind      string       `json:"kind"` // created | status_changed | deleted
	Section   string       `json:"section"`
	TaskID    string       `json:"task_id"`
	Status    graph.Status `json:"status,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func (a Activity) String() string {
	return fmt.Sprintf("%s %s.%s", a.Kind, a.Section, a.TaskID)
}

// Manager computes and caches statistics. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	ttl      time.Duration
	maxFeed  int
	history  []Activity
	cached   *Statistics
	cachedAt time.Time
	cacheKey time.Time // graph LastUpdated the cache was computed for
	hits     int
	misses   int
}

// NewManager creates a Manager with the given cache TTL. A zero ttl
// disables caching.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, maxFeed: 50}
}

// Record appends an activity entry, trimming the history to the feed cap.
func (m *Manager) Record(a Activity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	m.history = append(m.history, a)
	if len(m.history) > m.maxFeed {
		m.history = m.history[len(m.history)-m.maxFeed:]
	}
	m.cached = nil
}

// RecentActivity returns the recorded activity, newest first.
func (m *Manager) RecentActivity() []Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Activity, len(m.history))
	for i, a := range m.history {
		out[len(m.history)-1-i] = a
	}
	return out
}

// Statistics returns the snapshot for p, served from cache while the
// graph is unchanged and the TTL has not elapsed.
func (m *Manager) Statistics(p *graph.Project) *Statistics {
	m.mu.Lock()
	if m.cached != nil && m.cacheKey.Equal(p.Meta.LastUpdated) && time.Since(m.cachedAt) < m.ttl {
		m.hits++
		s := m.cached
		m.mu.Unlock()
		return s
	}
	m.misses++
	recent := make([]Activity, len(m.history))
	for i, a := range m.history {
		recent[len(m.history)-1-i] = a
	}
	m.mu.Unlock()

	s := &Statistics{
		Overview:    ComputeOverview(p),
		RecentItems: recent,
		GeneratedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.ttl > 0 {
		m.cached = s
		m.cachedAt = time.Now()
		m.cacheKey = p.Meta.LastUpdated
	}
	m.mu.Unlock()
	return s
}

// CacheCounters reports cache hits and misses since construction.
func (m *Manager) CacheCounters() (hits, misses int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}

// ComputeOverview derives the overview from the graph alone.
func ComputeOverview(p *graph.Project) Overview {
	var ov Overview
	for name, section := range p.Sections {
		sum := SectionSummary{Name: name}
		for _, task := range section {
			sum.TotalTasks++
			switch task.Status {
			case graph.StatusTodo:
				sum.Todo++
			case graph.StatusInProgress:
				sum.InProgress++
			case graph.StatusDone:
				sum.Done++
			case graph.StatusBlocked:
				sum.Blocked++
			}
		}
		if sum.TotalTasks > 0 {
			sum.CompletionRate = float64(sum.Done) / float64(sum.TotalTasks)
		}
		ov.Sections = append(ov.Sections, sum)
		ov.TotalTasks += sum.TotalTasks
		ov.TodoTasks += sum.Todo
		ov.InProgressTasks += sum.InProgress
		ov.CompletedTasks += sum.Done
		ov.BlockedTasks += sum.Blocked
	}
	sort.Slice(ov.Sections, func(i, j int) bool { return ov.Sections[i].Name < ov.Sections[j].Name })
	if ov.TotalTasks > 0 {
		ov.CompletionRate = float64(ov.CompletedTasks) / float64(ov.TotalTasks)
	}
	return ov
}
