// Package evalstore keeps the latest checklist evaluation of each pull
// request in memory for the web view.
package evalstore

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cexll/checklist-gate/internal/checklist"
	"github.com/cexll/checklist-gate/internal/gate"
	"github.com/cexll/checklist-gate/internal/overlay"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusIgnored   Status = "ignored"
)

// maxLogs bounds the log history kept per pull request.
const maxLogs = 50

// Pass is the latest evaluation of one pull request.
type Pass struct {
	Owner      string            `json:"owner"`
	Repo       string            `json:"repo"`
	Number     int               `json:"number"`
	Title      string            `json:"title,omitempty"`
	URL        string            `json:"url,omitempty"`
	JobID      string            `json:"job_id"`
	Kind       string            `json:"kind"`
	Status     Status            `json:"status"`
	Summary    checklist.Summary `json:"summary"`
	Decision   gate.Decision     `json:"decision"`
	State      overlay.State     `json:"state"`
	Celebrated bool              `json:"celebrated"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Logs       []LogEntry        `json:"logs,omitempty"`
}

// Key identifies the pull request.
func (p *Pass) Key() string {
	return Key(p.Owner, p.Repo, p.Number)
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // info, error, success
	Message   string    `json:"message"`
}

func Key(owner, repo string, number int) string {
	return fmt.Sprintf("%s/%s#%d", owner, repo, number)
}

type Store struct {
	mu     sync.RWMutex
	passes map[string]*Pass
}

func NewStore() *Store {
	return &Store{
		passes: make(map[string]*Pass),
	}
}

// Queued records that a job for the pull request was accepted.
func (s *Store) Queued(owner, repo string, number int, jobID, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := Key(owner, repo, number)
	p, ok := s.passes[key]
	if !ok {
		p = &Pass{Owner: owner, Repo: repo, Number: number, CreatedAt: now}
		s.passes[key] = p
	}
	p.JobID, p.Kind, p.Status, p.UpdatedAt = jobID, kind, StatusQueued, now
	p.appendLog(now, "info", fmt.Sprintf("%s job %s queued", kind, jobID))
}

// Get returns a copy of the pass for the pull request.
func (s *Store) Get(owner, repo string, number int) (Pass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[Key(owner, repo, number)]
	if !ok {
		return Pass{}, false
	}
	return p.clone(), true
}

// List returns copies of all passes, most recently updated first.
func (s *Store) List() []Pass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pass, 0, len(s.passes))
	for _, p := range s.passes {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *Store) UpdateStatus(owner, repo string, number int, status Status) {
	s.Update(owner, repo, number, func(p *Pass) { p.Status = status })
}

func (s *Store) AddLog(owner, repo string, number int, level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.passes[Key(owner, repo, number)]; ok {
		now := time.Now()
		p.appendLog(now, level, message)
		p.UpdatedAt = now
	}
}

// Update applies fn to the pass, creating it when missing.
func (s *Store) Update(owner, repo string, number int, fn func(*Pass)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := Key(owner, repo, number)
	p, ok := s.passes[key]
	if !ok {
		p = &Pass{Owner: owner, Repo: repo, Number: number, CreatedAt: now}
		s.passes[key] = p
	}
	fn(p)
	p.UpdatedAt = now
}

func (p *Pass) appendLog(ts time.Time, level, message string) {
	p.Logs = append(p.Logs, LogEntry{Timestamp: ts, Level: level, Message: message})
	if n := len(p.Logs); n > maxLogs {
		p.Logs = append([]LogEntry(nil), p.Logs[n-maxLogs:]...)
	}
}

func (p *Pass) clone() Pass {
	c := *p
	c.Logs = append([]LogEntry(nil), p.Logs...)
	c.Summary.Groups = append([]checklist.GroupProgress(nil), p.Summary.Groups...)
	c.Decision.Controls = append([]string(nil), p.Decision.Controls...)
	return c
}
