// Package cron manages scheduled jobs: a JSON-file-backed job list with
// 5-field cron schedules and the origin context captured at registration
// time, which later feeds delivery-target resolution.
package cron

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/clawroute/internal/routing"
)

// Payload is what a job delivers and where. The routing fields are passed
// through to the resolver unchanged.
type Payload struct {
	Message    string `json:"message"`
	Channel    string `json:"channel,omitempty"`
	To         string `json:"to,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
	// Deliver controls whether the run's output is sent out at all; a
	// disabled delivery still runs the job for its side effects.
	Deliver bool `json:"deliver"`
}

// Job is one scheduled task.
type Job struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Schedule string  `json:"schedule"` // 5-field cron expression
	Enabled  bool    `json:"enabled"`
	AgentID  string  `json:"agentId,omitempty"`
	Payload  Payload `json:"payload"`
	// Origin snapshots where the job was registered from. Immutable after
	// creation; "deliver to origin" resolution reads it verbatim.
	Origin    *routing.Origin `json:"origin,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	LastRunAt *time.Time      `json:"lastRunAt,omitempty"`
}

// NextRun computes the job's next firing time after ref.
func (j *Job) NextRun(ref time.Time) (time.Time, error) {
	return gronx.NextTickAfter(j.Schedule, ref, false)
}

type fileStore struct {
	Version int   `json:"version"`
	Jobs    []Job `json:"jobs"`
}

// Service owns the job store file. All mutations persist immediately.
type Service struct {
	path string

	mu   sync.Mutex
	jobs []Job
}

func NewService(path string) *Service {
	return &Service{path: path}
}

// Load reads the store file. A missing file is an empty job list.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.jobs = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cron store: %w", err)
	}
	var fs fileStore
	if err := json.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("parse cron store %s: %w", s.path, err)
	}
	s.jobs = fs.Jobs
	return nil
}

// save persists under the caller's lock. Job files can hold chat ids, so
// they are written private.
func (s *Service) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cron store dir: %w", err)
	}
	data, err := json.MarshalIndent(fileStore{Version: 1, Jobs: s.jobs}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cron store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Add validates the schedule, assigns an id, and persists the job.
func (s *Service) Add(name, schedule string, payload Payload, agentID string, origin *routing.Origin) (Job, error) {
	if strings.TrimSpace(name) == "" {
		return Job{}, fmt.Errorf("job name is required")
	}
	if !gronx.New().IsValid(schedule) {
		return Job{}, fmt.Errorf("invalid cron schedule %q", schedule)
	}

	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Name:      name,
		Schedule:  schedule,
		Enabled:   true,
		AgentID:   agentID,
		Payload:   payload,
		Origin:    origin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	if err := s.save(); err != nil {
		s.jobs = s.jobs[:len(s.jobs)-1]
		return Job{}, err
	}
	return job, nil
}

// Remove deletes a job by id or name.
func (s *Service) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, j := range s.jobs {
		if j.ID == ref || j.Name == ref {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("no cron job %q", ref)
}

// SetEnabled flips a job's enabled flag by id or name.
func (s *Service) SetEnabled(ref string, enabled bool) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == ref || s.jobs[i].Name == ref {
			s.jobs[i].Enabled = enabled
			s.jobs[i].UpdatedAt = time.Now().UTC()
			if err := s.save(); err != nil {
				return Job{}, err
			}
			return s.jobs[i], nil
		}
	}
	return Job{}, fmt.Errorf("no cron job %q", ref)
}

// MarkRun records a completed run by id or name.
func (s *Service) MarkRun(ref string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobs {
		if s.jobs[i].ID == ref || s.jobs[i].Name == ref {
			t := at.UTC()
			s.jobs[i].LastRunAt = &t
			return s.save()
		}
	}
	return fmt.Errorf("no cron job %q", ref)
}

// List returns jobs sorted by name.
func (s *Service) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get looks a job up by id or name.
func (s *Service) Get(ref string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.ID == ref || j.Name == ref {
			return j, true
		}
	}
	return Job{}, false
}
