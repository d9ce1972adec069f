package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/routing"
	"github.com/nextlevelbuilder/clawroute/internal/sessions"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(filepath.Join(t.TempDir(), "cron", "jobs.json"))
	if err := svc.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return svc
}

func TestService_AddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	svc := NewService(path)
	if err := svc.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	job, err := svc.Add("reminder", "0 9 * * *", Payload{
		Message: "standup", Channel: "telegram", To: "123", Deliver: true,
	}, "main", &routing.Origin{Channel: "telegram", To: "123"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if job.ID == "" || !job.Enabled {
		t.Errorf("job = %+v, want id assigned and enabled", job)
	}

	// A fresh service over the same file sees the job.
	svc2 := NewService(path)
	if err := svc2.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, ok := svc2.Get("reminder")
	if !ok {
		t.Fatal("job not persisted")
	}
	if got.Origin == nil || got.Origin.Channel != "telegram" {
		t.Errorf("origin = %+v, want the captured registration context", got.Origin)
	}
}

func TestService_AddRejectsBadSchedule(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Add("bad", "not a schedule", Payload{}, "", nil); err == nil {
		t.Error("expected schedule validation error")
	}
	if _, err := svc.Add("", "0 9 * * *", Payload{}, "", nil); err == nil {
		t.Error("expected name validation error")
	}
}

func TestService_RemoveAndEnable(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Add("j1", "*/5 * * * *", Payload{}, "", nil)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := svc.SetEnabled(job.ID, false)
	if err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if got.Enabled {
		t.Error("job still enabled")
	}

	if err := svc.Remove("j1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := svc.Remove("j1"); err == nil {
		t.Error("expected error removing a missing job")
	}
	if len(svc.List()) != 0 {
		t.Errorf("jobs left: %v", svc.List())
	}
}

func TestService_StoreFilePrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	svc := NewService(path)
	if err := svc.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := svc.Add("perm", "0 9 * * *", Payload{}, "", nil); err != nil {
		t.Fatalf("Add: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("store perms = %o, want 600", got)
	}
}

// TestResolveTarget verifies the glue: a job with an origin and no overrides
// delivers back where it was registered.
func TestResolveTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Channels.Telegram.Enabled = true

	job := Job{
		ID:      "j1",
		AgentID: "main",
		Payload: Payload{Message: "hi"},
		Origin:  &routing.Origin{Channel: "telegram", To: "123"},
	}

	got := ResolveTarget(context.Background(), cfg, sessions.Store{}, job, "")
	if got.Channel != "telegram" || got.To != "123" {
		t.Errorf("got %s/%s, want telegram/123 from origin", got.Channel, got.To)
	}
}

func TestRunSessionKey(t *testing.T) {
	cfg := config.Default()
	job := Job{ID: "j1"}
	got := RunSessionKey(cfg, job, "r1")
	want := "agent:main:cron:j1:run:r1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
