package routing

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/sessions"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

func baseConfig() *config.Config {
	cfg := config.Default()
	cfg.Channels.Telegram.Enabled = true
	cfg.Channels.Discord.Enabled = true
	cfg.Channels.Feishu.Enabled = true
	return cfg
}

func entryAt(min int, channel, to string) sessions.Entry {
	return sessions.Entry{
		SessionID:   "s",
		UpdatedAt:   time.Date(2026, 3, 1, 12, min, 0, 0, time.UTC),
		LastChannel: channel,
		LastTo:      to,
	}
}

// TestResolve_OriginShortCircuit verifies that a payload with no overrides
// replies exactly where the job was registered: channel, recipient, account,
// and thread are copied verbatim from the origin, session state untouched.
func TestResolve_OriginShortCircuit(t *testing.T) {
	cfg := baseConfig()
	// Session state that must NOT influence the result.
	store := sessions.Store{
		sessions.MainKey("main"): entryAt(0, "discord", "99999"),
	}
	origin := &Origin{Channel: "telegram", To: "123", AccountID: "bot-a", ThreadID: "t7"}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{}, Options{Origin: origin})

	want := Target{Channel: "telegram", To: "123", AccountID: "bot-a", ThreadID: "t7", Mode: ModeExplicit}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestResolve_OriginShortCircuit_BlockedByOverrides verifies that any
// explicit payload field disables the short-circuit.
func TestResolve_OriginShortCircuit_BlockedByOverrides(t *testing.T) {
	cfg := baseConfig()
	origin := &Origin{Channel: "telegram", To: "123", ThreadID: "t7"}

	tests := []struct {
		name    string
		payload JobPayload
	}{
		{name: "explicit channel", payload: JobPayload{Channel: "discord"}},
		{name: "explicit to", payload: JobPayload{To: "456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(context.Background(), cfg, sessions.Store{}, "main", tt.payload, Options{Origin: origin})
			if got.ThreadID == "t7" && got.To == "123" && got.Channel == "telegram" {
				t.Errorf("short-circuit fired despite payload override: %+v", got)
			}
		})
	}
}

// TestResolve_CurrentModeIgnoresOrigin verifies delivery mode "current"
// prefers live session state over the job origin.
func TestResolve_CurrentModeIgnoresOrigin(t *testing.T) {
	cfg := baseConfig()
	store := sessions.Store{
		sessions.MainKey("main"): entryAt(0, "discord", "99999"),
	}
	origin := &Origin{Channel: "telegram", To: "123"}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{}, Options{
		Origin: origin,
		Mode:   protocol.DeliveryCurrent,
	})

	if got.Channel != "discord" || got.To != "99999" {
		t.Errorf("got %s/%s, want discord/99999 from session state", got.Channel, got.To)
	}
	if got.Mode != ModeImplicit {
		t.Errorf("mode = %q, want implicit", got.Mode)
	}
}

// TestResolve_LastSentinel verifies the "last" channel request follows the
// main session's stored channel and recipient.
func TestResolve_LastSentinel(t *testing.T) {
	cfg := baseConfig()
	store := sessions.Store{
		sessions.MainKey("main"): entryAt(0, "discord", "55555"),
	}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{Channel: protocol.ChannelLast}, Options{})

	if got.Channel != "discord" || got.To != "55555" {
		t.Errorf("got %s/%s, want discord/55555", got.Channel, got.To)
	}
	if got.Mode != ModeImplicit {
		t.Errorf("mode = %q, want implicit", got.Mode)
	}
}

// TestResolve_NoCrossChannelRecipientReuse verifies a stored recipient never
// carries over to an explicitly requested different channel.
func TestResolve_NoCrossChannelRecipientReuse(t *testing.T) {
	cfg := baseConfig()
	store := sessions.Store{
		sessions.MainKey("main"): entryAt(0, "discord", "55555"),
	}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{Channel: "telegram"}, Options{})

	if got.Channel != "telegram" {
		t.Fatalf("channel = %q, want telegram", got.Channel)
	}
	if got.To != "" {
		t.Errorf("to = %q, want empty: discord recipient must not leak to telegram", got.To)
	}
	if got.Err != nil {
		t.Errorf("unexpected error: %v", got.Err)
	}
}

// TestResolve_FallbackTiers verifies the channel fallback order when no
// session and no payload channel exist: origin, configured default, stored
// last channel, global default.
func TestResolve_FallbackTiers(t *testing.T) {
	ctx := context.Background()

	t.Run("origin channel wins", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Routing.DefaultChannel = "discord"
		origin := &Origin{Channel: "feishu"}
		got := Resolve(ctx, cfg, sessions.Store{}, "main", JobPayload{}, Options{Origin: origin})
		if got.Channel != "feishu" {
			t.Errorf("channel = %q, want feishu (origin tier)", got.Channel)
		}
	})

	t.Run("configured default next", func(t *testing.T) {
		cfg := baseConfig()
		cfg.Routing.DefaultChannel = "discord"
		got := Resolve(ctx, cfg, sessions.Store{}, "main", JobPayload{}, Options{})
		if got.Channel != "discord" {
			t.Errorf("channel = %q, want discord (config tier)", got.Channel)
		}
	})

	t.Run("stored last channel next", func(t *testing.T) {
		cfg := baseConfig()
		store := sessions.Store{
			sessions.MainKey("main"): entryAt(0, "feishu", "oc_1"),
		}
		got := Resolve(ctx, cfg, store, "main", JobPayload{}, Options{})
		if got.Channel != "feishu" {
			t.Errorf("channel = %q, want feishu (session tier)", got.Channel)
		}
	})

	t.Run("global default last", func(t *testing.T) {
		cfg := baseConfig()
		got := Resolve(ctx, cfg, sessions.Store{}, "main", JobPayload{}, Options{})
		if got.Channel != DefaultChannel {
			t.Errorf("channel = %q, want %q", got.Channel, DefaultChannel)
		}
		if got.To != "" || got.Err != nil {
			t.Errorf("expected empty recipient with no error, got %+v", got)
		}
	})
}

// TestResolve_ThreadCarryOver verifies a payload addressing a thread session
// keeps the stored thread id on the target.
func TestResolve_ThreadCarryOver(t *testing.T) {
	cfg := baseConfig()
	threadKey := sessions.ThreadKey("main", "feishu", "oc_1", "t9")
	entry := entryAt(0, "feishu", "oc_1")
	entry.LastThreadID = "t9"
	store := sessions.Store{threadKey: entry}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{SessionKey: threadKey}, Options{})

	if got.Channel != "feishu" || got.To != "oc_1" {
		t.Fatalf("got %s/%s, want feishu/oc_1", got.Channel, got.To)
	}
	if got.ThreadID != "t9" {
		t.Errorf("threadId = %q, want t9", got.ThreadID)
	}
}

// TestResolve_ThreadLeakGuard verifies a stored thread id never attaches to
// a message addressed to a different recipient.
func TestResolve_ThreadLeakGuard(t *testing.T) {
	cfg := baseConfig()
	entry := entryAt(0, "feishu", "oc_1")
	entry.LastThreadID = "t9"
	store := sessions.Store{sessions.MainKey("main"): entry}

	got := Resolve(context.Background(), cfg, store, "main",
		JobPayload{Channel: "feishu", To: "oc_2"}, Options{})

	if got.To != "oc_2" {
		t.Fatalf("to = %q, want oc_2", got.To)
	}
	if got.ThreadID != "" {
		t.Errorf("threadId = %q leaked to a different recipient", got.ThreadID)
	}
}

// TestResolve_ThreadKeptForSameRecipient is the counterpart: same recipient,
// thread id stays.
func TestResolve_ThreadKeptForSameRecipient(t *testing.T) {
	cfg := baseConfig()
	entry := entryAt(0, "feishu", "oc_1")
	entry.LastThreadID = "t9"
	store := sessions.Store{sessions.MainKey("main"): entry}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{}, Options{})

	if got.To != "oc_1" || got.ThreadID != "t9" {
		t.Errorf("got to=%q thread=%q, want oc_1/t9", got.To, got.ThreadID)
	}
}

// TestResolve_NormalizationRejection verifies a bad recipient surfaces as
// Target.Err with an empty To, never as a Go error or an unvalidated To.
func TestResolve_NormalizationRejection(t *testing.T) {
	cfg := baseConfig()

	got := Resolve(context.Background(), cfg, sessions.Store{}, "main",
		JobPayload{Channel: "telegram", To: "not a chat!"}, Options{})

	if got.Err == nil {
		t.Fatal("expected a normalization error")
	}
	if got.To != "" {
		t.Errorf("to = %q, want empty on rejection", got.To)
	}
	if got.Channel != "telegram" || got.Mode != ModeExplicit {
		t.Errorf("channel/mode = %s/%s, want telegram/explicit", got.Channel, got.Mode)
	}
}

// TestResolve_AccountFallback verifies the binding map supplies an account
// when session state carries none.
func TestResolve_AccountFallback(t *testing.T) {
	cfg := baseConfig()
	cfg.Channels.Telegram.Accounts = []config.AccountConfig{{ID: "bot-main"}}

	got := Resolve(context.Background(), cfg, sessions.Store{}, "main",
		JobPayload{Channel: "telegram", To: "123"}, Options{})

	if got.AccountID != "bot-main" {
		t.Errorf("accountId = %q, want bot-main", got.AccountID)
	}
}

// TestResolve_SessionAccountWins verifies a session-recorded account is not
// overridden by the binding default.
func TestResolve_SessionAccountWins(t *testing.T) {
	cfg := baseConfig()
	cfg.Channels.Telegram.Accounts = []config.AccountConfig{{ID: "bot-main"}}
	entry := entryAt(0, "telegram", "123")
	entry.LastAccountID = "bot-alt"
	store := sessions.Store{sessions.MainKey("main"): entry}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{}, Options{})

	if got.AccountID != "bot-alt" {
		t.Errorf("accountId = %q, want bot-alt from session", got.AccountID)
	}
}

// TestResolve_LastUsedFallback verifies that with no main session the most
// recently used channel session supplies the target.
func TestResolve_LastUsedFallback(t *testing.T) {
	cfg := baseConfig()
	store := sessions.Store{
		sessions.Key("main", "telegram", sessions.ScopeDirect, "1"): entryAt(0, "telegram", "1"),
		sessions.Key("main", "discord", sessions.ScopeGroup, "2"):   entryAt(30, "discord", "2"),
	}

	got := Resolve(context.Background(), cfg, store, "main", JobPayload{}, Options{})

	if got.Channel != "discord" || got.To != "2" {
		t.Errorf("got %s/%s, want discord/2 (most recent)", got.Channel, got.To)
	}
}

// TestResolve_SelectorOverride verifies the injected channel selector is
// honored in the config-default tier.
func TestResolve_SelectorOverride(t *testing.T) {
	cfg := baseConfig()
	sel := func(*config.Config) (string, error) { return "feishu", nil }

	got := Resolve(context.Background(), cfg, sessions.Store{}, "main", JobPayload{}, Options{Select: sel})

	if got.Channel != "feishu" {
		t.Errorf("channel = %q, want feishu from selector", got.Channel)
	}
}

// TestResolve_AgentDefaulting verifies a blank agent id resolves against the
// configured default agent's sessions.
func TestResolve_AgentDefaulting(t *testing.T) {
	cfg := baseConfig()
	store := sessions.Store{
		sessions.MainKey("main"): entryAt(0, "discord", "55555"),
	}

	got := Resolve(context.Background(), cfg, store, "", JobPayload{}, Options{})

	if got.Channel != "discord" || got.To != "55555" {
		t.Errorf("got %s/%s, want discord/55555 via default agent", got.Channel, got.To)
	}
}
