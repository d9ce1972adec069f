package telegram

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

func TestChatID(t *testing.T) {
	tests := []struct {
		name    string
		to      string
		wantErr bool
	}{
		{name: "numeric", to: "386246614"},
		{name: "negative group", to: "-1001234567"},
		{name: "username", to: "@someuser"},
		{name: "garbage", to: "not-a-chat", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chatID(tt.to)
			if (err != nil) != tt.wantErr {
				t.Errorf("chatID(%q) err = %v, wantErr %v", tt.to, err, tt.wantErr)
			}
		})
	}
}

// TestNotConfigured verifies the token-less plugin still answers capability
// queries but refuses to execute.
func TestNotConfigured(t *testing.T) {
	p, err := New(config.TelegramConfig{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !p.SupportsAction(protocol.ActionSend) {
		t.Error("capability query should work without a token")
	}
	if _, err := p.HandleAction(context.Background(), &dispatch.ActionContext{
		Action: protocol.ActionSend, To: "123",
	}); err == nil {
		t.Error("expected not-configured error")
	}
}
