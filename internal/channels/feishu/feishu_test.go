package feishu

import (
	"testing"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

func TestReceiveIDType(t *testing.T) {
	tests := []struct {
		to   string
		want string
	}{
		{"oc_abc123", larkim.ReceiveIdTypeChatId},
		{"ou_xyz", larkim.ReceiveIdTypeOpenId},
		{"on_xyz", larkim.ReceiveIdTypeUnionId},
		{"user@example.com", larkim.ReceiveIdTypeEmail},
		{"something-else", larkim.ReceiveIdTypeChatId},
	}

	for _, tt := range tests {
		if got := receiveIDType(tt.to); got != tt.want {
			t.Errorf("receiveIDType(%q) = %q, want %q", tt.to, got, tt.want)
		}
	}
}
