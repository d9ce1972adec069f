// Package feishu implements the Feishu/Lark channel plugin via the open
// platform IM API.
package feishu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

var errNotConfigured = errors.New("feishu plugin not configured (missing app credentials)")

var supportedActions = map[string]bool{
	protocol.ActionSend:      true,
	protocol.ActionBroadcast: true,
}

// Plugin executes actions against the Feishu IM API.
type Plugin struct {
	cfg    config.FeishuConfig
	client *lark.Client
}

func New(cfg config.FeishuConfig) *Plugin {
	p := &Plugin{cfg: cfg}
	if cfg.AppID != "" && cfg.AppSecret != "" {
		p.client = lark.NewClient(cfg.AppID, cfg.AppSecret)
	}
	return p
}

func (p *Plugin) ID() string { return protocol.ChannelFeishu }

func (p *Plugin) SupportsAction(action string) bool { return supportedActions[action] }

func (p *Plugin) ListActions() []string {
	return []string{protocol.ActionSend, protocol.ActionBroadcast}
}

func (p *Plugin) SupportsCards() bool { return true }

func (p *Plugin) HandleAction(ctx context.Context, ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	if p.client == nil {
		return nil, errNotConfigured
	}

	switch ac.Action {
	case protocol.ActionSend:
		return p.send(ctx, ac.To, ac.Content)
	case protocol.ActionBroadcast:
		var sent int
		for _, target := range strings.Split(ac.To, ",") {
			target = strings.TrimSpace(target)
			if target == "" {
				continue
			}
			if _, err := p.send(ctx, target, ac.Content); err != nil {
				return nil, fmt.Errorf("broadcast to %s: %w", target, err)
			}
			sent++
		}
		return &dispatch.ActionResult{Detail: fmt.Sprintf("broadcast to %d targets", sent)}, nil
	default:
		return nil, fmt.Errorf("unhandled action %q", ac.Action)
	}
}

// receiveIDType maps a normalized recipient to the API's receive_id_type:
// oc_ chats, ou_/on_ users, or email.
func receiveIDType(to string) string {
	switch {
	case strings.HasPrefix(to, "oc_"):
		return larkim.ReceiveIdTypeChatId
	case strings.HasPrefix(to, "ou_"):
		return larkim.ReceiveIdTypeOpenId
	case strings.HasPrefix(to, "on_"):
		return larkim.ReceiveIdTypeUnionId
	case strings.Contains(to, "@"):
		return larkim.ReceiveIdTypeEmail
	default:
		return larkim.ReceiveIdTypeChatId
	}
}

func (p *Plugin) send(ctx context.Context, to, content string) (*dispatch.ActionResult, error) {
	payload, err := json.Marshal(map[string]string{"text": content})
	if err != nil {
		return nil, err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(receiveIDType(to)).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(to).
			MsgType(larkim.MsgTypeText).
			Content(string(payload)).
			Build()).
		Build()

	resp, err := p.client.Im.V1.Message.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send feishu message: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("feishu api error: code=%d msg=%s", resp.Code, resp.Msg)
	}

	detail := "message sent"
	if resp.Data != nil && resp.Data.MessageId != nil {
		detail = "message " + *resp.Data.MessageId
	}
	return &dispatch.ActionResult{Detail: detail}, nil
}
