// Package telegram implements the Telegram channel plugin over the Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

var errNotConfigured = errors.New("telegram plugin not configured (missing token)")

var supportedActions = map[string]bool{
	protocol.ActionSend:      true,
	protocol.ActionBroadcast: true,
	protocol.ActionBan:       true,
	protocol.ActionKick:      true,
}

// Plugin executes actions against the Telegram Bot API.
type Plugin struct {
	cfg config.TelegramConfig
	bot *telego.Bot
}

func New(cfg config.TelegramConfig) (*Plugin, error) {
	p := &Plugin{cfg: cfg}
	if cfg.Token == "" {
		return p, nil
	}
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	p.bot = bot
	return p, nil
}

func (p *Plugin) ID() string { return protocol.ChannelTelegram }

func (p *Plugin) SupportsAction(action string) bool { return supportedActions[action] }

func (p *Plugin) ListActions() []string {
	return []string{
		protocol.ActionSend, protocol.ActionBroadcast,
		protocol.ActionBan, protocol.ActionKick,
	}
}

func (p *Plugin) SupportsButtons() bool { return true }

func (p *Plugin) HandleAction(ctx context.Context, ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	if p.bot == nil {
		return nil, errNotConfigured
	}

	switch ac.Action {
	case protocol.ActionSend:
		return p.send(ctx, ac.To, ac.Content)
	case protocol.ActionBroadcast:
		return p.broadcast(ctx, ac.To, ac.Content)
	case protocol.ActionBan:
		return p.ban(ctx, ac, false)
	case protocol.ActionKick:
		// Telegram has no kick primitive: ban then lift, so the user can
		// rejoin.
		return p.ban(ctx, ac, true)
	default:
		return nil, fmt.Errorf("unhandled action %q", ac.Action)
	}
}

// chatID maps a normalized recipient ("12345", "-100...", "@name") to a
// telego chat id.
func chatID(to string) (telego.ChatID, error) {
	if name, ok := strings.CutPrefix(to, "@"); ok {
		return tu.Username("@" + name), nil
	}
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return telego.ChatID{}, fmt.Errorf("bad chat id %q: %w", to, err)
	}
	return tu.ID(id), nil
}

func (p *Plugin) send(ctx context.Context, to, content string) (*dispatch.ActionResult, error) {
	cid, err := chatID(to)
	if err != nil {
		return nil, err
	}
	msg, err := p.bot.SendMessage(ctx, tu.Message(cid, content))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &dispatch.ActionResult{Detail: fmt.Sprintf("message %d", msg.MessageID)}, nil
}

func (p *Plugin) broadcast(ctx context.Context, to, content string) (*dispatch.ActionResult, error) {
	var sent int
	for _, target := range strings.Split(to, ",") {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, err := p.send(ctx, target, content); err != nil {
			return nil, fmt.Errorf("broadcast to %s: %w", target, err)
		}
		sent++
	}
	return &dispatch.ActionResult{Detail: fmt.Sprintf("broadcast to %d targets", sent)}, nil
}

func (p *Plugin) ban(ctx context.Context, ac *dispatch.ActionContext, lift bool) (*dispatch.ActionResult, error) {
	cid, err := chatID(ac.To)
	if err != nil {
		return nil, err
	}
	userID, err := strconv.ParseInt(ac.Args["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad user_id %q: %w", ac.Args["user_id"], err)
	}
	if err := p.bot.BanChatMember(ctx, &telego.BanChatMemberParams{ChatID: cid, UserID: userID}); err != nil {
		return nil, fmt.Errorf("ban member: %w", err)
	}
	if lift {
		if err := p.bot.UnbanChatMember(ctx, &telego.UnbanChatMemberParams{
			ChatID: cid, UserID: userID, OnlyIfBanned: true,
		}); err != nil {
			return nil, fmt.Errorf("lift ban after kick: %w", err)
		}
		return &dispatch.ActionResult{Detail: fmt.Sprintf("kicked %d", userID)}, nil
	}
	return &dispatch.ActionResult{Detail: fmt.Sprintf("banned %d", userID)}, nil
}
