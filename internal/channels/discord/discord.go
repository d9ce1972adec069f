// Package discord implements the Discord channel plugin: send/broadcast
// plus the guild moderation actions, executed over the Discord REST API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

var errNotConfigured = errors.New("discord plugin not configured (missing token)")

const defaultTimeout = 10 * time.Minute

var supportedActions = map[string]bool{
	protocol.ActionSend:          true,
	protocol.ActionBroadcast:     true,
	protocol.ActionBan:           true,
	protocol.ActionKick:          true,
	protocol.ActionTimeout:       true,
	protocol.ActionDeleteMessage: true,
}

// Plugin executes actions against Discord. Without a token it degrades to
// a capability-only plugin whose HandleAction reports not-configured.
type Plugin struct {
	cfg     config.DiscordConfig
	session *discordgo.Session
}

func New(cfg config.DiscordConfig) (*Plugin, error) {
	p := &Plugin{cfg: cfg}
	if cfg.Token == "" {
		return p, nil
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	p.session = session
	return p, nil
}

func (p *Plugin) ID() string { return protocol.ChannelDiscord }

// Start opens the gateway connection. REST calls work without it, but an
// open session keeps rate-limit state warm and validates the token early.
func (p *Plugin) Start(_ context.Context) error {
	if p.session == nil {
		return nil
	}
	if err := p.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	user, err := p.session.User("@me")
	if err != nil {
		p.session.Close()
		return fmt.Errorf("fetch discord bot identity: %w", err)
	}
	slog.Info("discord plugin connected", "username", user.Username, "id", user.ID)
	return nil
}

func (p *Plugin) Stop(_ context.Context) error {
	if p.session == nil {
		return nil
	}
	return p.session.Close()
}

func (p *Plugin) SupportsAction(action string) bool { return supportedActions[action] }

func (p *Plugin) ListActions() []string {
	return []string{
		protocol.ActionSend, protocol.ActionBroadcast,
		protocol.ActionBan, protocol.ActionKick,
		protocol.ActionTimeout, protocol.ActionDeleteMessage,
	}
}

func (p *Plugin) SupportsButtons() bool { return true }
func (p *Plugin) SupportsCards() bool   { return true }

func (p *Plugin) HandleAction(ctx context.Context, ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	if p.session == nil {
		return nil, errNotConfigured
	}

	switch ac.Action {
	case protocol.ActionSend:
		return p.send(ac.To, ac.Content)
	case protocol.ActionBroadcast:
		return p.broadcast(ac.To, ac.Content)
	case protocol.ActionBan:
		return p.ban(ac)
	case protocol.ActionKick:
		return p.kick(ac)
	case protocol.ActionTimeout:
		return p.timeout(ac)
	case protocol.ActionDeleteMessage:
		return p.deleteMessage(ac)
	default:
		return nil, fmt.Errorf("unhandled action %q", ac.Action)
	}
}

// channelFor maps a normalized recipient to a Discord channel id, opening a
// DM channel for user: recipients.
func (p *Plugin) channelFor(to string) (string, error) {
	if userID, ok := strings.CutPrefix(to, "user:"); ok {
		ch, err := p.session.UserChannelCreate(userID)
		if err != nil {
			return "", fmt.Errorf("open dm channel: %w", err)
		}
		return ch.ID, nil
	}
	return strings.TrimPrefix(to, "channel:"), nil
}

func (p *Plugin) send(to, content string) (*dispatch.ActionResult, error) {
	channelID, err := p.channelFor(to)
	if err != nil {
		return nil, err
	}
	msg, err := p.session.ChannelMessageSend(channelID, content)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &dispatch.ActionResult{Detail: "message " + msg.ID}, nil
}

func (p *Plugin) broadcast(to, content string) (*dispatch.ActionResult, error) {
	var sent int
	for _, target := range strings.Split(to, ",") {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, err := p.send(target, content); err != nil {
			return nil, fmt.Errorf("broadcast to %s: %w", target, err)
		}
		sent++
	}
	return &dispatch.ActionResult{Detail: fmt.Sprintf("broadcast to %d targets", sent)}, nil
}

// guildFor resolves the guild an action applies to: explicit arg first,
// then the configured default guild.
func (p *Plugin) guildFor(ac *dispatch.ActionContext) (string, error) {
	if g := ac.Args["guild_id"]; g != "" {
		return g, nil
	}
	if p.cfg.GuildID != "" {
		return p.cfg.GuildID, nil
	}
	return "", errors.New("no guild_id for moderation action")
}

func (p *Plugin) ban(ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	guild, err := p.guildFor(ac)
	if err != nil {
		return nil, err
	}
	userID := ac.Args["user_id"]
	if err := p.session.GuildBanCreateWithReason(guild, userID, ac.Args["reason"], 0); err != nil {
		return nil, fmt.Errorf("ban %s: %w", userID, err)
	}
	return &dispatch.ActionResult{Detail: "banned " + userID}, nil
}

func (p *Plugin) kick(ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	guild, err := p.guildFor(ac)
	if err != nil {
		return nil, err
	}
	userID := ac.Args["user_id"]
	if err := p.session.GuildMemberDeleteWithReason(guild, userID, ac.Args["reason"]); err != nil {
		return nil, fmt.Errorf("kick %s: %w", userID, err)
	}
	return &dispatch.ActionResult{Detail: "kicked " + userID}, nil
}

func (p *Plugin) timeout(ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	guild, err := p.guildFor(ac)
	if err != nil {
		return nil, err
	}
	userID := ac.Args["user_id"]
	dur := defaultTimeout
	if raw := ac.Args["duration"]; raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("bad timeout duration %q: %w", raw, err)
		}
		dur = parsed
	}
	until := time.Now().Add(dur)
	if err := p.session.GuildMemberTimeout(guild, userID, &until); err != nil {
		return nil, fmt.Errorf("timeout %s: %w", userID, err)
	}
	return &dispatch.ActionResult{Detail: fmt.Sprintf("timed out %s until %s", userID, until.Format(time.RFC3339))}, nil
}

func (p *Plugin) deleteMessage(ac *dispatch.ActionContext) (*dispatch.ActionResult, error) {
	channelID, err := p.channelFor(ac.To)
	if err != nil {
		return nil, err
	}
	messageID := ac.Args["message_id"]
	if messageID == "" {
		return nil, errors.New("delete-message requires message_id")
	}
	if err := p.session.ChannelMessageDelete(channelID, messageID); err != nil {
		return nil, fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return &dispatch.ActionResult{Detail: "deleted " + messageID}, nil
}
