// Package matrix implements the Matrix channel plugin using mautrix-go
// with a pre-provisioned access token.
package matrix

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/dispatch"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

var errNotConfigured = errors.New("matrix plugin not configured (missing homeserver or token)")

var supportedActions = map[string]bool{
	protocol.ActionSend:      true,
	protocol.ActionBroadcast: true,
	protocol.ActionBan:       true,
	protocol.ActionKick:      true,
}

// Plugin executes actions against a Matrix homeserver.
type Plugin struct {
	cfg    config.MatrixConfig
	client *mautrix.Client
}

func New(cfg config.MatrixConfig) (*Plugin, error) {
	p := &Plugin{cfg: cfg}
	if cfg.Homeserver == "" || cfg.AccessToken == "" {
		return p, nil
	}
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	p.client = client
	return p, nil
}

func (p *Plugin) ID() string { return protocol.ChannelMatrix }

func (p *Plugin) SupportsAction(action string) bool { return supportedActions[action] }

func (p *Plugin) ListActions() []string {
	return []string{
		protocol.ActionSend, protocol.ActionBroadcast,
		protocol.ActionBan, protocol.ActionKick,
	}
}

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
	case protocol.ActionKick:
		room, user, reason, err := moderationTarget(ac)
		if err != nil {
			return nil, err
		}
		if _, err := p.client.KickUser(ctx, room, &mautrix.ReqKickUser{UserID: user, Reason: reason}); err != nil {
			return nil, fmt.Errorf("kick %s: %w", user, err)
		}
		return &dispatch.ActionResult{Detail: "kicked " + string(user)}, nil
	case protocol.ActionBan:
		room, user, reason, err := moderationTarget(ac)
		if err != nil {
			return nil, err
		}
		if _, err := p.client.BanUser(ctx, room, &mautrix.ReqBanUser{UserID: user, Reason: reason}); err != nil {
			return nil, fmt.Errorf("ban %s: %w", user, err)
		}
		return &dispatch.ActionResult{Detail: "banned " + string(user)}, nil
	default:
		return nil, fmt.Errorf("unhandled action %q", ac.Action)
	}
}

func (p *Plugin) send(ctx context.Context, to, content string) (*dispatch.ActionResult, error) {
	if !strings.HasPrefix(to, "!") {
		// Aliases and user targets need resolution/DM setup, which callers
		// do through the full adapter; the plugin handles room ids.
		return nil, fmt.Errorf("matrix send needs a room id, got %q", to)
	}
	resp, err := p.client.SendText(ctx, id.RoomID(to), content)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &dispatch.ActionResult{Detail: "event " + string(resp.EventID)}, nil
}

func moderationTarget(ac *dispatch.ActionContext) (id.RoomID, id.UserID, string, error) {
	room := ac.Args["room_id"]
	if room == "" {
		room = ac.To
	}
	user := ac.Args["user_id"]
	if room == "" || user == "" {
		return "", "", "", errors.New("moderation needs room_id and user_id")
	}
	return id.RoomID(room), id.UserID(user), ac.Args["reason"], nil
}
