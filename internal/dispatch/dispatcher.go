package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/clawroute/internal/tracing"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

// ActionContext carries one action invocation.
type ActionContext struct {
	Channel string // target channel; rewritten on cross-channel fallback
	Action  string
	To      string // normalized recipient, when the action addresses one
	Content string
	// RequesterSenderID is the verified identity of the human whose
	// message triggered this action. Required for gated actions invoked
	// from the tool path.
	RequesterSenderID string
	// ToolContext marks invocations from the agent's tool-calling path
	// rather than a direct user command.
	ToolContext bool
	// Args carries action-specific parameters (user_id, guild_id,
	// message_id, reason, duration...).
	Args map[string]string
}

// ActionResult is what an executed action reports back.
type ActionResult struct {
	ID      string `json:"id"`      // dispatch id, assigned here
	Channel string `json:"channel"` // the plugin that actually executed
	Action  string `json:"action"`
	Detail  string `json:"detail,omitempty"`
}

var (
	// ErrNotAuthorized rejects a gated action invoked from the tool path
	// without a trusted requester identity. Fatal to the dispatch call.
	ErrNotAuthorized = errors.New("action requires a trusted requester identity")

	// ErrRateLimited rejects a tool-context dispatch over the per-requester
	// budget.
	ErrRateLimited = errors.New("dispatch rate limit exceeded")
)

// gatedActions maps channel → actions requiring a trusted requester when
// invoked from the tool path. Keeps the agent from executing moderation
// actions without a verified human-originated identity attached.
var gatedActions = map[string]map[string]bool{
	protocol.ChannelDiscord: {
		protocol.ActionBan:           true,
		protocol.ActionKick:          true,
		protocol.ActionTimeout:       true,
		protocol.ActionDeleteMessage: true,
	},
	protocol.ChannelTelegram: {
		protocol.ActionBan:  true,
		protocol.ActionKick: true,
	},
	protocol.ChannelMatrix: {
		protocol.ActionBan:  true,
		protocol.ActionKick: true,
	},
}

// Dispatcher routes actions to plugins.
type Dispatcher struct {
	reg *Registry

	// Per-requester token buckets for tool-context dispatches.
	rpm      int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher creates a dispatcher over a registry. ratePerMinute caps
// tool-context dispatches per requester; 0 disables the limiter.
func NewDispatcher(reg *Registry, ratePerMinute int) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		rpm:      ratePerMinute,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Dispatch executes an action on the plugin registered for ac.Channel,
// falling back to any other loaded plugin that supports the action.
// Returns (nil, nil) when no plugin can perform it, a recognized
// "unsupported" outcome rather than an error.
func (d *Dispatcher) Dispatch(ctx context.Context, ac *ActionContext) (*ActionResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "dispatch.action",
		trace.WithAttributes(
			attribute.String("dispatch.channel", ac.Channel),
			attribute.String("dispatch.action", ac.Action),
			attribute.Bool("dispatch.tool_context", ac.ToolContext),
		))
	defer span.End()

	if err := d.authorize(ac); err != nil {
		return nil, err
	}
	if ac.ToolContext && !d.allow(ac.RequesterSenderID) {
		return nil, ErrRateLimited
	}

	// Primary dispatch.
	if p, ok := d.reg.Get(ac.Channel); ok {
		if res, handled, err := invoke(ctx, p, ac); handled {
			return res, err
		}
	}

	// Cross-channel fallback: some actions are channel-agnostic, and a
	// session may be talking on one channel while the action targets an
	// entity living on another loaded one.
	for _, p := range d.reg.Ordered() {
		if p.ID() == ac.Channel {
			continue
		}
		if res, handled, err := invoke(ctx, p, ac); handled {
			slog.Debug("action dispatched cross-channel",
				"requested", ac.Channel, "executed", p.ID(), "action", ac.Action)
			return res, err
		}
	}

	span.SetAttributes(attribute.Bool("dispatch.unsupported", true))
	return nil, nil
}

// invoke runs the action on one plugin if it declares a handler and accepts
// the action. handled=false means "try the next plugin".
func invoke(ctx context.Context, p Plugin, ac *ActionContext) (*ActionResult, bool, error) {
	h, ok := p.(ActionHandler)
	if !ok {
		return nil, false, nil
	}
	if s, ok := p.(ActionSupporter); ok && !s.SupportsAction(ac.Action) {
		return nil, false, nil
	}

	executed := *ac
	executed.Channel = p.ID()
	res, err := h.HandleAction(ctx, &executed)
	if err != nil {
		return nil, true, fmt.Errorf("%s %s: %w", p.ID(), ac.Action, err)
	}
	if res == nil {
		res = &ActionResult{}
	}
	res.ID = uuid.NewString()
	res.Channel = p.ID()
	res.Action = ac.Action
	return res, true, nil
}

// authorize enforces the trusted-requester gate.
func (d *Dispatcher) authorize(ac *ActionContext) error {
	if !ac.ToolContext {
		return nil
	}
	if !gatedActions[ac.Channel][ac.Action] {
		return nil
	}
	if ac.RequesterSenderID == "" {
		return fmt.Errorf("%s on %s: %w", ac.Action, ac.Channel, ErrNotAuthorized)
	}
	return nil
}

// allow checks the per-requester token bucket.
func (d *Dispatcher) allow(requester string) bool {
	if d.rpm <= 0 {
		return true
	}
	d.mu.Lock()
	lim, ok := d.limiters[requester]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(d.rpm)/60.0), d.rpm)
		d.limiters[requester] = lim
	}
	d.mu.Unlock()
	return lim.Allow()
}

// ListActions aggregates action names across all loaded plugins. The two
// built-ins are always present. Safe on every render path.
func (d *Dispatcher) ListActions() []string {
	set := map[string]bool{
		protocol.ActionSend:      true,
		protocol.ActionBroadcast: true,
	}
	for _, p := range d.reg.Ordered() {
		if l, ok := p.(ActionLister); ok {
			for _, a := range l.ListActions() {
				set[a] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// ChannelActions returns one channel's action names (built-ins included),
// or nil when the channel has no plugin.
func (d *Dispatcher) ChannelActions(channel string) []string {
	p, ok := d.reg.Get(channel)
	if !ok {
		return nil
	}
	set := map[string]bool{
		protocol.ActionSend:      true,
		protocol.ActionBroadcast: true,
	}
	if l, ok := p.(ActionLister); ok {
		for _, a := range l.ListActions() {
			set[a] = true
		}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// SupportsButtons reports whether a channel's plugin renders buttons.
func (d *Dispatcher) SupportsButtons(channel string) bool {
	p, ok := d.reg.Get(channel)
	if !ok {
		return false
	}
	b, ok := p.(ButtonSupporter)
	return ok && b.SupportsButtons()
}

// SupportsCards reports whether a channel's plugin renders cards.
func (d *Dispatcher) SupportsCards(channel string) bool {
	p, ok := d.reg.Get(channel)
	if !ok {
		return false
	}
	c, ok := p.(CardSupporter)
	return ok && c.SupportsCards()
}
