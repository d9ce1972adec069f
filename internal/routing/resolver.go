// Package routing decides where an outbound message goes: which channel,
// account, recipient, and thread. It combines explicit request fields, a
// job's origin context, persisted session history, and account bindings
// into one delivery target, without ever performing I/O itself.
package routing

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/clawroute/internal/bindings"
	"github.com/nextlevelbuilder/clawroute/internal/config"
	"github.com/nextlevelbuilder/clawroute/internal/outbound"
	"github.com/nextlevelbuilder/clawroute/internal/sessions"
	"github.com/nextlevelbuilder/clawroute/internal/tracing"
	"github.com/nextlevelbuilder/clawroute/pkg/protocol"
)

// DefaultChannel is the final fallback tier when neither payload, origin,
// session history, nor config yields a channel.
const DefaultChannel = protocol.ChannelTelegram

// Resolution modes on the target: whether the recipient was explicitly
// requested or inferred from session history.
const (
	ModeExplicit = "explicit"
	ModeImplicit = "implicit"
)

// Origin is the immutable context captured when a job was created:
// where it was originally invoked from.
type Origin struct {
	Channel   string `json:"channel,omitempty"`
	To        string `json:"to,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	ThreadID  string `json:"threadId,omitempty"`
}

// JobPayload carries the caller's override fields for one delivery.
// Channel may be a concrete channel id or the "last" sentinel; SessionKey
// targets a thread session instead of the agent's main session.
type JobPayload struct {
	Channel    string `json:"channel,omitempty"`
	To         string `json:"to,omitempty"`
	SessionKey string `json:"sessionKey,omitempty"`
}

// ChannelSelector supplies the configured default channel. May fail, in
// which case resolution moves to the next fallback tier.
type ChannelSelector func(*config.Config) (string, error)

// Options adjust one resolution call.
type Options struct {
	Origin *Origin
	// Mode defaults to delivery mode "origin"; "current" prefers live
	// session state over the job origin.
	Mode string
	// Select overrides the default-channel collaborator (tests mostly).
	Select ChannelSelector
}

// Target is the resolver output. An empty To with a nil Err is the valid
// "no known recipient yet" terminal state; a non-empty To has always passed
// the outbound normalizer for Channel.
type Target struct {
	Channel   string          `json:"channel"`
	To        string          `json:"to,omitempty"`
	AccountID string          `json:"accountId,omitempty"`
	ThreadID  string          `json:"threadId,omitempty"`
	Mode      string          `json:"mode"`
	Err       *outbound.Error `json:"error,omitempty"`
}

// Resolve computes the delivery target for one outbound message. It only
// reads the store snapshot and config; it never writes and never returns a
// Go error: normalization rejections land on Target.Err.
func Resolve(ctx context.Context, cfg *config.Config, store sessions.Store, agentID string, payload JobPayload, opts Options) Target {
	_, span := tracing.Tracer().Start(ctx, "routing.resolve",
		trace.WithAttributes(attribute.String("agent.id", agentID)))
	defer span.End()

	agentID = cfg.NormalizeAgentID(agentID)

	deliveryMode := opts.Mode
	if deliveryMode == "" {
		deliveryMode = protocol.DeliveryOrigin
	}
	origin := opts.Origin
	useOrigin := deliveryMode == protocol.DeliveryOrigin && origin != nil

	explicitChannel := payload.Channel != "" && payload.Channel != protocol.ChannelLast
	explicitTo := strings.TrimSpace(payload.To)

	// Origin short-circuit: a job meant to reply where it was created
	// skips session lookup entirely. Origin is authoritative here, so its
	// account and thread ids are copied as-is.
	if useOrigin && origin.Channel != "" && origin.To != "" && !explicitChannel && explicitTo == "" {
		t := Target{
			Channel:   origin.Channel,
			AccountID: origin.AccountID,
			ThreadID:  origin.ThreadID,
			Mode:      ModeExplicit,
		}
		res := outbound.Resolve(outbound.Request{
			Channel: origin.Channel, To: origin.To,
			AccountID: origin.AccountID, Mode: ModeExplicit, Cfg: cfg,
		})
		if res.OK {
			t.To = res.To
		} else {
			t.Err = res.Err
		}
		finishSpan(span, t)
		return t
	}

	// Effective request: payload wins, then origin, then the sentinel.
	requested := protocol.ChannelLast
	if explicitChannel {
		requested = payload.Channel
	} else if useOrigin && origin.Channel != "" {
		requested = origin.Channel
	}
	effTo := explicitTo
	if effTo == "" && useOrigin {
		effTo = strings.TrimSpace(origin.To)
	}
	// A "last channel" request may legitimately resolve to any recipient
	// previously used there.
	allowMismatchedLastTo := requested == protocol.ChannelLast

	// Session lookup: a thread session named by the payload wins over the
	// agent's main session; with neither, fall back to the most recently
	// used channel session.
	var entry *sessions.Entry
	threadSession := false
	if payload.SessionKey != "" {
		if e, ok := store.Get(payload.SessionKey); ok {
			entry = &e
			threadSession = sessions.IsThreadKey(payload.SessionKey)
		}
	}
	if entry == nil {
		if e, ok := store.Get(sessions.MainKey(agentID)); ok {
			entry = &e
		} else if _, e, ok := store.LastUsed(agentID); ok {
			entry = &e
		}
	}

	derive := func(channel string) (ch, to, acct, thread string) {
		ch = channel
		to = effTo
		if entry == nil {
			return
		}
		if ch == "" {
			ch = entry.LastChannel
		}
		if to == "" && entry.LastTo != "" && (allowMismatchedLastTo || entry.LastChannel == ch) {
			to = entry.LastTo
		}
		if entry.LastChannel == ch {
			acct = entry.LastAccountID
			thread = entry.LastThreadID
		}
		return
	}

	reqConcrete := ""
	if requested != protocol.ChannelLast {
		reqConcrete = requested
	}
	ch, to, acct, thread := derive(reqConcrete)

	// Fallback channel tiers: origin, configured default, stored last
	// channel, global default.
	if ch == "" {
		fallback := ""
		if useOrigin && origin.Channel != "" {
			fallback = origin.Channel
		}
		if fallback == "" {
			sel := opts.Select
			if sel == nil {
				sel = config.ResolveDefaultChannelSelection
			}
			if c, err := sel(cfg); err == nil {
				fallback = c
			}
		}
		if fallback == "" && entry != nil {
			fallback = entry.LastChannel
		}
		if fallback == "" {
			fallback = DefaultChannel
		}
		ch, to, acct, thread = derive(fallback)
	}

	// Account: session wins, then the binding map's default.
	// Origin account ids never override session-resolved values outside
	// the short-circuit path.
	if acct == "" {
		acct = bindings.Build(cfg).DefaultAccount(ch, agentID)
	}

	// Thread-leak guard: a thread id captured for one recipient must not
	// attach to a message addressed to another. Carry it only when the
	// payload named a thread session or the recipient is unchanged.
	if thread != "" && !threadSession && !(entry != nil && to == entry.LastTo) {
		thread = ""
	}

	mode := ModeImplicit
	if effTo != "" {
		mode = ModeExplicit
	}
	t := Target{Channel: ch, AccountID: acct, ThreadID: thread, Mode: mode}
	if to != "" {
		res := outbound.Resolve(outbound.Request{
			Channel: ch, To: to, AccountID: acct, Mode: mode, Cfg: cfg,
		})
		if res.OK {
			t.To = res.To
		} else {
			t.Err = res.Err
		}
	}
	finishSpan(span, t)
	return t
}

func finishSpan(span trace.Span, t Target) {
	span.SetAttributes(
		attribute.String("target.channel", t.Channel),
		attribute.String("target.mode", t.Mode),
		attribute.Bool("target.has_to", t.To != ""),
	)
	if t.Err != nil {
		span.SetAttributes(attribute.String("target.error", t.Err.Reason))
	}
}
