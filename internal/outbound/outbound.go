// Package outbound validates and canonicalizes raw recipient identifiers
// into channel-addressable form. Every non-empty recipient on a resolved
// delivery target has passed through here; an unnormalized recipient must
// never reach a sender.
package outbound

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/clawroute/internal/config"
)

// Request carries one recipient to normalize.
type Request struct {
	Channel   string
	To        string
	AccountID string
	Mode      string // "explicit" or "implicit", recorded in errors for diagnosis
	Cfg       *config.Config
}

// Error is a normalization rejection: recoverable, reported on the delivery
// target rather than returned as a Go error.
type Error struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Reason  string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s recipient %q: %s", e.Channel, e.To, e.Reason)
}

// Result reports success with the canonical recipient, or a typed failure.
type Result struct {
	OK  bool
	To  string
	Err *Error
}

var (
	numericID      = regexp.MustCompile(`^-?\d+$`)
	telegramUser   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`)
	discordSnowfl  = regexp.MustCompile(`^\d{5,20}$`)
	discordMention = regexp.MustCompile(`^<@!?(\d{5,20})>$`)
	matrixTarget   = regexp.MustCompile(`^[!#@][^:\s]+:[^:\s]+$`)
	feishuOpenID   = regexp.MustCompile(`^(oc|ou|on|om)_[a-zA-Z0-9]+$`)
	emailAddr      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	xHandle        = regexp.MustCompile(`^[a-zA-Z0-9_]{1,15}$`)
)

// Resolve normalizes req.To for req.Channel. Never returns a Go error.
// Idempotent: feeding a successful result back in returns it unchanged.
func Resolve(req Request) Result {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return fail(req, "empty recipient")
	}
	// Internal prefixed forms ("telegram:12345") collapse to the bare id.
	if rest, ok := strings.CutPrefix(to, req.Channel+":"); ok && rest != "" {
		to = rest
	}

	switch req.Channel {
	case "telegram":
		return resolveTelegram(req, to)
	case "discord":
		return resolveDiscord(req, to)
	case "matrix":
		return resolveMatrix(req, to)
	case "feishu":
		return resolveFeishu(req, to)
	case "x":
		return resolveX(req, to)
	default:
		// Unknown channels get pass-through: plugins loaded from outside
		// the built-in set validate their own identifiers.
		return ok(to)
	}
}

func resolveTelegram(req Request, to string) Result {
	if numericID.MatchString(to) {
		return ok(to)
	}
	name := strings.TrimPrefix(to, "@")
	if telegramUser.MatchString(name) {
		return ok("@" + strings.ToLower(name))
	}
	return fail(req, "expected a numeric chat id or @username")
}

func resolveDiscord(req Request, to string) Result {
	if m := discordMention.FindStringSubmatch(to); m != nil {
		return ok("user:" + m[1])
	}
	if rest, okPfx := strings.CutPrefix(to, "user:"); okPfx {
		if discordSnowfl.MatchString(rest) {
			return ok(to)
		}
		return fail(req, "malformed user id")
	}
	if rest, okPfx := strings.CutPrefix(to, "channel:"); okPfx {
		if discordSnowfl.MatchString(rest) {
			return ok(to)
		}
		return fail(req, "malformed channel id")
	}
	if discordSnowfl.MatchString(to) {
		return ok(to)
	}
	return fail(req, "expected a snowflake, user:<id>, or channel:<id>")
}

func resolveMatrix(req Request, to string) Result {
	if matrixTarget.MatchString(to) {
		return ok(to)
	}
	return fail(req, "expected !room:server, #alias:server, or @user:server")
}

func resolveFeishu(req Request, to string) Result {
	if feishuOpenID.MatchString(to) || emailAddr.MatchString(to) {
		return ok(to)
	}
	return fail(req, "expected an oc_/ou_/on_/om_ id or email")
}

func resolveX(req Request, to string) Result {
	if numericID.MatchString(to) {
		return ok(to)
	}
	name := strings.TrimPrefix(to, "@")
	if xHandle.MatchString(name) {
		return ok("@" + strings.ToLower(name))
	}
	return fail(req, "expected a numeric user id or @handle")
}

func ok(to string) Result {
	return Result{OK: true, To: to}
}

func fail(req Request, reason string) Result {
	return Result{Err: &Error{Channel: req.Channel, To: req.To, Reason: reason}}
}
