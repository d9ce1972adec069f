// Package protocol holds the constants shared between the routing core and
// its callers: channel ids, action names, delivery modes, and conversation
// scopes. Callers embed these in job payloads and dispatch requests; the
// routing core never invents values outside this set.
package protocol

// Channel identifiers for the built-in plugin set.
const (
	ChannelDiscord  = "discord"
	ChannelTelegram = "telegram"
	ChannelMatrix   = "matrix"
	ChannelFeishu   = "feishu"
	ChannelX        = "x"

	// ChannelLast is the sentinel meaning "whatever channel this agent
	// talked on most recently". It never appears in a resolved target.
	ChannelLast = "last"
)

// Built-in action names. Every loaded plugin is assumed to understand
// send and broadcast; everything else is opt-in via SupportsAction.
const (
	ActionSend      = "send"
	ActionBroadcast = "broadcast"

	// Moderation actions. These are gated when invoked from the agent's
	// tool-calling path (see dispatch.Dispatcher).
	ActionBan           = "ban"
	ActionKick          = "kick"
	ActionTimeout       = "timeout"
	ActionDeleteMessage = "delete-message"
)

// Delivery modes select which context wins when resolving a target.
const (
	// DeliveryOrigin prefers the job-creation context: a reminder fired
	// from a specific chat replies to that chat.
	DeliveryOrigin = "origin"
	// DeliveryCurrent prefers live session state over the job origin.
	DeliveryCurrent = "current"
)

// Conversation scopes. Distinct scopes never share a session.
const (
	ScopeDirect = "direct"
	ScopeGroup  = "group"
	ScopeThread = "thread"
)
