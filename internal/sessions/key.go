// Package sessions defines the session key model and store snapshot.
//
// Session keys follow the canonical format:
//
//	agent:{agentId}:{rest}
//
// Where {rest} depends on the conversation scope:
//
//	DM:     {channel}:direct:{peerId}
//	Group:  {channel}:group:{groupId}
//	Thread: {channel}:group:{groupId}:thread:{threadId}
//	Main:   main
//	Cron:   cron:{jobId}:run:{runId}
//
// Examples:
//
//	agent:main:telegram:direct:386246614
//	agent:main:discord:group:99887766
//	agent:main:feishu:group:oc_abc:thread:t9
//	agent:main:main
//	agent:main:cron:reminder:run:8c6f...
//
// A thread key is always derived from, and distinct from, its parent
// group key. Two keys are equal iff every component is equal.
package sessions

import (
	"fmt"
	"strings"
)

// Scope distinguishes conversation kinds within a channel.
type Scope string

const (
	ScopeDirect Scope = "direct"
	ScopeGroup  Scope = "group"
)

// Key builds the canonical session key for a channel conversation.
func Key(agentID, channel string, scope Scope, peerID string) string {
	return fmt.Sprintf("agent:%s:%s:%s:%s", agentID, channel, scope, peerID)
}

// ThreadKey builds the session key for a thread inside a group. It appends
// to the group key so the thread session never collides with its parent.
func ThreadKey(agentID, channel, groupID, threadID string) string {
	return fmt.Sprintf("%s:thread:%s", Key(agentID, channel, ScopeGroup, groupID), threadID)
}

// MainKey builds the agent's main session key, the store entry the resolver
// consults when a payload names no thread session.
func MainKey(agentID string) string {
	return fmt.Sprintf("agent:%s:main", agentID)
}

// CronRunKey builds the session key for one cron job run. Guards against
// double-prefixing when jobID is already a canonical session key.
func CronRunKey(agentID, jobID, runID string) string {
	if _, rest := Split(jobID); rest != "" {
		jobID = rest
	}
	return fmt.Sprintf("agent:%s:cron:%s:run:%s", agentID, jobID, runID)
}

// Split extracts the agentID and rest from a canonical session key.
// Returns ("", "") if the key is not in the expected format.
func Split(key string) (agentID, rest string) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 3 || parts[0] != "agent" {
		return "", ""
	}
	return parts[1], parts[2]
}

// Parts is a parsed session key.
type Parts struct {
	AgentID  string
	Channel  string
	Scope    Scope
	PeerID   string
	ThreadID string // set only for thread keys
}

// Parse decomposes a channel-scoped session key. Main, cron, and other
// non-channel keys return ok=false.
func Parse(key string) (Parts, bool) {
	agentID, rest := Split(key)
	if agentID == "" {
		return Parts{}, false
	}
	seg := strings.Split(rest, ":")
	if len(seg) < 3 {
		return Parts{}, false
	}
	scope := Scope(seg[1])
	if scope != ScopeDirect && scope != ScopeGroup {
		return Parts{}, false
	}
	p := Parts{AgentID: agentID, Channel: seg[0], Scope: scope, PeerID: seg[2]}
	if len(seg) == 5 && seg[3] == "thread" {
		p.ThreadID = seg[4]
	} else if len(seg) != 3 {
		return Parts{}, false
	}
	return p, true
}

// IsThreadKey reports whether key addresses a thread session.
func IsThreadKey(key string) bool {
	p, ok := Parse(key)
	return ok && p.ThreadID != ""
}

// IsCronKey reports whether key belongs to a cron run session.
func IsCronKey(key string) bool {
	_, rest := Split(key)
	return strings.HasPrefix(rest, "cron:")
}

// ScopeFromGroup returns ScopeGroup if isGroup is true, ScopeDirect otherwise.
func ScopeFromGroup(isGroup bool) Scope {
	if isGroup {
		return ScopeGroup
	}
	return ScopeDirect
}
