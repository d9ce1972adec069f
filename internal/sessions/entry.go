package sessions

import (
	"strings"
	"time"
)

// Entry is the persisted record for one session key. The routing core only
// reads it; the storage layer owns writes, including the bookkeeping fields
// it stores alongside the routing state.
type Entry struct {
	SessionID string    `json:"sessionId"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Routing state, refreshed by the caller after each successful send.
	LastChannel   string `json:"lastChannel,omitempty"`
	LastTo        string `json:"lastTo,omitempty"`
	LastAccountID string `json:"lastAccountId,omitempty"`
	LastThreadID  string `json:"lastThreadId,omitempty"`

	// Bookkeeping owned by the storage layer, carried opaquely.
	TranscriptPath  string `json:"transcriptPath,omitempty"`
	CompactionCount int    `json:"compactionCount,omitempty"`
	InputTokens     int64  `json:"inputTokens,omitempty"`
	OutputTokens    int64  `json:"outputTokens,omitempty"`
}

// Store is an immutable snapshot of the session store, keyed by canonical
// session key. Absence of a key is the valid "new conversation" state.
type Store map[string]Entry

// Get looks up an entry, distinguishing absence from a zero entry.
func (s Store) Get(key string) (Entry, bool) {
	e, ok := s[key]
	return e, ok
}

// LastUsed finds the most recently updated channel session for an agent and
// returns its key and entry. Cron and other non-channel sessions are
// skipped. Used to resolve the "last" channel sentinel.
func (s Store) LastUsed(agentID string) (string, Entry, bool) {
	prefix := "agent:" + agentID + ":"
	var (
		bestKey string
		best    Entry
	)
	for key, e := range s {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "main" || strings.HasPrefix(rest, "cron:") || strings.HasPrefix(rest, "subagent:") {
			continue
		}
		if bestKey == "" || e.UpdatedAt.After(best.UpdatedAt) {
			bestKey = key
			best = e
		}
	}
	if bestKey == "" {
		return "", Entry{}, false
	}
	return bestKey, best, true
}
