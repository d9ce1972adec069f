// Package bindings maps channels and agents to the bot accounts that serve
// them, for multi-account deployments. The resolver consults this only when
// no account can otherwise be determined.
package bindings

import (
	"strings"

	"github.com/nextlevelbuilder/clawroute/internal/config"
)

// Map is channel → agentID → ordered accountIDs. The first account bound to
// an agent is its default.
type Map map[string]map[string][]string

// Build derives the binding map from config. Pure and deterministic:
// explicit bindings first (config order), then each channel's accounts list
// (config order). Duplicate channel/agent/account triples collapse to the
// first occurrence.
func Build(cfg *config.Config) Map {
	out := Map{}

	add := func(channel, agentID, accountID string) {
		channel = strings.TrimSpace(channel)
		accountID = strings.TrimSpace(accountID)
		if channel == "" || accountID == "" {
			return
		}
		agentID = cfg.NormalizeAgentID(agentID)
		byAgent, ok := out[channel]
		if !ok {
			byAgent = map[string][]string{}
			out[channel] = byAgent
		}
		for _, existing := range byAgent[agentID] {
			if existing == accountID {
				return
			}
		}
		byAgent[agentID] = append(byAgent[agentID], accountID)
	}

	for _, b := range cfg.Bindings {
		add(b.Match.Channel, b.AgentID, b.Match.AccountID)
	}

	for _, channel := range config.ChannelOrder {
		for _, acct := range cfg.ChannelAccounts(channel) {
			agents := acct.Agents
			if len(agents) == 0 {
				agents = []string{cfg.ResolveDefaultAgentID()}
			}
			for _, agentID := range agents {
				add(channel, agentID, acct.ID)
			}
		}
	}

	return out
}

// DefaultAccount returns the first account bound to (channel, agentID),
// or "" when none is.
func (m Map) DefaultAccount(channel, agentID string) string {
	byAgent, ok := m[channel]
	if !ok {
		return ""
	}
	accounts := byAgent[agentID]
	if len(accounts) == 0 {
		return ""
	}
	return accounts[0]
}
