package outbound

import "testing"

func TestResolve_PerChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		to      string
		want    string
		wantErr bool
	}{
		// telegram
		{name: "telegram numeric", channel: "telegram", to: "386246614", want: "386246614"},
		{name: "telegram negative group id", channel: "telegram", to: "-1001234", want: "-1001234"},
		{name: "telegram username lowercased", channel: "telegram", to: "@SomeUser", want: "@someuser"},
		{name: "telegram bare username", channel: "telegram", to: "someuser", want: "@someuser"},
		{name: "telegram username too short", channel: "telegram", to: "@abc", wantErr: true},
		{name: "telegram garbage", channel: "telegram", to: "not a user!", wantErr: true},

		// discord
		{name: "discord snowflake", channel: "discord", to: "123456789012345678", want: "123456789012345678"},
		{name: "discord user prefix", channel: "discord", to: "user:123456789012345678", want: "user:123456789012345678"},
		{name: "discord channel prefix", channel: "discord", to: "channel:123456789012345678", want: "channel:123456789012345678"},
		{name: "discord mention", channel: "discord", to: "<@123456789012345678>", want: "user:123456789012345678"},
		{name: "discord nickname mention", channel: "discord", to: "<@!123456789012345678>", want: "user:123456789012345678"},
		{name: "discord bad user id", channel: "discord", to: "user:abc", wantErr: true},
		{name: "discord garbage", channel: "discord", to: "hello", wantErr: true},

		// matrix
		{name: "matrix room", channel: "matrix", to: "!room:example.org", want: "!room:example.org"},
		{name: "matrix alias", channel: "matrix", to: "#general:example.org", want: "#general:example.org"},
		{name: "matrix user", channel: "matrix", to: "@alice:example.org", want: "@alice:example.org"},
		{name: "matrix missing server", channel: "matrix", to: "!room", wantErr: true},

		// feishu
		{name: "feishu chat", channel: "feishu", to: "oc_abc123", want: "oc_abc123"},
		{name: "feishu open id", channel: "feishu", to: "ou_xyz", want: "ou_xyz"},
		{name: "feishu email", channel: "feishu", to: "user@example.com", want: "user@example.com"},
		{name: "feishu garbage", channel: "feishu", to: "whatever", wantErr: true},

		// x
		{name: "x numeric", channel: "x", to: "44196397", want: "44196397"},
		{name: "x handle lowercased", channel: "x", to: "@JackDorsey", want: "@jackdorsey"},
		{name: "x handle too long", channel: "x", to: "@aaaaaaaaaaaaaaaa", wantErr: true},

		// generic
		{name: "prefixed form collapses", channel: "telegram", to: "telegram:12345", want: "12345"},
		{name: "whitespace trimmed", channel: "telegram", to: "  12345  ", want: "12345"},
		{name: "empty recipient", channel: "telegram", to: "", wantErr: true},
		{name: "unknown channel passes through", channel: "irc", to: "#chan", want: "#chan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(Request{Channel: tt.channel, To: tt.to})
			if tt.wantErr {
				if res.OK {
					t.Fatalf("Resolve(%s, %q) = %q, want rejection", tt.channel, tt.to, res.To)
				}
				if res.Err == nil || res.Err.Reason == "" {
					t.Fatal("rejection carries no reason")
				}
				return
			}
			if !res.OK {
				t.Fatalf("Resolve(%s, %q) rejected: %v", tt.channel, tt.to, res.Err)
			}
			if res.To != tt.want {
				t.Errorf("Resolve(%s, %q) = %q, want %q", tt.channel, tt.to, res.To, tt.want)
			}
		})
	}
}

// TestResolve_Idempotent verifies that feeding a normalized recipient back
// through Resolve returns it unchanged, for every built-in channel.
func TestResolve_Idempotent(t *testing.T) {
	cases := []struct{ channel, to string }{
		{"telegram", "@SomeUser"},
		{"telegram", "386246614"},
		{"discord", "<@123456789012345678>"},
		{"discord", "channel:123456789012345678"},
		{"matrix", "!room:example.org"},
		{"feishu", "oc_abc123"},
		{"x", "@JackDorsey"},
	}

	for _, c := range cases {
		first := Resolve(Request{Channel: c.channel, To: c.to})
		if !first.OK {
			t.Fatalf("Resolve(%s, %q) rejected: %v", c.channel, c.to, first.Err)
		}
		second := Resolve(Request{Channel: c.channel, To: first.To})
		if !second.OK || second.To != first.To {
			t.Errorf("Resolve(%s, %q) not idempotent: %q then %q", c.channel, c.to, first.To, second.To)
		}
	}
}
