package ratelimit

// Window is one (max_requests, window_seconds) pair checked against a
// sliding-window log key.
type Window struct {
	Max     int
	Seconds int
}

// defaultWindow applies to any (endpoint, trust_level) pair not listed in
// rules below (§4.4).
var defaultWindow = []Window{{Max: 10, Seconds: 60}}

// rules is the trust-level × endpoint rule table from §4.4. Every endpoint
// with a trust-level-specific row checks ALL of its windows.
var rules = map[string]map[int][]Window{
	"memory:write": {
		0: {{Max: 1, Seconds: 60}, {Max: 2, Seconds: 86400}},
		1: {{Max: 5, Seconds: 60}, {Max: 50, Seconds: 86400}},
		2: {{Max: 10, Seconds: 60}, {Max: 200, Seconds: 86400}},
	},
	"memory:search": {
		0: {{Max: 30, Seconds: 60}},
		1: {{Max: 120, Seconds: 60}},
		2: {{Max: 120, Seconds: 60}},
	},
	"memory:get": {
		0: {{Max: 60, Seconds: 60}},
		1: {{Max: 300, Seconds: 60}},
		2: {{Max: 300, Seconds: 60}},
	},
}

// RegistrationIPWindow is the unauthenticated per-IP rule guarding
// /agents/register.
var RegistrationIPWindow = Window{Max: 5, Seconds: 3600}

// Limits returns the windows that apply to endpoint at trustLevel.
func Limits(endpoint string, trustLevel int) []Window {
	byTrust, ok := rules[endpoint]
	if !ok {
		return defaultWindow
	}
	windows, ok := byTrust[trustLevel]
	if !ok {
		return defaultWindow
	}
	return windows
}
