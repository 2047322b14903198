// Package featureflags evaluates runtime toggles configured through FEATURE_FLAGS.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Flags read by the API.
const (
	// RedactUserPasswords strips the password field from user reads.
	RedactUserPasswords = "redact_user_passwords"
	// RequireIfMatch rejects writes without an If-Match header with 428.
	RequireIfMatch = "require_if_match"
)

// rule is one parsed flag. percent is 100 for "on" and 0 for "off" or any
// value that does not parse.
type rule struct {
	raw     string
	percent int
}

// Manager evaluates flags from a comma separated key=value list, for example
// "redact_user_passwords=on,require_if_match=25%". Percentages roll out to a
// stable subset of session users.
type Manager struct {
	rules map[string]rule
}

func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		rules[key] = rule{raw: value, percent: parsePercent(value)}
	}
	return &Manager{rules: rules}
}

func parsePercent(value string) int {
	switch value {
	case "on", "true", "1":
		return 100
	case "off", "false", "0":
		return 0
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") {
		return 0
	}
	return min(max(pct, 0), 100)
}

// Enabled reports whether name is on for userID. Partial rollouts never apply
// to anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID int64) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	switch {
	case !ok || r.percent == 0:
		return false
	case r.percent == 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(normalize(name), userID) < r.percent
}

// Raw returns the configured values by flag name.
func (m *Manager) Raw() map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for name, r := range m.rules {
		out[name] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID int64) map[string]bool {
	out := map[string]bool{}
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % 100)
}
