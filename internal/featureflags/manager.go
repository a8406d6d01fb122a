// Package featureflags evaluates the runtime switches configured through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Flag names a runtime switch.
type Flag string

const (
	// Signup exposes the registration page.
	Signup Flag = "signup"
	// IndexCache serves the index page through the page cache.
	IndexCache Flag = "index_cache"
)

// defaults apply to known flags absent from the configuration.
var defaults = map[Flag]string{
	Signup:     "on",
	IndexCache: "on",
}

// Manager holds flag values parsed from a "name=value" list,
// for example "signup=off,index_cache=25%".
type Manager struct {
	values map[Flag]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	values := make(map[Flag]string, len(defaults))
	for name, value := range defaults {
		values[name] = value
	}

	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, value = normalize(name), normalize(value)
		if name == "" || value == "" {
			continue
		}
		values[Flag(name)] = value
	}

	return &Manager{values: values}
}

// Enabled reports whether flag is on for the viewer userID (zero for anonymous).
// Values are on/true/1, off/false/0 or a rollout percentage "N%". Percentage
// rollouts are deterministic per user and exclude anonymous viewers.
func (m *Manager) Enabled(flag Flag, userID uint) bool {
	if m == nil {
		return false
	}
	value, ok := m.values[Flag(normalize(string(flag)))]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || !strings.HasSuffix(value, "%") {
		return false
	}
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(flag, userID) < pct
}

// Names lists configured flags in lexical order.
func (m *Manager) Names() []Flag {
	names := lo.Keys(m.values)
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Snapshot evaluates every configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[Flag]bool {
	return lo.SliceToMap(m.Names(), func(name Flag) (Flag, bool) {
		return name, m.Enabled(name, userID)
	})
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(flag Flag, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(string(flag)), userID)
	return int(h.Sum32() % 100)
}
