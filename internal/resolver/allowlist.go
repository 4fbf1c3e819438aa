package resolver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Allowlist is an optional static operator control, loaded once at startup from a YAML
// file, that restricts which platform resolvers get wired into the Dispatcher at all.
// It is independent of Settings.Queue.EnabledPlatforms, which gates already-wired
// platforms at submission time and can be changed at runtime via the settings endpoint.
type Allowlist struct {
	Platforms []string `yaml:"platforms"`
}

// LoadAllowlist reads an Allowlist from path. An empty path or a missing file is not an
// error: callers get a nil Allowlist, and Allows treats nil as "every platform wired."
func LoadAllowlist(path string) (*Allowlist, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolver: read allowlist %s: %w", path, err)
	}

	var a Allowlist
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("resolver: parse allowlist %s: %w", path, err)
	}
	return &a, nil
}

// Allows reports whether platform may be wired. A nil Allowlist (none configured, or an
// empty platforms list) allows everything.
func (a *Allowlist) Allows(platform string) bool {
	if a == nil || len(a.Platforms) == 0 {
		return true
	}
	for _, p := range a.Platforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}

// Filter returns the subset of resolvers this allowlist permits, preserving order.
func (a *Allowlist) Filter(resolvers []Resolver) []Resolver {
	if a == nil || len(a.Platforms) == 0 {
		return resolvers
	}
	kept := make([]Resolver, 0, len(resolvers))
	for _, r := range resolvers {
		if a.Allows(r.Platform()) {
			kept = append(kept, r)
		}
	}
	return kept
}
