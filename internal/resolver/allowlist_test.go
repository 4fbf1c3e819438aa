package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAllowlistEmptyPath(t *testing.T) {
	a, err := LoadAllowlist("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil allowlist for empty path, got %+v", a)
	}
}

func TestLoadAllowlistMissingFile(t *testing.T) {
	a, err := LoadAllowlist(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != nil {
		t.Fatalf("expected nil allowlist for missing file, got %+v", a)
	}
}

func TestLoadAllowlistParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowlist.yaml")
	if err := os.WriteFile(path, []byte("platforms:\n  - twitch\n  - Kick\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	a, err := LoadAllowlist(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == nil {
		t.Fatal("expected a non-nil allowlist")
	}
	if !a.Allows("twitch") || !a.Allows("kick") {
		t.Fatalf("expected twitch and kick allowed, got %+v", a.Platforms)
	}
	if a.Allows("sora") {
		t.Fatal("expected sora to be disallowed")
	}
}

func TestAllowlistFilterPreservesOrder(t *testing.T) {
	a := &Allowlist{Platforms: []string{"sora", "twitch"}}
	kick := &fakeResolver{platform: "kick"}
	sora := &fakeResolver{platform: "sora"}
	twitch := &fakeResolver{platform: "twitch"}

	filtered := a.Filter([]Resolver{kick, sora, twitch})
	if len(filtered) != 2 || filtered[0].Platform() != "sora" || filtered[1].Platform() != "twitch" {
		t.Fatalf("unexpected filtered resolvers: %+v", filtered)
	}
}

func TestNilAllowlistAllowsEverything(t *testing.T) {
	var a *Allowlist
	if !a.Allows("anything") {
		t.Fatal("nil allowlist should allow every platform")
	}
	resolvers := []Resolver{&fakeResolver{platform: "kick"}}
	if len(a.Filter(resolvers)) != 1 {
		t.Fatal("nil allowlist should not filter any resolvers")
	}
}
