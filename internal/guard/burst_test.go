package guard

import "testing"

func TestBurstGuardAllowsUpToBurstThenBlocks(t *testing.T) {
	g := NewBurstGuard(1, 3)

	for i := 0; i < 3; i++ {
		if !g.Allow("kick") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if g.Allow("kick") {
		t.Fatal("4th immediate request should be blocked")
	}
}

func TestBurstGuardTracksKeysIndependently(t *testing.T) {
	g := NewBurstGuard(1, 1)

	if !g.Allow("kick") {
		t.Fatal("first kick request should be allowed")
	}
	if !g.Allow("twitch") {
		t.Fatal("twitch should have its own independent bucket")
	}
	if g.Allow("kick") {
		t.Fatal("second immediate kick request should be blocked")
	}
}
