package models

import "testing"

func TestRoleAllows(t *testing.T) {
	broadcaster := &Principal{UserID: "1", IsBroadcaster: true}
	moderator := &Principal{UserID: "2", IsModerator: true}
	viewer := &Principal{UserID: "3"}

	cases := []struct {
		name string
		role Role
		p    *Principal
		want bool
	}{
		{"public allows nil", RolePublic, nil, true},
		{"public allows viewer", RolePublic, viewer, true},
		{"moderator role allows moderator", RoleModerator, moderator, true},
		{"moderator role allows broadcaster", RoleModerator, broadcaster, true},
		{"moderator role rejects viewer", RoleModerator, viewer, false},
		{"moderator role rejects nil", RoleModerator, nil, false},
		{"broadcaster role rejects moderator", RoleBroadcaster, moderator, false},
		{"broadcaster role allows broadcaster", RoleBroadcaster, broadcaster, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.role.Allows(tc.p); got != tc.want {
				t.Errorf("%s.Allows(%v) = %v, want %v", tc.role, tc.p, got, tc.want)
			}
		})
	}
}

func TestPrincipalHasModeratorAccess(t *testing.T) {
	if (&Principal{}).HasModeratorAccess() {
		t.Error("plain viewer should not have moderator access")
	}
	if !(&Principal{IsModerator: true}).HasModeratorAccess() {
		t.Error("moderator should have moderator access")
	}
	if !(&Principal{IsBroadcaster: true}).HasModeratorAccess() {
		t.Error("broadcaster should have moderator access")
	}
	var nilPrincipal *Principal
	if nilPrincipal.HasModeratorAccess() {
		t.Error("nil principal should not have moderator access")
	}
}
