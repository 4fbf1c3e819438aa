package models

// Role is the authorization tier a REST or chat command requires.
type Role string

const (
	RolePublic      Role = "public"
	RoleModerator   Role = "moderator"   // moderator or broadcaster
	RoleBroadcaster Role = "broadcaster" // broadcaster only
)

// Allows reports whether a principal satisfies the required role.
func (r Role) Allows(p *Principal) bool {
	switch r {
	case RolePublic:
		return true
	case RoleModerator:
		return p.HasModeratorAccess()
	case RoleBroadcaster:
		return p != nil && p.IsBroadcaster
	default:
		return false
	}
}
