package command

import "github.com/subculture-collective/clipqueue/internal/models"

// RoleForCommand is the per-command role requirement, mirroring the REST-path role table.
// Commands absent from this map (unrecognized names) are handled by the unknown-command
// no-op path, not a role lookup.
var RoleForCommand = map[string]models.Role{
	"open":            models.RoleBroadcaster,
	"close":           models.RoleBroadcaster,
	"clear":           models.RoleBroadcaster,
	"setlimit":        models.RoleBroadcaster,
	"removelimit":     models.RoleBroadcaster,
	"enableplatform":  models.RoleBroadcaster,
	"disableplatform": models.RoleBroadcaster,
	"enableautomod":   models.RoleBroadcaster,
	"disableautomod":  models.RoleBroadcaster,
	"purgecache":      models.RoleBroadcaster,
	"purgehistory":    models.RoleBroadcaster,

	"next":              models.RoleModerator,
	"prev":              models.RoleModerator,
	"previous":          models.RoleModerator,
	"removebysubmitter": models.RoleModerator,
	"removebyplatform":  models.RoleModerator,
}
