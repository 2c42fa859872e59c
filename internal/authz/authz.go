// Package authz decides whether a principal may perform an action.
package authz

import (
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

// Action names a guarded operation.
type Action string

const (
	ActionLogin             Action = "login"
	ActionRegister          Action = "register"
	ActionViewPublicProfile Action = "view_public_profile"

	ActionViewListings   Action = "view_listings"
	ActionAddEmployee    Action = "add_employee"
	ActionUpdatePhoto    Action = "update_photo"
	ActionAssignSkill    Action = "assign_skill"
	ActionAddSkill       Action = "add_skill"
	ActionDownloadBadge  Action = "download_badge"
	ActionExportMatrix   Action = "export_matrix"
	ActionViewOwnProfile Action = "view_own_profile"
	ActionLogout         Action = "logout"

	ActionDeleteEmployee         Action = "delete_employee"
	ActionDeleteSkill            Action = "delete_skill"
	ActionChangeRole             Action = "change_role"
	ActionViewAuditLog           Action = "view_audit_log"
	ActionEditEmployeeAssignment Action = "edit_employee_assignment"
)

// Zone is the minimum standing an action requires.
type Zone int

const (
	ZonePublic Zone = iota
	ZoneAuthenticated
	ZoneAdmin
)

func (z Zone) String() string {
	switch z {
	case ZonePublic:
		return "public"
	case ZoneAuthenticated:
		return "authenticated"
	case ZoneAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

var zones = map[Action]Zone{
	ActionLogin:             ZonePublic,
	ActionRegister:          ZonePublic,
	ActionViewPublicProfile: ZonePublic,

	ActionViewListings:   ZoneAuthenticated,
	ActionAddEmployee:    ZoneAuthenticated,
	ActionUpdatePhoto:    ZoneAuthenticated,
	ActionAssignSkill:    ZoneAuthenticated,
	ActionAddSkill:       ZoneAuthenticated,
	ActionDownloadBadge:  ZoneAuthenticated,
	ActionExportMatrix:   ZoneAuthenticated,
	ActionViewOwnProfile: ZoneAuthenticated,
	ActionLogout:         ZoneAuthenticated,

	ActionDeleteEmployee:         ZoneAdmin,
	ActionDeleteSkill:            ZoneAdmin,
	ActionChangeRole:             ZoneAdmin,
	ActionViewAuditLog:           ZoneAdmin,
	ActionEditEmployeeAssignment: ZoneAdmin,
}

// ZoneOf returns the zone of a known action.
func ZoneOf(action Action) (Zone, bool) {
	zone, ok := zones[action]
	return zone, ok
}

// Authorize returns nil when p may perform action. Anonymous callers on
// guarded actions get ErrNotAuthenticated; everything else that is refused,
// including unknown actions, gets ErrForbidden.
func Authorize(p *models.Principal, action Action) error {
	zone, ok := zones[action]
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "unknown action")
	}

	switch zone {
	case ZonePublic:
		return nil
	case ZoneAuthenticated:
		if !p.Authenticated() {
			return appErrors.ErrNotAuthenticated
		}
		return nil
	case ZoneAdmin:
		if !p.Authenticated() {
			return appErrors.ErrNotAuthenticated
		}
		if p.Role != models.RoleAdmin {
			return appErrors.ErrForbidden
		}
		return nil
	default:
		return appErrors.ErrForbidden
	}
}

// Allowed is Authorize as a boolean.
func Allowed(p *models.Principal, action Action) bool {
	return Authorize(p, action) == nil
}
