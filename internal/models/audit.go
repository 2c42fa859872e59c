package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Audit actions.
const (
	AuditActionRegisterUser   = "register_user"
	AuditActionLogin          = "login"
	AuditActionLoginFailed    = "login_failed"
	AuditActionLogout         = "logout"
	AuditActionPromoteUser    = "promote_user"
	AuditActionDemoteUser     = "demote_user"
	AuditActionAddEmployee    = "add_employee"
	AuditActionUpdateEmployee = "update_employee"
	AuditActionUpdatePhoto    = "update_photo"
	AuditActionDeleteEmployee = "delete_employee"
	AuditActionAddSkill       = "add_skill"
	AuditActionDeleteSkill    = "delete_skill"
	AuditActionAssignSkill    = "assign_skill"
	AuditActionAccessDenied   = "access_denied"
)

// Audit entity types.
const (
	EntityUser          = "User"
	EntityEmployee      = "Employee"
	EntitySkill         = "Skill"
	EntityEmployeeSkill = "EmployeeSkill"
	EntityRoute         = "Route"
)

// AuditLog is one append-only audit trail row.
type AuditLog struct {
	ID         int64          `db:"id" json:"id"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UserID     *string        `db:"user_id" json:"user_id,omitempty"`
	Username   *string        `db:"username" json:"username,omitempty"`
	Action     string         `db:"action" json:"action"`
	EntityType *string        `db:"entity_type" json:"entity_type,omitempty"`
	EntityID   *string        `db:"entity_id" json:"entity_id,omitempty"`
	Details    types.JSONText `db:"details" json:"details"`
	IPAddress  *string        `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  *string        `db:"user_agent" json:"user_agent,omitempty"`
}

// AuditEntry is what callers hand to the recorder.
type AuditEntry struct {
	UserID     *string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]interface{}
	Meta       RequestMeta
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	Action     string
	EntityType string
	UserID     string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
