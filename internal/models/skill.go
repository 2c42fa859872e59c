package models

import (
	"fmt"
	"strings"
	"time"
)

// Skill is an entry in the skills catalogue.
type Skill struct {
	ID          int     `db:"id" json:"id"`
	SkillName   string  `db:"skill_name" json:"skill_name"`
	Category    *string `db:"category" json:"category,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
}

// CreateSkillRequest adds a skill to the catalogue.
type CreateSkillRequest struct {
	SkillName   string `json:"skill_name" validate:"required,max=100"`
	Category    string `json:"category" validate:"max=100"`
	Description string `json:"description"`
}

// SkillLevel is an assessment grade from A (expert) to E (beginner).
type SkillLevel string

// SkillLevels lists every valid level in order.
var SkillLevels = []SkillLevel{"A", "B", "C", "D", "E"}

// ParseSkillLevel accepts a level in any case.
func ParseSkillLevel(raw string) (SkillLevel, error) {
	level := SkillLevel(strings.ToUpper(strings.TrimSpace(raw)))
	for _, valid := range SkillLevels {
		if level == valid {
			return level, nil
		}
	}
	return "", fmt.Errorf("level must be one of A, B, C, D, E")
}

// EmployeeSkill links an employee to an assessed skill.
type EmployeeSkill struct {
	ID           int        `db:"id" json:"id"`
	EmployeeID   int        `db:"employee_id" json:"employee_id"`
	SkillID      int        `db:"skill_id" json:"skill_id"`
	Level        SkillLevel `db:"level" json:"level"`
	LastAssessed *time.Time `db:"last_assessed" json:"last_assessed,omitempty"`
	Trainer      *string    `db:"trainer" json:"trainer,omitempty"`
	Remarks      *string    `db:"remarks" json:"remarks,omitempty"`
	Attachment   *string    `db:"attachment" json:"attachment,omitempty"`
}

// EmployeeSkillView is an assessment joined to its skill.
type EmployeeSkillView struct {
	EmployeeSkill
	SkillName string  `db:"skill_name" json:"skill_name"`
	Category  *string `db:"category" json:"category,omitempty"`
}

// AssignSkillRequest is the form payload of a skill assessment.
type AssignSkillRequest struct {
	SkillID      int        `validate:"required,gt=0"`
	Level        string     `validate:"required"`
	LastAssessed *time.Time `validate:"-"`
	Trainer      string     `validate:"max=100"`
	Remarks      string     `validate:"-"`
}

// AssignedSkill is the result of an assignment.
type AssignedSkill struct {
	EmployeeSkill    *EmployeeSkill
	SkillName        string
	AttachmentFailed bool
}

// MatrixCell is one level in the exported skill matrix.
type MatrixCell struct {
	EmployeeID int        `db:"employee_id"`
	SkillID    int        `db:"skill_id"`
	Level      SkillLevel `db:"level"`
}
