package models

import "time"

// EmployeeStatusActive is the default status of a new employee.
const EmployeeStatusActive = "Active"

// Employee is a person tracked in the skills matrix. IDs are assigned by HR.
type Employee struct {
	ID         int        `db:"id" json:"id"`
	FirstName  string     `db:"first_name" json:"first_name"`
	LastName   string     `db:"last_name" json:"last_name"`
	Position   *string    `db:"position" json:"position,omitempty"`
	Department *string    `db:"department" json:"department,omitempty"`
	HireDate   *time.Time `db:"hire_date" json:"hire_date,omitempty"`
	PhotoPath  *string    `db:"photo_path" json:"photo_path,omitempty"`
	QRCodePath *string    `db:"qr_code_path" json:"qr_code_path,omitempty"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// EmployeeFilter narrows employee listings.
type EmployeeFilter struct {
	Search     string
	Position   string
	Department string
	Page       int
	PageSize   int
}

// EmployeeFilterOptions are the distinct values offered as listing filters.
type EmployeeFilterOptions struct {
	Positions   []string `json:"positions"`
	Departments []string `json:"departments"`
}

// CreateEmployeeRequest is the form payload for a new employee.
type CreateEmployeeRequest struct {
	ID         int        `validate:"required,gt=0"`
	FirstName  string     `validate:"required,max=100"`
	LastName   string     `validate:"required,max=100"`
	Position   string     `validate:"max=100"`
	Department string     `validate:"max=100"`
	HireDate   *time.Time `validate:"-"`
}

// UpdateEmployeeRequest changes an employee's assignment. Nil fields are kept.
type UpdateEmployeeRequest struct {
	Position   *string `json:"position" validate:"omitempty,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
}

// EmployeeDetail is an employee with its assessed skills.
type EmployeeDetail struct {
	Employee
	Skills []EmployeeSkillView `json:"skills"`
}

// PublicProfile is the anonymous view reached from the badge QR code.
type PublicProfile struct {
	ID         int                `json:"id"`
	FirstName  string             `json:"first_name"`
	LastName   string             `json:"last_name"`
	Position   *string            `json:"position,omitempty"`
	Department *string            `json:"department,omitempty"`
	PhotoPath  *string            `json:"photo_path,omitempty"`
	Skills     []PublicSkillLevel `json:"skills"`
}

// PublicSkillLevel is a skill name with its level.
type PublicSkillLevel struct {
	SkillName string  `json:"skill_name"`
	Category  *string `json:"category,omitempty"`
	Level     string  `json:"level"`
}

// CreatedEmployee is the result of a create with per-step upload outcomes.
type CreatedEmployee struct {
	Employee     *Employee
	PhotoFailed  bool
	QRCodeFailed bool
}

// Upload is a staged file awaiting transfer to the media store.
type Upload struct {
	StagedName string
	Filename   string
}
