package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

// EmployeeSkillRepository stores skill assessments.
type EmployeeSkillRepository struct {
	db *sqlx.DB
}

// NewEmployeeSkillRepository creates a new EmployeeSkillRepository.
func NewEmployeeSkillRepository(db *sqlx.DB) *EmployeeSkillRepository {
	return &EmployeeSkillRepository{db: db}
}

// Create inserts an assessment and sets its generated id.
func (r *EmployeeSkillRepository) Create(ctx context.Context, es *models.EmployeeSkill) error {
	const query = `INSERT INTO employeeskills (employee_id, skill_id, level, last_assessed, trainer, remarks, attachment)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query, es.EmployeeID, es.SkillID, es.Level, es.LastAssessed, es.Trainer, es.Remarks, es.Attachment)
	if err := row.Scan(&es.ID); err != nil {
		return fmt.Errorf("create employee skill: %w", err)
	}
	return nil
}

// UpdateAttachment stores the attachment reference.
func (r *EmployeeSkillRepository) UpdateAttachment(ctx context.Context, id int, ref string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE employeeskills SET attachment = $2 WHERE id = $1`, id, ref)
	if err != nil {
		return fmt.Errorf("update employee skill attachment: %w", err)
	}
	return requireAffected(result, "update employee skill attachment")
}

// ListByEmployee returns an employee's assessments joined to skill names.
func (r *EmployeeSkillRepository) ListByEmployee(ctx context.Context, employeeID int) ([]models.EmployeeSkillView, error) {
	const query = `SELECT es.id, es.employee_id, es.skill_id, es.level, es.last_assessed, es.trainer, es.remarks, es.attachment, s.skill_name, s.category
FROM employeeskills es JOIN skills s ON s.id = es.skill_id
WHERE es.employee_id = $1
ORDER BY s.skill_name, es.id`
	views := []models.EmployeeSkillView{}
	if err := r.db.SelectContext(ctx, &views, query, employeeID); err != nil {
		return nil, fmt.Errorf("list employee skills: %w", err)
	}
	return views, nil
}

// Matrix returns the latest level of every employee and skill pair.
func (r *EmployeeSkillRepository) Matrix(ctx context.Context) ([]models.MatrixCell, error) {
	const query = `SELECT DISTINCT ON (employee_id, skill_id) employee_id, skill_id, level
FROM employeeskills
ORDER BY employee_id, skill_id, last_assessed DESC NULLS LAST, id DESC`
	var cells []models.MatrixCell
	if err := r.db.SelectContext(ctx, &cells, query); err != nil {
		return nil, fmt.Errorf("load skill matrix: %w", err)
	}
	return cells, nil
}
