package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

// SkillRepository provides database access for the skills catalogue.
type SkillRepository struct {
	db *sqlx.DB
}

// NewSkillRepository creates a new SkillRepository.
func NewSkillRepository(db *sqlx.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

// List returns all skills ordered by category and name.
func (r *SkillRepository) List(ctx context.Context) ([]models.Skill, error) {
	const query = `SELECT id, skill_name, category, description FROM skills ORDER BY category NULLS LAST, skill_name`
	skills := []models.Skill{}
	if err := r.db.SelectContext(ctx, &skills, query); err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// FindByID returns a skill or sql.ErrNoRows.
func (r *SkillRepository) FindByID(ctx context.Context, id int) (*models.Skill, error) {
	const query = `SELECT id, skill_name, category, description FROM skills WHERE id = $1`
	var skill models.Skill
	if err := r.db.GetContext(ctx, &skill, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find skill: %w", err)
	}
	return &skill, nil
}

// Create inserts a skill and sets its generated id.
func (r *SkillRepository) Create(ctx context.Context, skill *models.Skill) error {
	const query = `INSERT INTO skills (skill_name, category, description) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, skill.SkillName, skill.Category, skill.Description).Scan(&skill.ID); err != nil {
		return fmt.Errorf("create skill: %w", err)
	}
	return nil
}

// Delete removes a skill; assessments cascade.
func (r *SkillRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	return requireAffected(result, "delete skill")
}
