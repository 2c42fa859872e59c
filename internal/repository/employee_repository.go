package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

const employeeColumns = `id, first_name, last_name, position, department, hire_date, photo_path, qr_code_path, status, created_at, updated_at`

// EmployeeRepository provides database access for employees.
type EmployeeRepository struct {
	db *sqlx.DB
}

// NewEmployeeRepository creates a new EmployeeRepository.
func NewEmployeeRepository(db *sqlx.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts the employee with its caller supplied id.
func (r *EmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	now := time.Now().UTC()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	if employee.Status == "" {
		employee.Status = models.EmployeeStatusActive
	}
	const query = `INSERT INTO employees (id, first_name, last_name, position, department, hire_date, photo_path, qr_code_path, status, created_at, updated_at)
VALUES (:id, :first_name, :last_name, :position, :department, :hire_date, :photo_path, :qr_code_path, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, employee); err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	return nil
}

// FindByID returns an employee or sql.ErrNoRows.
func (r *EmployeeRepository) FindByID(ctx context.Context, id int) (*models.Employee, error) {
	const query = `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	var employee models.Employee
	if err := r.db.GetContext(ctx, &employee, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return &employee, nil
}

// List returns a page of employees ordered by last then first name.
func (r *EmployeeRepository) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	baseQuery := `FROM employees WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
	}
	if filter.Position != "" {
		conditions = append(conditions, fmt.Sprintf("position = $%d", len(args)+1))
		args = append(args, filter.Position)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, pageSize, offset := normalisePage(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY last_name ASC, first_name ASC, id ASC LIMIT %d OFFSET %d", employeeColumns, baseQuery, pageSize, offset)

	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list employees: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}
	return employees, total, nil
}

// ListAll returns every employee ordered by id.
func (r *EmployeeRepository) ListAll(ctx context.Context) ([]models.Employee, error) {
	const query = `SELECT ` + employeeColumns + ` FROM employees ORDER BY id ASC`
	var employees []models.Employee
	if err := r.db.SelectContext(ctx, &employees, query); err != nil {
		return nil, fmt.Errorf("list all employees: %w", err)
	}
	return employees, nil
}

// FilterOptions returns the distinct non-empty positions and departments.
func (r *EmployeeRepository) FilterOptions(ctx context.Context) (*models.EmployeeFilterOptions, error) {
	opts := &models.EmployeeFilterOptions{Positions: []string{}, Departments: []string{}}
	const positions = `SELECT DISTINCT position FROM employees WHERE position IS NOT NULL AND position <> '' ORDER BY position`
	if err := r.db.SelectContext(ctx, &opts.Positions, positions); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	const departments = `SELECT DISTINCT department FROM employees WHERE department IS NOT NULL AND department <> '' ORDER BY department`
	if err := r.db.SelectContext(ctx, &opts.Departments, departments); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return opts, nil
}

// UpdatePhotoPath stores the photo reference.
func (r *EmployeeRepository) UpdatePhotoPath(ctx context.Context, id int, ref string) error {
	return r.updateColumn(ctx, "photo_path", id, ref)
}

// UpdateQRCodePath stores the QR code reference.
func (r *EmployeeRepository) UpdateQRCodePath(ctx context.Context, id int, ref string) error {
	return r.updateColumn(ctx, "qr_code_path", id, ref)
}

// UpdateAssignment sets position and department.
func (r *EmployeeRepository) UpdateAssignment(ctx context.Context, id int, position, department *string) error {
	const query = `UPDATE employees SET position = $2, department = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, position, department, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update employee assignment: %w", err)
	}
	return requireAffected(result, "update employee assignment")
}

// Delete removes the employee and its skill assessments in one transaction.
func (r *EmployeeRepository) Delete(ctx context.Context, id int) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete employee: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM employeeskills WHERE employee_id = $1`, id); err != nil {
		return fmt.Errorf("delete employee skills: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if err = requireAffected(result, "delete employee"); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete employee: %w", err)
	}
	return nil
}

func (r *EmployeeRepository) updateColumn(ctx context.Context, column string, id int, ref string) error {
	query := fmt.Sprintf(`UPDATE employees SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	result, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update employee %s: %w", column, err)
	}
	return requireAffected(result, "update employee "+column)
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
