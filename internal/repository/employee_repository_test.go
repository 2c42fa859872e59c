package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

var employeeRowColumns = []string{"id", "first_name", "last_name", "position", "department", "hire_date", "photo_path", "qr_code_path", "status", "created_at", "updated_at"}

func TestEmployeeCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec("INSERT INTO employees").WillReturnResult(sqlmock.NewResult(0, 1))

	employee := &models.Employee{ID: 12, FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, repo.Create(context.Background(), employee))
	assert.Equal(t, models.EmployeeStatusActive, employee.Status)
	assert.False(t, employee.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeListWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(employeeRowColumns).
		AddRow(3, "Ada", "Lovelace", "Engineer", "R&D", now, nil, nil, "Active", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM employees WHERE 1=1 AND (first_name ILIKE $1 OR last_name ILIKE $1) AND department = $2 ORDER BY last_name ASC, first_name ASC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs("%ada%", "R&D").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM employees WHERE 1=1 AND (first_name ILIKE $1 OR last_name ILIKE $1) AND department = $2")).
		WithArgs("%ada%", "R&D").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	employees, total, err := repo.List(context.Background(), models.EmployeeFilter{Search: " ada ", Department: "R&D"})
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Engineer", *employees[0].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeFilterOptions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT position FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow("Engineer").AddRow("Operator"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT department FROM employees")).
		WillReturnRows(sqlmock.NewRows([]string{"department"}))

	opts, err := repo.FilterOptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Engineer", "Operator"}, opts.Positions)
	assert.Empty(t, opts.Departments)
	assert.NotNil(t, opts.Departments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeUpdatePhotoPathMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE employees SET photo_path = $2, updated_at = $3 WHERE id = $1")).
		WithArgs(5, "https://cdn/photo.jpg", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePhotoPath(context.Background(), 5, "https://cdn/photo.jpg")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeDeleteRemovesSkillsFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employeeskills WHERE employee_id = $1")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees WHERE id = $1")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeDeleteRollsBackWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM employeeskills").WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM employees").WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Delete(context.Background(), 8), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmployeeDeleteRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEmployeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM employeeskills").WithArgs(9).WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete employee skills")
	assert.NoError(t, mock.ExpectationsWereMet())
}
