package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
)

func strPtr(s string) *string { return &s }

func TestAuditCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_logs (created_at, user_id, action, entity_type, entity_id, details, ip_address, user_agent)")).
		WithArgs(sqlmock.AnyArg(), "u-1", models.AuditActionPromoteUser, "User", "u-2", types.JSONText(`{"old":"user","new":"admin"}`), "10.0.0.1", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	log := &models.AuditLog{
		UserID:     strPtr("u-1"),
		Action:     models.AuditActionPromoteUser,
		EntityType: strPtr("User"),
		EntityID:   strPtr("u-2"),
		Details:    types.JSONText(`{"old":"user","new":"admin"}`),
		IPAddress:  strPtr("10.0.0.1"),
	}
	require.NoError(t, repo.Create(context.Background(), log))
	assert.Equal(t, int64(41), log.ID)
	assert.False(t, log.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditCreateDefaultsDetails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), nil, models.AuditActionLogout, nil, nil, types.JSONText("{}"), nil, nil).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &models.AuditLog{Action: models.AuditActionLogout})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create audit log")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "user_id", "username", "action", "entity_type", "entity_id", "details", "ip_address", "user_agent"}).
		AddRow(int64(9), now, "u-1", "root", "delete_employee", "Employee", "7", []byte(`{}`), nil, nil).
		AddRow(int64(8), now, nil, nil, "login_failed", nil, nil, []byte(`{"email":"x@y.z"}`), "1.1.1.1", "curl")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND a.action = $1 AND a.created_at >= $2 ORDER BY a.id DESC LIMIT 20 OFFSET 0")).
		WithArgs("delete_employee", from).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs a LEFT JOIN users u ON u.id = a.user_id WHERE 1=1 AND a.action = $1 AND a.created_at >= $2")).
		WithArgs("delete_employee", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	logs, total, err := repo.List(context.Background(), models.AuditFilter{Action: "delete_employee", From: &from})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 2, total)
	assert.Equal(t, int64(9), logs[0].ID)
	assert.Nil(t, logs[1].UserID)
	assert.JSONEq(t, `{"email":"x@y.z"}`, string(logs[1].Details))
	assert.NoError(t, mock.ExpectationsWereMet())
}
