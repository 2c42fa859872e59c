package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

type mockAuditRepo struct {
	logs      []*models.AuditLog
	createErr error
	panicOn   string
	listLogs  []models.AuditLog
	listTotal int
	filter    models.AuditFilter
}

func (m *mockAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	if m.panicOn != "" && log.Action == m.panicOn {
		panic("store exploded")
	}
	if m.createErr != nil {
		return m.createErr
	}
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	m.filter = filter
	return m.listLogs, m.listTotal, nil
}

type mockPublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (m *mockPublisher) PublishJSON(ctx context.Context, subject string, payload interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.subjects = append(m.subjects, subject)
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func TestAuditServiceRecordPersistsEntry(t *testing.T) {
	repo := &mockAuditRepo{}
	publisher := &mockPublisher{}
	svc := NewAuditService(repo, publisher, "skillmatrix.audit", NewMetricsService(), zap.NewNop())

	svc.Record(context.Background(), models.AuditEntry{
		UserID:     adminPrincipal.ActorID(),
		Action:     models.AuditActionPromoteUser,
		EntityType: models.EntityUser,
		EntityID:   "u-2",
		Details:    map[string]interface{}{"old": "user", "new": "admin"},
		Meta:       models.RequestMeta{IP: "10.0.0.1", UserAgent: "curl"},
	})

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Equal(t, "admin-1", *log.UserID)
	assert.Equal(t, models.EntityUser, *log.EntityType)
	assert.Equal(t, "u-2", *log.EntityID)
	assert.JSONEq(t, `{"old":"user","new":"admin"}`, string(log.Details))
	assert.Equal(t, "10.0.0.1", *log.IPAddress)
	assert.Equal(t, []string{"skillmatrix.audit.promote_user"}, publisher.subjects)
}

func TestAuditServiceRecordAnonymousDefaults(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, nil, "", nil, nil)

	svc.Record(context.Background(), models.AuditEntry{Action: models.AuditActionLoginFailed})

	require.Len(t, repo.logs, 1)
	log := repo.logs[0]
	assert.Nil(t, log.UserID)
	assert.Nil(t, log.EntityType)
	assert.Nil(t, log.EntityID)
	assert.Nil(t, log.IPAddress)
	assert.JSONEq(t, `{}`, string(log.Details))
}

func TestAuditServiceRecordSwallowsFailures(t *testing.T) {
	metrics := NewMetricsService()
	repo := &mockAuditRepo{createErr: errors.New("db down")}
	publisher := &mockPublisher{}
	svc := NewAuditService(repo, publisher, "audit", metrics, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), models.AuditEntry{Action: models.AuditActionLogin})
	})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditFailures))
	assert.Empty(t, publisher.subjects)
}

func TestAuditServiceRecordRecoversPanics(t *testing.T) {
	metrics := NewMetricsService()
	repo := &mockAuditRepo{panicOn: models.AuditActionLogout}
	svc := NewAuditService(repo, nil, "", metrics, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Record(context.Background(), models.AuditEntry{Action: models.AuditActionLogout})
	})
	svc.Record(context.Background(), models.AuditEntry{Action: models.AuditActionLogin})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditFailures))
	require.Len(t, repo.logs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.logs[0].Action)
}

func TestAuditServiceRecordUnencodableDetails(t *testing.T) {
	metrics := NewMetricsService()
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, nil, "", metrics, zap.NewNop())

	svc.Record(context.Background(), models.AuditEntry{
		Action:  models.AuditActionAddSkill,
		Details: map[string]interface{}{"bad": make(chan int)},
	})

	assert.Empty(t, repo.logs)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditFailures))
}

func TestAuditServicePublishFailureDoesNotFailRecord(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, &mockPublisher{err: errors.New("nats down")}, "audit", nil, zap.NewNop())

	svc.Record(context.Background(), models.AuditEntry{Action: models.AuditActionAddEmployee})

	assert.Len(t, repo.logs, 1)
}

func TestAuditServiceRecordKeepsCallOrder(t *testing.T) {
	repo := &mockAuditRepo{}
	svc := NewAuditService(repo, nil, "", nil, zap.NewNop())

	for _, action := range []string{models.AuditActionLogin, models.AuditActionAddEmployee, models.AuditActionLogout} {
		svc.Record(context.Background(), models.AuditEntry{Action: action})
	}

	require.Len(t, repo.logs, 3)
	for i, log := range repo.logs {
		assert.Equal(t, int64(i+1), log.ID)
	}
	assert.Equal(t, models.AuditActionLogout, repo.logs[2].Action)
}

func TestAuditServiceListRequiresAdmin(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{}, nil, "", nil, zap.NewNop())

	_, _, err := svc.List(context.Background(), nil, models.AuditFilter{})
	assert.Equal(t, appErrors.ErrNotAuthenticated.Code, appErrors.FromError(err).Code)

	_, _, err = svc.List(context.Background(), userPrincipal, models.AuditFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAuditServiceListPaginates(t *testing.T) {
	repo := &mockAuditRepo{
		listLogs:  []models.AuditLog{{ID: 7, Action: models.AuditActionLogin}},
		listTotal: 41,
	}
	svc := NewAuditService(repo, nil, "", nil, zap.NewNop())

	logs, pagination, err := svc.List(context.Background(), adminPrincipal, models.AuditFilter{Action: "login", Page: 3, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 41, pagination.TotalCount)
	assert.Equal(t, "login", repo.filter.Action)
}
