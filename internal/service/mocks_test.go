package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/jobs"
)

var (
	adminPrincipal = &models.Principal{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin, SessionID: "s-admin"}
	userPrincipal  = &models.Principal{UserID: "user-1", Username: "user", Role: models.RoleUser, SessionID: "s-user"}
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *recordingAudit) Record(ctx context.Context, entry models.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type stubMedia struct {
	failDest map[string]bool
	uploads  map[string][]byte
	staged   []string
}

func (m *stubMedia) PutStaged(ctx context.Context, stagedName, dest string) (string, error) {
	m.staged = append(m.staged, stagedName)
	return m.PutBytes(ctx, []byte(stagedName), dest)
}

func (m *stubMedia) PutBytes(ctx context.Context, data []byte, dest string) (string, error) {
	for prefix := range m.failDest {
		if strings.HasPrefix(dest, prefix) {
			return "", fmt.Errorf("store unavailable")
		}
	}
	if m.uploads == nil {
		m.uploads = make(map[string][]byte)
	}
	m.uploads[dest] = data
	return "https://media.test/" + dest, nil
}

type stubQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *stubQueue) Enqueue(job jobs.Job) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, job)
	return fmt.Sprintf("job-%d", len(q.jobs)), nil
}

type memoryEmployeeRepo struct {
	employees      map[int]*models.Employee
	options        *models.EmployeeFilterOptions
	optionsCalls   int
	updatePhotoErr error
	// links mirrors the employeeskills cascade on Delete.
	links          *stubSkillReader
}

func newMemoryEmployeeRepo(employees ...models.Employee) *memoryEmployeeRepo {
	repo := &memoryEmployeeRepo{employees: make(map[int]*models.Employee)}
	for i := range employees {
		e := employees[i]
		repo.employees[e.ID] = &e
	}
	return repo
}

func (m *memoryEmployeeRepo) Create(ctx context.Context, employee *models.Employee) error {
	now := time.Now().UTC()
	employee.CreatedAt, employee.UpdatedAt = now, now
	copy := *employee
	m.employees[employee.ID] = &copy
	return nil
}

func (m *memoryEmployeeRepo) FindByID(ctx context.Context, id int) (*models.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *e
	return &copy, nil
}

func (m *memoryEmployeeRepo) List(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, int, error) {
	out := []models.Employee{}
	for _, e := range m.employees {
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (m *memoryEmployeeRepo) ListAll(ctx context.Context) ([]models.Employee, error) {
	out, _, err := m.List(ctx, models.EmployeeFilter{})
	return out, err
}

func (m *memoryEmployeeRepo) FilterOptions(ctx context.Context) (*models.EmployeeFilterOptions, error) {
	m.optionsCalls++
	if m.options != nil {
		return m.options, nil
	}
	return &models.EmployeeFilterOptions{Positions: []string{}, Departments: []string{}}, nil
}

func (m *memoryEmployeeRepo) UpdatePhotoPath(ctx context.Context, id int, ref string) error {
	if m.updatePhotoErr != nil {
		return m.updatePhotoErr
	}
	e, ok := m.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.PhotoPath = &ref
	return nil
}

func (m *memoryEmployeeRepo) UpdateQRCodePath(ctx context.Context, id int, ref string) error {
	e, ok := m.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.QRCodePath = &ref
	return nil
}

func (m *memoryEmployeeRepo) UpdateAssignment(ctx context.Context, id int, position, department *string) error {
	e, ok := m.employees[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Position, e.Department = position, department
	return nil
}

func (m *memoryEmployeeRepo) Delete(ctx context.Context, id int) error {
	if _, ok := m.employees[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.employees, id)
	if m.links != nil {
		delete(m.links.views, id)
	}
	return nil
}

type stubSkillReader struct {
	views map[int][]models.EmployeeSkillView
}

func (s *stubSkillReader) ListByEmployee(ctx context.Context, employeeID int) ([]models.EmployeeSkillView, error) {
	return s.views[employeeID], nil
}

func strPtr(s string) *string {
	return &s
}
