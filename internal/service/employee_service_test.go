package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

type employeeFixture struct {
	repo   *memoryEmployeeRepo
	skills *stubSkillReader
	media  *stubMedia
	queue  *stubQueue
	audit  *recordingAudit
	svc    *EmployeeService
}

func newEmployeeFixture(cache *CacheService, employees ...models.Employee) *employeeFixture {
	f := &employeeFixture{
		repo:   newMemoryEmployeeRepo(employees...),
		skills: &stubSkillReader{views: map[int][]models.EmployeeSkillView{}},
		media:  &stubMedia{},
		queue:  &stubQueue{},
		audit:  &recordingAudit{},
	}
	f.repo.links = f.skills
	f.svc = NewEmployeeService(f.repo, f.skills, f.media, cache, f.queue, f.audit, validator.New(), zap.NewNop(), EmployeeConfig{
		PublicBaseURL: "https://skills.example.com",
		FilterTTL:     time.Minute,
	})
	return f
}

func newRedisCache(t *testing.T) (*miniredis.Miniredis, *CacheService) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewCacheRepository(client, "test:", zap.NewNop())
	return mr, NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true)
}

func validEmployeeRequest(id int) models.CreateEmployeeRequest {
	hired := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	return models.CreateEmployeeRequest{ID: id, FirstName: "Ana", LastName: "Garza", Position: "Welder", Department: "Production", HireDate: &hired}
}

func TestEmployeeServiceCreateStoresMedia(t *testing.T) {
	f := newEmployeeFixture(nil)

	created, err := f.svc.Create(context.Background(), userPrincipal, validEmployeeRequest(42), &models.Upload{StagedName: "photo-1", Filename: "ana.jpg"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, created.PhotoFailed)
	assert.False(t, created.QRCodeFailed)
	assert.Equal(t, "https://media.test/photos/employee_42.jpg", *created.Employee.PhotoPath)
	assert.Equal(t, "https://media.test/qrcodes/employee_42.png", *created.Employee.QRCodePath)

	stored := f.repo.employees[42]
	assert.Equal(t, models.EmployeeStatusActive, stored.Status)
	assert.NotNil(t, stored.PhotoPath)
	assert.NotNil(t, stored.QRCodePath)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, f.media.uploads["qrcodes/employee_42.png"][:4])

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionAddEmployee, f.audit.entries[0].Action)
	assert.Equal(t, "42", f.audit.entries[0].EntityID)
}

func TestEmployeeServiceCreateKeepsRowWhenUploadsFail(t *testing.T) {
	f := newEmployeeFixture(nil)
	f.media.failDest = map[string]bool{"photos/": true}

	created, err := f.svc.Create(context.Background(), userPrincipal, validEmployeeRequest(43), &models.Upload{StagedName: "photo-2"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, created.PhotoFailed)
	assert.False(t, created.QRCodeFailed)

	stored, ok := f.repo.employees[43]
	require.True(t, ok, "employee row stays committed")
	assert.Nil(t, stored.PhotoPath)
	assert.NotNil(t, stored.QRCodePath)
	assert.Equal(t, []string{models.AuditActionAddEmployee}, f.audit.actions())
}

func TestEmployeeServiceCreateWithoutPhoto(t *testing.T) {
	f := newEmployeeFixture(nil)
	f.media.failDest = map[string]bool{"qrcodes/": true}

	created, err := f.svc.Create(context.Background(), userPrincipal, validEmployeeRequest(44), nil, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, created.PhotoFailed)
	assert.True(t, created.QRCodeFailed)
	assert.Empty(t, f.media.staged)
}

func TestEmployeeServiceCreateRejections(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Existing", LastName: "Person"})

	_, err := f.svc.Create(context.Background(), nil, validEmployeeRequest(8), nil, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrNotAuthenticated.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Create(context.Background(), userPrincipal, validEmployeeRequest(7), nil, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	invalid := validEmployeeRequest(9)
	invalid.FirstName = "  "
	_, err = f.svc.Create(context.Background(), userPrincipal, invalid, nil, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.Empty(t, f.audit.entries)
	assert.Len(t, f.repo.employees, 1)
}

func TestEmployeeServiceGet(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza"})
	f.skills.views[7] = []models.EmployeeSkillView{{EmployeeSkill: models.EmployeeSkill{ID: 1, SkillID: 3, Level: "B"}, SkillName: "TIG welding"}}

	detail, err := f.svc.Get(context.Background(), userPrincipal, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ana", detail.FirstName)
	require.Len(t, detail.Skills, 1)
	assert.Equal(t, "TIG welding", detail.Skills[0].SkillName)

	_, err = f.svc.Get(context.Background(), userPrincipal, 99)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceFilterOptionsAreCached(t *testing.T) {
	mr, cache := newRedisCache(t)
	f := newEmployeeFixture(cache, models.Employee{ID: 1, FirstName: "Ana", LastName: "Garza"})
	f.repo.options = &models.EmployeeFilterOptions{Positions: []string{"Welder"}, Departments: []string{"Production"}}

	options, hit, err := f.svc.FilterOptions(context.Background(), userPrincipal)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"Welder"}, options.Positions)
	assert.True(t, mr.Exists("test:"+employeeFiltersCacheKey))

	options, hit, err = f.svc.FilterOptions(context.Background(), userPrincipal)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"Production"}, options.Departments)
	assert.Equal(t, 1, f.repo.optionsCalls)

	_, err = f.svc.Create(context.Background(), userPrincipal, validEmployeeRequest(2), nil, models.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:"+employeeFiltersCacheKey))
}

func TestEmployeeServiceList(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 1, FirstName: "Ana", LastName: "Garza"})

	employees, pagination, err := f.svc.List(context.Background(), userPrincipal, models.EmployeeFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, employees, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = f.svc.List(context.Background(), nil, models.EmployeeFilter{})
	assert.Equal(t, appErrors.ErrNotAuthenticated.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceUpdateAssignment(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza", Position: strPtr("Welder"), Department: strPtr("Production")})

	_, err := f.svc.UpdateAssignment(context.Background(), userPrincipal, 7, models.UpdateEmployeeRequest{Position: strPtr("Lead")}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := f.svc.UpdateAssignment(context.Background(), adminPrincipal, 7, models.UpdateEmployeeRequest{Position: strPtr("Lead")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Lead", *updated.Position)
	assert.Equal(t, "Production", *updated.Department)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, models.AuditActionUpdateEmployee, entry.Action)
	assert.Equal(t, map[string]string{"position": "Welder", "department": "Production"}, entry.Details["old"])
	assert.Equal(t, map[string]string{"position": "Lead", "department": "Production"}, entry.Details["new"])

	_, err = f.svc.UpdateAssignment(context.Background(), adminPrincipal, 7, models.UpdateEmployeeRequest{}, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceUpdatePhoto(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza"})

	employee, err := f.svc.UpdatePhoto(context.Background(), userPrincipal, 7, models.Upload{StagedName: "photo-3", Filename: "new.jpg"}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/photos/employee_7.jpg", *employee.PhotoPath)
	assert.Equal(t, []string{models.AuditActionUpdatePhoto}, f.audit.actions())

	f.media.failDest = map[string]bool{"photos/": true}
	_, err = f.svc.UpdatePhoto(context.Background(), userPrincipal, 7, models.Upload{StagedName: "photo-4"}, models.RequestMeta{})
	require.Error(t, err)
	assert.Len(t, f.audit.entries, 1)
}

func TestEmployeeServiceDelete(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza", PhotoPath: strPtr("p"), QRCodePath: strPtr("q")})
	f.skills.views[7] = []models.EmployeeSkillView{{EmployeeSkill: models.EmployeeSkill{ID: 1, EmployeeID: 7, SkillID: 3, Level: "B"}, SkillName: "TIG welding"}}

	err := f.svc.Delete(context.Background(), userPrincipal, 7, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Contains(t, f.repo.employees, 7)
	assert.Len(t, f.skills.views[7], 1)

	require.NoError(t, f.svc.Delete(context.Background(), adminPrincipal, 7, models.RequestMeta{}))
	assert.Empty(t, f.repo.employees)
	assert.NotContains(t, f.skills.views, 7)
	assert.Equal(t, []string{models.AuditActionDeleteEmployee}, f.audit.actions())

	require.Len(t, f.queue.jobs, 1)
	job := f.queue.jobs[0]
	assert.Equal(t, JobTypeMediaCleanup, job.Type)
	assert.Equal(t, MediaCleanup{Paths: []string{"photos/employee_7.jpg", "qrcodes/employee_7.png"}}, job.Payload)

	err = f.svc.Delete(context.Background(), adminPrincipal, 7, models.RequestMeta{})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEmployeeServiceDeleteSurvivesFullQueue(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza", PhotoPath: strPtr("p")})
	f.queue.err = errors.New("queue full")

	require.NoError(t, f.svc.Delete(context.Background(), adminPrincipal, 7, models.RequestMeta{}))
	assert.Empty(t, f.repo.employees)
}

func TestEmployeeServicePublicProfile(t *testing.T) {
	f := newEmployeeFixture(nil, models.Employee{ID: 7, FirstName: "Ana", LastName: "Garza", Position: strPtr("Welder")})
	f.skills.views[7] = []models.EmployeeSkillView{{EmployeeSkill: models.EmployeeSkill{Level: "A"}, SkillName: "Brazing"}}

	profile, err := f.svc.PublicProfile(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Welder", *profile.Position)
	assert.Equal(t, []models.PublicSkillLevel{{SkillName: "Brazing", Level: "A"}}, profile.Skills)
}
