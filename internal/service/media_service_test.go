package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/jobs"
	"github.com/STS-Engineer/Skill-Matrix/pkg/storage"
)

// fakeObjectStore fails the first conflicts Put calls with a version conflict.
type fakeObjectStore struct {
	objects   map[string][]byte
	conflicts int
	existsErr error
	deleteErr error
	puts      int
	deleted   []string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Exists(ctx context.Context, path string) (string, error) {
	if f.existsErr != nil {
		return "", f.existsErr
	}
	if data, ok := f.objects[path]; ok {
		return fmt.Sprintf("v%d", len(data)), nil
	}
	return "", nil
}

func (f *fakeObjectStore) Put(ctx context.Context, path string, data []byte, version string) (string, error) {
	f.puts++
	if f.conflicts > 0 {
		f.conflicts--
		return "", storage.ErrVersionConflict
	}
	f.objects[path] = data
	return f.URL(path), nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, path string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, path)
	delete(f.objects, path)
	return nil
}

func (f *fakeObjectStore) URL(path string) string {
	return "https://media.test/" + path
}

func newTestMediaService(t *testing.T, store *fakeObjectStore) (*MediaService, *storage.StagingArea, *MetricsService) {
	t.Helper()
	staging, err := storage.NewStagingArea(t.TempDir(), 1<<20)
	require.NoError(t, err)
	metrics := NewMetricsService()
	return NewMediaService(store, staging, metrics, zap.NewNop()), staging, metrics
}

func TestMediaServicePutStaged(t *testing.T) {
	store := newFakeObjectStore()
	svc, staging, metrics := newTestMediaService(t, store)

	name, err := staging.Stage("photo", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	ref, err := svc.PutStaged(context.Background(), name, "photos/employee_7.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://media.test/photos/employee_7.jpg", ref)
	assert.Equal(t, []byte("jpeg-bytes"), store.objects["photos/employee_7.jpg"])
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mediaUploads.WithLabelValues(UploadOutcomeSuccess)))

	_, err = staging.Read(name)
	assert.Error(t, err, "staged file should be removed after upload")
}

func TestMediaServiceRetriesOnceOnConflict(t *testing.T) {
	store := newFakeObjectStore()
	store.conflicts = 1
	svc, _, metrics := newTestMediaService(t, store)

	ref, err := svc.PutBytes(context.Background(), []byte("png"), "qrcodes/employee_7.png")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 2, store.puts)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mediaUploads.WithLabelValues(UploadOutcomeRetried)))
}

func TestMediaServiceFailsAfterSecondConflict(t *testing.T) {
	store := newFakeObjectStore()
	store.conflicts = 2
	svc, staging, metrics := newTestMediaService(t, store)

	name, err := staging.Stage("photo", bytes.NewReader([]byte("jpeg")))
	require.NoError(t, err)

	_, err = svc.PutStaged(context.Background(), name, "photos/employee_7.jpg")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpload.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 2, store.puts)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.mediaUploads.WithLabelValues(UploadOutcomeFailure)))

	data, err := staging.Read(name)
	require.NoError(t, err, "staged file stays for the sweeper")
	assert.Equal(t, []byte("jpeg"), data)
}

func TestMediaServiceUploadErrors(t *testing.T) {
	store := newFakeObjectStore()
	store.existsErr = errors.New("connection refused")
	svc, _, _ := newTestMediaService(t, store)

	_, err := svc.PutBytes(context.Background(), []byte("x"), "photos/employee_1.jpg")
	assert.Equal(t, appErrors.ErrUpload.Code, appErrors.FromError(err).Code)

	_, err = svc.PutBytes(context.Background(), []byte("x"), "../escape.jpg")
	assert.Equal(t, appErrors.ErrUpload.Code, appErrors.FromError(err).Code)

	_, err = svc.PutStaged(context.Background(), "missing-file", "photos/employee_1.jpg")
	assert.Equal(t, appErrors.ErrUpload.Code, appErrors.FromError(err).Code)
}

func TestMediaServiceCleanupHandler(t *testing.T) {
	store := newFakeObjectStore()
	svc, _, _ := newTestMediaService(t, store)
	handler := svc.CleanupHandler()

	err := handler(context.Background(), jobs.Job{Type: JobTypeMediaCleanup, Payload: MediaCleanup{Paths: []string{"photos/employee_1.jpg", "qrcodes/employee_1.png"}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/employee_1.jpg", "qrcodes/employee_1.png"}, store.deleted)

	err = handler(context.Background(), jobs.Job{Type: JobTypeMediaCleanup, Payload: "bogus"})
	assert.Error(t, err)

	store.deleteErr = errors.New("rate limited")
	err = handler(context.Background(), jobs.Job{Type: JobTypeMediaCleanup, Payload: MediaCleanup{Paths: []string{"photos/employee_2.jpg"}}})
	assert.ErrorContains(t, err, "rate limited")
}

func TestMediaServiceSweepStaging(t *testing.T) {
	svc, staging, metrics := newTestMediaService(t, newFakeObjectStore())

	_, err := staging.Stage("photo", strings.NewReader("old"))
	require.NoError(t, err)

	assert.Equal(t, 1, svc.SweepStaging(0))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.stagingSwept))
}

func TestMediaServicePutBytesOverwritesExistingObject(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalObjectStore(dir, "http://localhost:8080")
	require.NoError(t, err)
	staging, err := storage.NewStagingArea(t.TempDir(), 1<<20)
	require.NoError(t, err)
	metrics := NewMetricsService()
	svc := NewMediaService(store, staging, metrics, zap.NewNop())

	first, err := svc.PutBytes(context.Background(), []byte("one"), "photos/x.jpg")
	require.NoError(t, err)
	second, err := svc.PutBytes(context.Background(), []byte("two"), "photos/x.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "http://localhost:8080/media/photos/x.jpg", second)
	data, err := os.ReadFile(filepath.Join(dir, "photos", "x.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.mediaUploads.WithLabelValues(UploadOutcomeSuccess)))
}
