package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/jobs"
	"github.com/STS-Engineer/Skill-Matrix/pkg/storage"
)

// JobTypeMediaCleanup removes remote objects that no longer have an owner.
const JobTypeMediaCleanup = "media.cleanup"

// MediaCleanup is the payload of a JobTypeMediaCleanup job.
type MediaCleanup struct {
	Paths []string `json:"paths"`
}

type stagingArea interface {
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// MediaService uploads files to the external media store and resolves their
// public references.
type MediaService struct {
	store   storage.ObjectStore
	staging stagingArea
	metrics *MetricsService
	logger  *zap.Logger
}

// NewMediaService wires the object store and the local staging area.
func NewMediaService(store storage.ObjectStore, staging stagingArea, metrics *MetricsService, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{store: store, staging: staging, metrics: metrics, logger: logger}
}

// PutStaged uploads a staged file to dest and removes it from staging on
// success. A failed upload leaves the file for the sweeper.
func (s *MediaService) PutStaged(ctx context.Context, stagedName, dest string) (string, error) {
	data, err := s.staging.Read(stagedName)
	if err != nil {
		s.metrics.RecordMediaUpload(UploadOutcomeFailure)
		return "", appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "staged file unavailable")
	}
	ref, err := s.PutBytes(ctx, data, dest)
	if err != nil {
		return "", err
	}
	if err := s.staging.Delete(stagedName); err != nil {
		s.logger.Warn("failed to remove staged file", zap.String("staged", stagedName), zap.Error(err))
	}
	return ref, nil
}

// PutBytes writes data to dest, retrying once on a version conflict.
func (s *MediaService) PutBytes(ctx context.Context, data []byte, dest string) (string, error) {
	objectPath, err := storage.CleanObjectPath(dest)
	if err != nil {
		s.metrics.RecordMediaUpload(UploadOutcomeFailure)
		return "", appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, "invalid media path")
	}

	ref, err := s.put(ctx, objectPath, data)
	outcome := UploadOutcomeSuccess
	if storage.IsVersionConflict(err) {
		s.logger.Info("media version changed during upload, retrying", zap.String("path", objectPath))
		ref, err = s.put(ctx, objectPath, data)
		outcome = UploadOutcomeRetried
	}
	if err != nil {
		s.metrics.RecordMediaUpload(UploadOutcomeFailure)
		s.logger.Warn("media upload failed", zap.String("path", objectPath), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrUpload.Code, appErrors.ErrUpload.Status, fmt.Sprintf("failed to upload %s", objectPath))
	}
	s.metrics.RecordMediaUpload(outcome)
	return ref, nil
}

func (s *MediaService) put(ctx context.Context, objectPath string, data []byte) (string, error) {
	version, err := s.store.Exists(ctx, objectPath)
	if err != nil {
		return "", err
	}
	return s.store.Put(ctx, objectPath, data, version)
}

// Delete removes objectPath from the store. Missing objects are not an error.
func (s *MediaService) Delete(ctx context.Context, objectPath string) error {
	if err := s.store.Delete(ctx, objectPath); err != nil {
		return fmt.Errorf("delete media %s: %w", objectPath, err)
	}
	return nil
}

// CleanupHandler processes JobTypeMediaCleanup jobs. A partial failure
// returns an error so the queue retries the whole batch.
func (s *MediaService) CleanupHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(MediaCleanup)
		if !ok {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		var errs []error
		for _, objectPath := range payload.Paths {
			if err := s.Delete(ctx, objectPath); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return errors.Join(errs...)
		}
		s.logger.Info("media cleaned up", zap.Strings("paths", payload.Paths), zap.Int("attempt", job.Attempt))
		return nil
	}
}

// SweepStaging removes staged uploads older than ttl.
func (s *MediaService) SweepStaging(ttl time.Duration) int {
	removed, err := s.staging.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Warn("staging sweep failed", zap.Error(err))
	}
	if len(removed) > 0 {
		s.metrics.RecordStagingSweep(len(removed))
		s.logger.Info("staging swept", zap.Int("removed", len(removed)))
	}
	return len(removed)
}
