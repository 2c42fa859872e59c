package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
	"github.com/STS-Engineer/Skill-Matrix/pkg/storage"
)

// Stager writes request uploads to local staging before they are sent to the
// media store.
type Stager interface {
	Stage(prefix string, r io.Reader) (string, error)
	Delete(name string) error
}

// stageFormFile stages the multipart field. A missing field returns nil.
func stageFormFile(c *gin.Context, stager Stager, field string) (*models.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+field+" upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload")
	}
	defer file.Close()

	name, err := stager.Stage(field, file)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusRequestEntityTooLarge, field+" is too large")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage upload")
	}
	return &models.Upload{StagedName: name, Filename: filepath.Base(header.Filename)}, nil
}

// discardStaged drops an upload the service rejected before sending it on.
// Anything left behind is picked up by the staging sweep.
func discardStaged(stager Stager, upload *models.Upload) {
	if upload == nil {
		return
	}
	_ = stager.Delete(upload.StagedName)
}
