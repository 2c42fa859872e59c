package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/pkg/barcode"
	"github.com/STS-Engineer/Skill-Matrix/pkg/export"
)

const maxPhotoBytes = 5 << 20

// ErrPhotoTooLarge is returned for photos over maxPhotoBytes.
var ErrPhotoTooLarge = errors.New("photo exceeds size limit")

type badgeRenderer interface {
	Render(data export.BadgeData) ([]byte, error)
}

type photoFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPPhotoFetcher downloads photos from their public reference.
type HTTPPhotoFetcher struct {
	client *http.Client
}

// NewHTTPPhotoFetcher builds a fetcher with the given timeout.
func NewHTTPPhotoFetcher(timeout time.Duration) *HTTPPhotoFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPhotoFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the body of url. Non-200 responses and bodies over
// maxPhotoBytes are errors.
func (f *HTTPPhotoFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrPhotoTooLarge)
	}
	return data, nil
}

// BadgeService renders printable employee badges.
type BadgeService struct {
	employees     employeeLookup
	renderer      badgeRenderer
	photos        photoFetcher
	publicBaseURL string
	logger        *zap.Logger
}

// NewBadgeService constructs a BadgeService.
func NewBadgeService(employees employeeLookup, renderer badgeRenderer, photos photoFetcher, publicBaseURL string, logger *zap.Logger) *BadgeService {
	if renderer == nil {
		renderer = export.NewBadgeRenderer(export.DefaultBadgeHeader)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{employees: employees, renderer: renderer, photos: photos, publicBaseURL: publicBaseURL, logger: logger}
}

// Badge returns the PDF badge of an employee and its download name. A photo
// that cannot be fetched is replaced by a placeholder.
func (s *BadgeService) Badge(ctx context.Context, actor *models.Principal, id int) ([]byte, string, error) {
	if err := authz.Authorize(actor, authz.ActionDownloadBadge); err != nil {
		return nil, "", err
	}
	employee, err := findEmployee(ctx, s.employees, id)
	if err != nil {
		return nil, "", err
	}

	qr, err := barcode.EncodePNG(barcode.ProfileURL(s.publicBaseURL, employee.ID), barcode.DefaultSize)
	if err != nil {
		return nil, "", internalError(err, "failed to encode qr code")
	}

	var photo []byte
	if employee.PhotoPath != nil && s.photos != nil {
		photo, err = s.photos.Fetch(ctx, *employee.PhotoPath)
		if err != nil {
			s.logger.Warn("badge photo unavailable", zap.Int("employee_id", employee.ID), zap.Error(err))
			photo = nil
		}
	}

	pdf, err := s.renderer.Render(export.BadgeData{
		EmployeeID: employee.ID,
		FirstName:  employee.FirstName,
		LastName:   employee.LastName,
		Position:   deref(employee.Position),
		Photo:      photo,
		QRCode:     qr,
	})
	if err != nil {
		return nil, "", internalError(err, "failed to render badge")
	}
	return pdf, sanitizeFilename(fmt.Sprintf("badge_%d_%s.pdf", employee.ID, employee.FullName())), nil
}
