package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

var (
	regular = &models.Principal{UserID: "u-1", Username: "ana", Role: models.RoleUser}
	admin   = &models.Principal{UserID: "u-2", Username: "root", Role: models.RoleAdmin}
)

func TestAuthorizeMatrix(t *testing.T) {
	for action, zone := range zones {
		action, zone := action, zone
		t.Run(string(action), func(t *testing.T) {
			switch zone {
			case ZonePublic:
				assert.NoError(t, Authorize(nil, action))
				assert.NoError(t, Authorize(regular, action))
				assert.NoError(t, Authorize(admin, action))
			case ZoneAuthenticated:
				assert.True(t, appErrors.Is(Authorize(nil, action), appErrors.ErrNotAuthenticated))
				assert.NoError(t, Authorize(regular, action))
				assert.NoError(t, Authorize(admin, action))
			case ZoneAdmin:
				assert.True(t, appErrors.Is(Authorize(nil, action), appErrors.ErrNotAuthenticated))
				assert.True(t, appErrors.Is(Authorize(regular, action), appErrors.ErrForbidden))
				assert.NoError(t, Authorize(admin, action))
			}
		})
	}
}

func TestAuthorizeDeleteEmployee(t *testing.T) {
	err := Authorize(regular, ActionDeleteEmployee)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.NoError(t, Authorize(admin, ActionDeleteEmployee))
}

func TestAuthorizeUnknownActionDenied(t *testing.T) {
	err := Authorize(admin, Action("drop_tables"))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.False(t, Allowed(nil, Action("")))
}

func TestAuthorizeEmptyPrincipalIsAnonymous(t *testing.T) {
	err := Authorize(&models.Principal{Role: models.RoleAdmin}, ActionChangeRole)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAuthenticated))
}

func TestZoneOf(t *testing.T) {
	zone, ok := ZoneOf(ActionViewAuditLog)
	assert.True(t, ok)
	assert.Equal(t, "admin", zone.String())

	_, ok = ZoneOf("nope")
	assert.False(t, ok)
	assert.Len(t, zones, 17)
}
