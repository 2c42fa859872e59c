package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/STS-Engineer/Skill-Matrix/internal/authz"
	"github.com/STS-Engineer/Skill-Matrix/internal/models"
	"github.com/STS-Engineer/Skill-Matrix/internal/repository"
	appErrors "github.com/STS-Engineer/Skill-Matrix/pkg/errors"
)

const emailUniqueIndex = "users_email_lower_idx"

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type sessionStore interface {
	Save(ctx context.Context, session *models.Session, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret          string
	SessionTTL      time.Duration
	AllowSelfSignup bool
	Issuer          string
}

// AuthService provides registration, login and principal resolution.
type AuthService struct {
	users     authUserRepository
	sessions  sessionStore
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, sessions sessionStore, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if audit == nil {
		audit = nopAuditRecorder{}
	}
	return &AuthService{
		users:     users,
		sessions:  sessions,
		audit:     audit,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user account with the user role.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, meta models.RequestMeta) (*models.User, error) {
	if !s.config.AllowSelfSignup {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "self registration is disabled")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}

	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, models.RoleUser)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     &user.ID,
		Action:     models.AuditActionRegisterUser,
		EntityType: models.EntityUser,
		EntityID:   user.ID,
		Details:    map[string]interface{}{"username": user.Username},
		Meta:       meta,
	})
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.ErrDuplicateEmail
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check email")
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if constraint, ok := repository.UniqueViolation(err); ok {
			if constraint == emailUniqueIndex {
				return nil, appErrors.ErrDuplicateEmail
			}
			return nil, appErrors.Clone(appErrors.ErrConflict, "username already taken")
		}
		return nil, internalError(err, "failed to create user")
	}
	return user, nil
}

// Verify checks credentials. Unknown emails and wrong passwords both yield a
// nil user and a nil error.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(placeholderHash(), []byte(password))
			return nil, nil
		}
		return nil, internalError(err, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

// placeholderHash keeps the unknown-email path as slow as a real comparison.
func placeholderHash() []byte {
	dummyHashOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err == nil {
			dummyHash = hash
		}
	})
	return dummyHash
}

// Login verifies credentials, opens a session and returns its signed token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.Verify(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.audit.Record(ctx, models.AuditEntry{
			Action:  models.AuditActionLoginFailed,
			Details: map[string]interface{}{"email": strings.ToLower(strings.TrimSpace(req.Email))},
			Meta:    meta,
		})
		return nil, appErrors.ErrInvalidCredentials
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}
	if err := s.sessions.Save(ctx, session, s.config.SessionTTL); err != nil {
		return nil, internalError(err, "failed to create session")
	}

	token, expiresAt, err := s.signToken(session, now)
	if err != nil {
		if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
			s.logger.Warn("failed to discard session", zap.Error(delErr))
		}
		return nil, internalError(err, "failed to sign session token")
	}

	s.audit.Record(ctx, models.AuditEntry{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		EntityType: models.EntityUser,
		EntityID:   user.ID,
		Meta:       meta,
	})

	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) signToken(session *models.Session, now time.Time) (string, *time.Time, error) {
	claims := models.SessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  session.UserID,
			Issuer:   s.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var expiresAt *time.Time
	if s.config.SessionTTL > 0 {
		exp := now.Add(s.config.SessionTTL)
		expiresAt = &exp
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}
	return signed, expiresAt, nil
}

// Resolve maps a session token to its principal. Tokens that fail to parse or
// whose session or user is gone resolve to nil.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	claims := &models.SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, nil
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, internalError(err, "failed to load session")
	}
	if session == nil || session.UserID != claims.Subject {
		return nil, nil
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load user")
	}

	return &models.Principal{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		SessionID: session.ID,
	}, nil
}

// Logout ends the principal's session.
func (s *AuthService) Logout(ctx context.Context, principal *models.Principal, meta models.RequestMeta) error {
	if err := authz.Authorize(principal, authz.ActionLogout); err != nil {
		return err
	}
	if principal.SessionID != "" {
		if err := s.sessions.Delete(ctx, principal.SessionID); err != nil {
			return internalError(err, "failed to delete session")
		}
	}
	s.audit.Record(ctx, models.AuditEntry{
		UserID:     principal.ActorID(),
		Action:     models.AuditActionLogout,
		EntityType: models.EntityUser,
		EntityID:   principal.UserID,
		Meta:       meta,
	})
	return nil
}

// SeedAdmin creates an administrator account outside of any request.
func (s *AuthService) SeedAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	req := models.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid admin account")
	}
	user, err := s.createUser(ctx, req.Username, req.Email, req.Password, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("seed admin %s: %w", req.Username, err)
	}
	s.logger.Info("admin account created", zap.String("username", user.Username))
	return user, nil
}
