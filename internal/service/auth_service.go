package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pawfam/backend/internal/domain"
	"github.com/pawfam/backend/internal/observability/metrics"
	"github.com/pawfam/backend/internal/observability/tracing"
	"github.com/pawfam/backend/internal/security/audit"
	"github.com/pawfam/backend/internal/security/auth"
	"github.com/pawfam/backend/internal/validation"
	"github.com/pawfam/backend/pkg/cache"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is a sign-up request
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput is a sign-in request
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordInput starts a password reset
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput completes a password reset
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AuthResult is returned by register and login
type AuthResult struct {
	Token string
	User  *domain.User
}

// ResetNotifier delivers password reset tokens to users
type ResetNotifier interface {
	NotifyReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error
}

// LogNotifier only records that a token was issued. The token itself is
// written at debug level so local setups can complete the flow.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyReset(ctx context.Context, user *domain.User, token string, expiresAt time.Time) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset token issued",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", expiresAt),
	)
	logger.DebugContext(ctx, "password reset token", slog.String("user_id", user.ID), slog.String("token", token))
	return nil
}

// AuthConfig tunes the authentication service
type AuthConfig struct {
	ResetTokenTTL time.Duration
	UserCacheTTL  time.Duration
	BcryptCost    int
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo  domain.UserRepository
	tokens    *auth.TokenManager
	kv        domain.KeyValueStore
	notifier  ResetNotifier
	users     *cache.Cache[*domain.User]
	cfg       AuthConfig
	audit     *audit.Logger
	logger    *slog.Logger
	dummyHash []byte
	now       func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	kv domain.KeyValueStore,
	notifier ResetNotifier,
	cfg AuthConfig,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 15 * time.Minute
	}
	if cfg.UserCacheTTL <= 0 {
		cfg.UserCacheTTL = 30 * time.Second
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	// compared against on unknown emails so both failure paths cost a bcrypt check
	dummy, _ := bcrypt.GenerateFromPassword([]byte("pawfam-dummy-password"), cfg.BcryptCost)

	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		kv:        kv,
		notifier:  notifier,
		users:     cache.New[*domain.User](),
		cfg:       cfg,
		audit:     auditLog,
		logger:    logger,
		dummyHash: dummy,
		now:       time.Now,
	}
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	return s.register(ctx, in, domain.RoleCustomer)
}

// VendorRegister creates a vendor account and signs it in
func (s *AuthService) VendorRegister(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	return s.register(ctx, in, domain.RoleVendor)
}

func (s *AuthService) register(ctx context.Context, in RegisterInput, role domain.Role) (res *AuthResult, err error) {
	ctx, span := tracing.Start(ctx, "auth", "register")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuth("register", outcome(err))
	}()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: user already exists with this email", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return nil, fmt.Errorf("%w: username is already taken", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	// The unique indexes still decide races between the checks above and this insert.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.audit.LogAuth(ctx, user.ID, "register", nil)

	return s.issue(user)
}

// Login authenticates any account
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	return s.login(ctx, in, "")
}

// VendorLogin authenticates vendor accounts only
func (s *AuthService) VendorLogin(ctx context.Context, in LoginInput) (*AuthResult, error) {
	return s.login(ctx, in, domain.RoleVendor)
}

func (s *AuthService) login(ctx context.Context, in LoginInput, require domain.Role) (res *AuthResult, err error) {
	ctx, span := tracing.Start(ctx, "auth", "login")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuth("login", outcome(err))
	}()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		s.logger.Info("login attempt with non-existent email", slog.String("email", in.Email))
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("user_id", user.ID))
		s.audit.LogAuth(ctx, user.ID, "login", domain.ErrInvalidCredentials)
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}
	if require != "" && user.Role != require {
		s.audit.LogAuth(ctx, user.ID, "login", domain.ErrInvalidCredentials)
		return nil, fmt.Errorf("%w: not a %s account", domain.ErrInvalidCredentials, require)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	s.audit.LogAuth(ctx, user.ID, "login", nil)
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate verifies a session token without touching the store
func (s *AuthService) Authenticate(token string) (domain.Actor, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		metrics.ObserveAuth("token", "error")
		return domain.Actor{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return domain.Actor{UserID: claims.UserID, Role: domain.Role(claims.Role)}, nil
}

// CurrentUser resolves a token to its account
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	actor, err := s.Authenticate(token)
	if err != nil {
		return nil, err
	}
	return s.UserByID(ctx, actor.UserID)
}

// UserByID loads an account through the short-lived user cache. A missing
// account means the session outlived its user.
func (s *AuthService) UserByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := s.users.Get("user:" + id); ok {
		return u, nil
	}
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", domain.ErrUnauthenticated)
		}
		return nil, err
	}
	s.users.Set("user:"+id, u, s.cfg.UserCacheTTL)
	return u, nil
}

// SweepUserCache drops expired cached accounts
func (s *AuthService) SweepUserCache() int {
	return s.users.Sweep()
}

func resetKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "reset:" + hex.EncodeToString(sum[:])
}

// ForgotPassword issues a single-use reset token for the account
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (err error) {
	ctx, span := tracing.Start(ctx, "auth", "forgot_password")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuth("forgot_password", outcome(err))
	}()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return err
	}
	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no account with that email", domain.ErrNotFound)
		}
		return err
	}

	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.kv.Set(ctx, resetKey(token), user.ID, s.cfg.ResetTokenTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if err := s.notifier.NotifyReset(ctx, user, token, expiresAt); err != nil {
		_ = s.kv.Delete(ctx, resetKey(token))
		return fmt.Errorf("failed to deliver reset token: %w", err)
	}
	s.audit.LogAuth(ctx, user.ID, "forgot_password", nil)
	return nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (err error) {
	ctx, span := tracing.Start(ctx, "auth", "reset_password")
	defer func() {
		tracing.End(span, err)
		metrics.ObserveAuth("reset_password", outcome(err))
	}()

	in.Token = strings.TrimSpace(in.Token)
	if err := validation.Struct(in); err != nil {
		return err
	}

	userID, err := s.kv.GetDel(ctx, resetKey(in.Token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FieldError("token", "reset token is invalid or has expired")
		}
		return fmt.Errorf("failed to read reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.FieldError("token", "reset token is invalid or has expired")
		}
		return err
	}
	s.users.Delete("user:" + userID)
	s.audit.LogAuth(ctx, userID, "reset_password", nil)
	s.logger.Info("password reset", slog.String("user_id", userID))
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
