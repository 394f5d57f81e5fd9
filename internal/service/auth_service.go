package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/security/auth"
)

const tokenLifetime = 15 * time.Minute

// AuthService handles account registration and credential checks. Tenant
// accounts are not created here; they come out of room-code onboarding.
type AuthService struct {
	store  domain.Store
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(store domain.Store, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{store: store, tokens: tokens, logger: logger}
}

// RegisterInput holds an owner or admin signup request
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}

// LoginResult represents login response
type LoginResult struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// Register creates a new owner account. Admin accounts are provisioned out of
// band, never through this endpoint.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return nil, domain.E(domain.KindValidation, "email and password are required")
	}
	if len(input.Password) < 8 {
		return nil, domain.E(domain.KindValidation, "password must be at least 8 characters")
	}
	role := domain.Role(input.Role)
	if role == "" {
		role = domain.RoleOwner
	}
	if role != domain.RoleOwner {
		return nil, domain.E(domain.KindValidation, "only owner accounts can self-register")
	}

	exists, err := s.store.Users().ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.E(domain.KindConflict, "email is already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.Wrap(domain.KindUnknown, "failed to register user", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return s.issueToken(user)
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.E(domain.KindValidation, "email and password are required")
	}

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with non-existent email", slog.String("email", email))
		return nil, domain.E(domain.KindForbidden, "invalid credentials")
	}
	if !user.IsActive {
		return nil, domain.E(domain.KindForbidden, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, domain.E(domain.KindForbidden, "invalid credentials")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return s.issueToken(user)
}

// VerifyToken validates a JWT and returns the caller identity embedded in it.
func (s *AuthService) VerifyToken(tokenString string) (*domain.Caller, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, domain.Wrap(domain.KindForbidden, "invalid token", err)
	}
	return &domain.Caller{
		ID:    claims.UserID,
		Email: claims.Email,
		Role:  domain.Role(claims.Role),
	}, nil
}

// ChangePassword changes a user's password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.E(domain.KindValidation, "new password must be at least 8 characters")
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.E(domain.KindForbidden, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return domain.Wrap(domain.KindUnknown, "failed to change password", err)
	}
	user.PasswordHash = string(hash)
	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user changed password", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) issueToken(user *domain.User) (*LoginResult, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), tokenLifetime)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, domain.Wrap(domain.KindUnknown, "failed to generate token", err)
	}
	return &LoginResult{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		Token:     token,
		ExpiresIn: int(tokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}
