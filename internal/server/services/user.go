// Package services contains server-side business logic. This file implements
// UserService, the account lifecycle gate: registration, email verification,
// admin approval, login and session checks, password reset and user
// administration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docmark/internal/common"
	"github.com/dmitrijs2005/docmark/internal/cryptox"
	"github.com/dmitrijs2005/docmark/internal/logging"
	"github.com/dmitrijs2005/docmark/internal/server/auth"
	"github.com/dmitrijs2005/docmark/internal/server/config"
	"github.com/dmitrijs2005/docmark/internal/server/models"
	"github.com/dmitrijs2005/docmark/internal/server/repositories/repomanager"
)

// tokenBytes is the entropy of verification and reset tokens (hex encoded,
// so the token text is twice as long).
const tokenBytes = 32

// AccountMailer delivers the emails of the account lifecycle.
type AccountMailer interface {
	SendVerification(ctx context.Context, u *models.User, link string) error
	SendApproval(ctx context.Context, u *models.User, link string) error
	SendPasswordReset(ctx context.Context, u *models.User, link string) error
}

// ServerURLSource yields the public base URL used in email links.
type ServerURLSource interface {
	ServerURL() string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string          `json:"token"`
	User  *models.UserRef `json:"user"`
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	mailer                       AccountMailer
	urls                         ServerURLSource
	logger                       logging.Logger
	jwtSecret                    []byte
	sessionTokenValidityDuration time.Duration
	resetTokenValidityDuration   time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, mailer AccountMailer,
	urls ServerURLSource, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		mailer:                       mailer,
		urls:                         urls,
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		sessionTokenValidityDuration: cfg.SessionTokenValidityDuration,
		resetTokenValidityDuration:   cfg.ResetTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register creates an unverified, unapproved account and emails the
// verification link. A failed email does not fail the registration.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, common.ErrDuplicateEmail
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := cryptox.HashPassword(password)
	if errors.Is(err, common.ErrorValidation) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	u, err := repo.Create(ctx, &models.User{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              common.RoleUser,
		VerificationToken: &token,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	link := s.urls.ServerURL() + "/verify-email/" + token
	if err := s.mailer.SendVerification(ctx, u, link); err != nil {
		s.logger.Error(ctx, "verification email failed", "user_id", u.ID, "error", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// VerifyEmail consumes a verification token. Unknown and already used tokens
// both yield ErrInvalidToken.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrInvalidToken
	}
	u, err := s.repomanager.Users(s.db).MarkVerifiedByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error verifying email: %w", err)
	}
	s.logger.Info(ctx, "email verified", "user_id", u.ID)
	return u, nil
}

// Approve marks the account approved and tells the user by email.
func (s *UserService) Approve(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsApproved {
		return nil, common.ErrAlreadyApproved
	}

	if err := repo.SetApproved(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// approved concurrently
			return nil, common.ErrAlreadyApproved
		}
		return nil, err
	}
	u.IsApproved = true

	if err := s.mailer.SendApproval(ctx, u, s.urls.ServerURL()+"/login"); err != nil {
		s.logger.Error(ctx, "approval email failed", "user_id", u.ID, "error", err)
	}

	s.logger.Info(ctx, "user approved", "user_id", u.ID)
	return u, nil
}

// ManualVerify marks the email verified on the user's behalf.
func (s *UserService) ManualVerify(ctx context.Context, id string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, common.ErrAlreadyVerified
	}

	if err := repo.SetVerified(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrAlreadyVerified
		}
		return nil, err
	}
	u.IsVerified = true
	u.VerificationToken = nil

	s.logger.Info(ctx, "user verified manually", "user_id", u.ID)
	return u, nil
}

// Login checks credentials and account state and issues a session token.
// Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrBadCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := cryptox.ComparePassword(u.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return nil, common.ErrBadCredentials
	}

	if err := checkAccountState(u); err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(u.ID, u.Role, s.jwtSecret, s.sessionTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", u.ID)
	return &LoginResult{Token: token, User: u.Ref()}, nil
}

// Authenticate resolves a session token to the live user record. Any token
// problem, including a deleted user, is reported as ErrInvalidToken.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrNoToken
	}
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if err := checkAccountState(u); err != nil {
		return nil, err
	}
	return u, nil
}

// RequestPasswordReset stores a fresh reset token and emails it. If the email
// cannot be sent the token is withdrawn and ErrEmailDispatch is returned.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return fmt.Errorf("error generating token: %w", err)
	}
	if err := repo.SetResetToken(ctx, u.ID, token, s.now().Add(s.resetTokenValidityDuration)); err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	link := s.urls.ServerURL() + "/reset-password/" + token
	if sendErr := s.mailer.SendPasswordReset(ctx, u, link); sendErr != nil {
		s.logger.Error(ctx, "reset email failed", "user_id", u.ID, "error", sendErr)
		if err := repo.ClearResetToken(ctx, u.ID, token); err != nil {
			s.logger.Error(ctx, "reset token rollback failed", "user_id", u.ID, "error", err)
		}
		return fmt.Errorf("%w: %v", common.ErrEmailDispatch, sendErr)
	}

	s.logger.Info(ctx, "password reset requested", "user_id", u.ID)
	return nil
}

// ResetPassword sets a new password for the holder of an unexpired token.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return common.ErrInvalidOrExpiredToken
	}
	hash, err := cryptox.HashPassword(password)
	if errors.Is(err, common.ErrorValidation) {
		return err
	}
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	id, err := s.repomanager.Users(s.db).ResetPassword(ctx, token, hash, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("error resetting password: %w", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", id)
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

func (s *UserService) ChangeRole(ctx context.Context, id, role string) (*models.User, error) {
	if role != common.RoleUser && role != common.RoleAdmin {
		return nil, common.ErrInvalidRole
	}
	u, err := s.repomanager.Users(s.db).SetRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "role changed", "user_id", id, "role", role)
	return u, nil
}

// DeleteUser removes one account. Admins cannot remove themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if id == actorID {
		return common.ErrSelfDelete
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "user deleted", "user_id", id, "by", actorID)
	return nil
}

// DeleteUsers removes several accounts and returns how many existed. A list
// naming the actor is rejected as a whole.
func (s *UserService) DeleteUsers(ctx context.Context, actorID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, common.ErrNoIDs
	}
	for _, id := range ids {
		if id == actorID {
			return 0, common.ErrSelfDelete
		}
	}

	n, err := s.repomanager.Users(s.db).DeleteMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "users deleted", "count", n, "by", actorID)
	return n, nil
}

// BootstrapAdmin makes sure the configured administrator exists, is verified,
// approved, holds the admin role and signs in with password.
func (s *UserService) BootstrapAdmin(ctx context.Context, name, email, password string) error {
	repo := s.repomanager.Users(s.db)

	u, err := repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		hash, err := cryptox.HashPassword(password)
		if err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}
		u, err = repo.Create(ctx, &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         common.RoleAdmin,
			IsVerified:   true,
			IsApproved:   true,
		})
		if err != nil {
			return fmt.Errorf("error creating admin: %w", err)
		}
		s.logger.Info(ctx, "admin account created", "user_id", u.ID)
		return nil
	case err != nil:
		return fmt.Errorf("error searching admin: %w", err)
	}

	hash := u.PasswordHash
	ok, err := cryptox.ComparePassword(u.PasswordHash, password)
	if err != nil || !ok {
		if hash, err = cryptox.HashPassword(password); err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}
	}

	if err := repo.EnsureAdmin(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("error updating admin: %w", err)
	}
	s.logger.Info(ctx, "admin account ensured", "user_id", u.ID)
	return nil
}

// PurgeExpiredResetTokens clears reset token pairs that expired before now.
func (s *UserService) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	return s.repomanager.Users(s.db).PurgeExpiredResetTokens(ctx, now)
}

func checkAccountState(u *models.User) error {
	if !u.IsVerified {
		return common.ErrNotVerified
	}
	if !u.IsApproved {
		return common.ErrNotApproved
	}
	return nil
}
