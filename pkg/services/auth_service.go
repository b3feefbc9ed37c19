package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"

	"paydesk/pkg/api"
	"paydesk/pkg/errors"
	"paydesk/pkg/models"
	"paydesk/pkg/session"
)

// AccountAPI is the part of the REST API that feeds the session.
type AccountAPI interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	UpdateProfile(ctx context.Context, token, firstName, lastName string) (models.Profile, error)
	UpdateAvatar(ctx context.Context, token, avatarURL string) (models.Profile, error)
	BankAccounts(ctx context.Context, token string) ([]models.BankAccount, error)
}

// AuthService turns API responses into session actions
type AuthService struct {
	api       AccountAPI
	store     *session.Store
	validator *errors.Validator
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(client AccountAPI, store *session.Store, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		api:       client,
		store:     store,
		validator: errors.NewValidator(),
		logger:    logger,
	}
}

// Login authenticates against the API and saves the returned session.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.Session, error) {
	if result := s.validator.ValidateLogin(email, password); !result.IsValid {
		return models.Session{}, result.GetFirstError()
	}

	resp, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		s.logFailure("login failed", err)
		return models.Session{}, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		errors.ErrInvalidLoginResponse.Log(s.logger)
		return models.Session{}, errors.ErrInvalidLoginResponse
	}

	s.store.SaveSession(resp.Token, resp.Profile, resp.Accounts)
	s.logger.Info("signed in", "email", resp.Profile.Email, "accounts", len(resp.Accounts))
	return s.store.Get(), nil
}

// Logout signs out. With forget the durable entry is removed as well, so
// profile and accounts do not survive a restart.
func (s *AuthService) Logout(forget bool) error {
	s.store.ClearSession()
	if !forget {
		return nil
	}
	if err := s.store.Forget(); err != nil {
		appErr := errors.ErrStorageWriteFailed.WithCause(err).
			WithUserMessage("Signed out, but the saved profile could not be removed")
		appErr.Log(s.logger)
		return appErr
	}
	return nil
}

// UpdateProfile changes the user's names remotely, then locally.
func (s *AuthService) UpdateProfile(ctx context.Context, firstName, lastName string) (models.Profile, error) {
	token, err := s.token()
	if err != nil {
		return models.Profile{}, err
	}
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if result := s.validator.ValidateProfileNames(firstName, lastName); !result.IsValid {
		return models.Profile{}, result.GetFirstError()
	}

	profile, err := s.api.UpdateProfile(ctx, token, firstName, lastName)
	if err != nil {
		s.expire(err)
		s.logFailure("profile update failed", err)
		return models.Profile{}, err
	}

	s.store.UpdateProfileFields(profile.FirstName, profile.LastName)
	return s.store.Get().Profile, nil
}

// UpdateAvatar changes the avatar remotely, then locally.
func (s *AuthService) UpdateAvatar(ctx context.Context, avatarURL string) (models.Profile, error) {
	token, err := s.token()
	if err != nil {
		return models.Profile{}, err
	}
	avatarURL = strings.TrimSpace(avatarURL)
	if result := s.validator.ValidateAvatarURL(avatarURL); !result.IsValid {
		return models.Profile{}, result.GetFirstError()
	}

	profile, err := s.api.UpdateAvatar(ctx, token, avatarURL)
	if err != nil {
		s.expire(err)
		s.logFailure("avatar update failed", err)
		return models.Profile{}, err
	}

	s.store.UpdateAvatar(profile.AvatarURL)
	return s.store.Get().Profile, nil
}

// RefreshAccounts refetches bank accounts and replaces the stored sequence.
// If the user signed out while the request was in flight the result is
// returned but not saved.
func (s *AuthService) RefreshAccounts(ctx context.Context) ([]models.BankAccount, error) {
	token, err := s.token()
	if err != nil {
		return nil, err
	}

	accounts, err := s.api.BankAccounts(ctx, token)
	if err != nil {
		s.expire(err)
		s.logFailure("bank account refresh failed", err)
		return nil, err
	}

	current := s.store.Get()
	if !current.IsAuthenticated || current.Token != token {
		s.logger.Warn("session changed during account refresh, result not saved")
		return accounts, nil
	}
	s.store.SaveSession(current.Token, current.Profile, accounts)
	return accounts, nil
}

func (s *AuthService) token() (string, error) {
	sess := s.store.Get()
	if !sess.IsAuthenticated {
		return "", errors.ErrNotAuthenticated
	}
	return sess.Token, nil
}

// expire signs the user out when the API rejected the token.
func (s *AuthService) expire(err error) {
	expireSession(s.store, s.logger, err)
}

func (s *AuthService) logFailure(msg string, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Type == errors.ErrTypeValidation {
		return
	}
	s.logger.Warn(msg, "error", err)
}

func expireSession(store *session.Store, logger *slog.Logger, err error) {
	if stderrors.Is(err, errors.ErrSessionExpired) && store.IsAuthenticated() {
		logger.Info("api rejected session token, signing out")
		store.ClearSession()
	}
}
