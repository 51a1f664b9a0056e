package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"club-site/internal/token"
)

const (
	defaultTokenTTL = time.Hour
	adminSubject    = "admin"
	adminScope      = "admin"
	tokenIssuer     = "club-site"
)

type ParamGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

// AdminService gates the admin view: it checks the admin password against a
// bcrypt hash held in the parameter store and issues signed capability tokens.
type AdminService struct {
	params      ParamGetter
	paramPrefix string
	tokenTTL    time.Duration
	now         func() time.Time

	cacheMu      sync.RWMutex
	cacheLoaded  bool
	passwordHash []byte
	tokens       *token.Manager
}

type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
}

func NewAdminService(p ParamGetter, paramPrefix string, tokenTTL time.Duration) (*AdminService, error) {
	if p == nil {
		return nil, errors.New("usecase: param getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AdminService{params: p, paramPrefix: paramPrefix, tokenTTL: tokenTTL, now: time.Now}, nil
}

// Login exchanges the admin password for a capability token.
func (s *AdminService) Login(ctx context.Context, password string) (LoginOutput, error) {
	if password == "" {
		return LoginOutput{}, newError(ErrorValidation, ReasonMissingPassword, nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return LoginOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	s.cacheMu.RLock()
	hash, tokens := s.passwordHash, s.tokens
	s.cacheMu.RUnlock()

	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		slog.WarnContext(ctx, "admin login rejected")
		return LoginOutput{}, newError(ErrorUnauthorized, ReasonInvalidCredentials, nil)
	default:
		return LoginOutput{}, newError(ErrorInternal, "password_hash_error", err)
	}

	signed, exp, err := tokens.Issue(adminSubject, adminScope)
	if err != nil {
		return LoginOutput{}, newError(ErrorInternal, "token_issue_error", err)
	}
	return LoginOutput{Token: signed, ExpiresAt: exp}, nil
}

// Authorize checks a capability token previously issued by Login.
func (s *AdminService) Authorize(ctx context.Context, bearer string) error {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return newError(ErrorUnauthorized, ReasonMissingToken, nil)
	}
	if err := s.ensureConfig(ctx); err != nil {
		return newError(ErrorInternal, "ssm_load_error", err)
	}

	s.cacheMu.RLock()
	tokens := s.tokens
	s.cacheMu.RUnlock()

	claims, err := tokens.Verify(bearer)
	if errors.Is(err, token.ErrExpiredToken) {
		return newError(ErrorUnauthorized, ReasonExpiredToken, err)
	}
	if err != nil {
		return newError(ErrorUnauthorized, ReasonInvalidToken, err)
	}
	if claims.Subject != adminSubject || claims.Scope != adminScope {
		return newError(ErrorUnauthorized, ReasonInvalidToken, nil)
	}
	return nil
}

func (s *AdminService) ensureConfig(ctx context.Context) error {
	s.cacheMu.RLock()
	if s.cacheLoaded {
		s.cacheMu.RUnlock()
		return nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return nil
	}

	hashName := s.paramPrefix + "/admin_password_hash"
	secretName := s.paramPrefix + "/token_secret"
	vals, err := s.params.GetParameters(ctx, hashName, secretName)
	if err != nil {
		return fmt.Errorf("usecase: load admin secrets: %w", err)
	}
	hash := strings.TrimSpace(vals[hashName])
	if hash == "" {
		return errors.New("usecase: admin password hash is empty")
	}
	tokens, err := token.NewManager([]byte(vals[secretName]), s.tokenTTL, tokenIssuer,
		token.WithClock(func() time.Time { return s.now() }))
	if err != nil {
		return fmt.Errorf("usecase: token manager: %w", err)
	}

	s.passwordHash = []byte(hash)
	s.tokens = tokens
	s.cacheLoaded = true
	return nil
}
