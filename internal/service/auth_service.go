package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"cmsadmin/internal/models"
	"cmsadmin/internal/observability"
	"cmsadmin/internal/repository"
)

// Login messages returned to clients.
const (
	MsgCredentialsRequired = "Email e senha são obrigatórios"
	MsgInvalidCredentials  = "Credenciales inválidas"
	MsgInvalidSession      = "Token inválido"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	User  models.Record `json:"user"`
	Token string        `json:"token"`
}

type AuthService struct {
	repo   repository.DocumentRepository
	tokens TokenIssuer
	now    func() time.Time
}

func NewAuthService(repo repository.DocumentRepository, tokens TokenIssuer) *AuthService {
	if tokens == nil {
		tokens = LegacyTokenIssuer{}
	}
	return &AuthService{repo: repo, tokens: tokens, now: time.Now}
}

// Login looks up the user whose email and password both match and stamps lastLogin.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		observability.LoginAttempts.WithLabelValues("missing_fields").Inc()
		return nil, models.NewValidationError(MsgCredentialsRequired)
	}

	users, err := s.repo.List(ctx, models.CollectionUsers)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var match models.Record
	for _, u := range users {
		if u.String("email") == email && PasswordMatches(u.String("password"), password) {
			match = u
			break
		}
	}
	if match == nil {
		observability.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, models.NewUnauthorizedError(MsgInvalidCredentials)
	}

	id, ok := match.ID()
	if !ok {
		return nil, models.NewInternalError(errors.New("user record without integer id"))
	}

	stamp := models.Timestamp(s.now())
	updated, err := s.repo.Update(ctx, models.CollectionUsers, id, func(cur models.Record) (models.Record, error) {
		return cur.Merge(models.Record{"lastLogin": stamp}), nil
	})
	if err != nil {
		return nil, translateError(err, models.CollectionUsers, id)
	}

	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.LoginAttempts.WithLabelValues("success").Inc()
	return &LoginResult{User: updated.Without("password"), Token: token}, nil
}

// ResolveToken maps a bearer token onto an existing user id.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (int64, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return 0, models.NewUnauthorizedError(MsgInvalidSession)
	}

	if _, err := s.repo.Get(ctx, models.CollectionUsers, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, models.NewUnauthorizedError(MsgInvalidSession)
		}
		return 0, models.NewInternalError(err)
	}
	return id, nil
}

// IssueToken returns the token for userID.
func (s *AuthService) IssueToken(userID int64) (string, error) {
	return s.tokens.Issue(userID)
}
