package app

import (
	"context"
	"strings"
	"time"

	"impact_chat/internal/chat/domain"
	errprocess "impact_chat/pkg/err"
	"impact_chat/pkg/logger"
	"impact_chat/pkg/token"

	"go.uber.org/zap"
)

// AuthRepository auth endpoints
type AuthRepository interface {
	Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResult, error)
	Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResult, error)
	Me(ctx context.Context, token string) (domain.User, error)
}

// CredentialStore durable token + display name
type CredentialStore interface {
	Load(ctx context.Context) (domain.Credential, error)
	Save(ctx context.Context, cred domain.Credential) error
	Clear(ctx context.Context) error
}

// AuthUseCase login / register / logout and session restore
type AuthUseCase interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (domain.Credential, error)
	Whoami(ctx context.Context) (domain.User, error)
}

type authUseCase struct {
	repo    AuthRepository
	store   CredentialStore
	session *SessionContext
	now     func() time.Time
}

// NewAuthUseCase 建立一個新的 AuthUseCase
func NewAuthUseCase(repo AuthRepository, store CredentialStore, session *SessionContext) AuthUseCase {
	return &authUseCase{
		repo:    repo,
		store:   store,
		session: session,
		now:     time.Now,
	}
}

// Login
func (a *authUseCase) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, errprocess.Validation("login", "email and password required")
	}
	res, err := a.repo.Login(ctx, domain.LoginRequest{Email: email, Password: password})
	if err != nil {
		return domain.User{}, err
	}
	return res.User, a.adopt(ctx, res)
}

// Register
func (a *authUseCase) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return domain.User{}, errprocess.Validation("register", "email, name and password required")
	}
	res, err := a.repo.Register(ctx, req)
	if err != nil {
		return domain.User{}, err
	}
	return res.User, a.adopt(ctx, res)
}

func (a *authUseCase) adopt(ctx context.Context, res domain.AuthResult) error {
	a.session.SetCredential(res.Token)
	a.session.SetUsername(res.User.Name)

	cred := domain.Credential{
		Token:    res.Token,
		Username: res.User.Name,
		UserID:   a.session.Current().UserID,
	}
	if err := a.store.Save(ctx, cred); err != nil {
		logger.Log.Error("save credential", zap.Error(err))
		return err
	}
	return nil
}

// Logout drop the local credential; the server keeps no session
func (a *authUseCase) Logout(ctx context.Context) error {
	a.session.Clear()
	return a.store.Clear(ctx)
}

// Restore load the stored credential into the session.
// Expired tokens are cleared and reported as ErrNoCredential.
func (a *authUseCase) Restore(ctx context.Context) (domain.Credential, error) {
	cred, err := a.store.Load(ctx)
	if err != nil {
		return domain.Credential{}, err
	}
	if cred.Token != "" && token.Expired(cred.Token, a.now()) {
		logger.Log.Info("stored credential expired")
		_ = a.store.Clear(ctx)
		return domain.Credential{}, domain.ErrNoCredential
	}

	if cred.Token != "" {
		a.session.SetCredential(cred.Token)
	}
	a.session.SetUsername(cred.Username)
	return cred, nil
}

// Whoami ask the server who the stored token belongs to
func (a *authUseCase) Whoami(ctx context.Context) (domain.User, error) {
	t := a.session.Current().Token
	if t == "" {
		return domain.User{}, errprocess.Validation("whoami", "login required")
	}
	return a.repo.Me(ctx, t)
}
