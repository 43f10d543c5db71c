package users

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"tux-order-services/internal/auth"
	"tux-order-services/internal/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	ResetURL  string
	ResetTTL  time.Duration
	Emailer   queue.Emailer
	Logger    *zap.Logger
	Now       func() time.Time
}

type Service struct {
	store    Store
	secret   string
	tokenTTL time.Duration
	resetURL string
	resetTTL time.Duration
	emailer  queue.Emailer
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store Store, cfg ServiceConfig) *Service {
	s := &Service{
		store:    store,
		secret:   cfg.JWTSecret,
		tokenTTL: cfg.TokenTTL,
		resetURL: cfg.ResetURL,
		resetTTL: cfg.ResetTTL,
		emailer:  cfg.Emailer,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = auth.DefaultTokenTTL
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.emailer == nil {
		s.emailer = queue.NewLogEmailer(s.logger)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
}

type ProfileInput struct {
	Email   *string `json:"email"`
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

// Session is a signed-in user and their bearer token.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" {
		return Session{}, errRegisterFields
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.Create(ctx, NewUser{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Address:      strings.TrimSpace(in.Address),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if errors.Is(err, ErrEmailTaken) {
		return Session{}, errEmailTaken
	}
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, errLoginFields
	}
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, errInvalidLogin
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return Session{}, errInvalidLogin
	}
	return s.session(user)
}

func (s *Service) Me(ctx context.Context, userID string) (User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return User{}, errUserGone
	}
	return user, err
}

// UpdateProfile applies the provided fields. Blank email or name values are
// ignored rather than clearing the account.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (User, error) {
	var changes Changes
	if in.Email != nil {
		if email := normalizeEmail(*in.Email); email != "" {
			changes.Email = &email
		}
	}
	if in.Name != nil {
		if name := strings.TrimSpace(*in.Name); name != "" {
			changes.Name = &name
		}
	}
	if in.Address != nil {
		address := strings.TrimSpace(*in.Address)
		changes.Address = &address
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		changes.Phone = &phone
	}

	user, err := s.store.Update(ctx, userID, changes)
	switch {
	case errors.Is(err, ErrEmailTaken):
		return User{}, errEmailTaken
	case errors.Is(err, ErrNotFound):
		return User{}, errUserGone
	}
	return user, err
}

// ForgotPassword issues a reset token when the account exists. Callers
// answer the same way either way so accounts cannot be probed.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errEmailRequired
	}
	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	reset := ResetToken{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.resetTTL),
	}
	if err := s.store.CreateResetToken(ctx, reset); err != nil {
		return err
	}

	job := queue.PasswordResetJob(user.Email, s.resetLink(reset.Token), reset.Token, reset.ExpiresAt)
	if err := s.emailer.Enqueue(ctx, job); err != nil {
		s.logger.Warn("password reset email not queued", zap.String("userId", user.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if token == "" || password == "" {
		return errResetFields
	}
	reset, err := s.store.FindResetToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return errInvalidReset
	}
	if err != nil {
		return err
	}
	if !s.now().Before(reset.ExpiresAt) {
		_ = s.store.DeleteResetToken(ctx, token)
		return errInvalidReset
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := s.store.Update(ctx, reset.UserID, Changes{PasswordHash: &hash}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return errInvalidReset
		}
		return err
	}
	return s.store.DeleteResetToken(ctx, token)
}

func (s *Service) session(user User) (Session, error) {
	token, err := auth.IssueAccessToken(user.ID, s.secret, s.tokenTTL, s.now())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (s *Service) resetLink(token string) string {
	u, err := url.Parse(s.resetURL)
	if err != nil || s.resetURL == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
