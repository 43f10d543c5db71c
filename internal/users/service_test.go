package users

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"tux-order-services/internal/auth"
	"tux-order-services/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	users  map[string]User
	resets map[string]ResetToken
	nextID int
}

func newMemStore() *memStore {
	return &memStore{users: map[string]User{}, resets: map[string]ResetToken{}}
}

func (m *memStore) Create(_ context.Context, u NewUser) (User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailTaken
		}
	}
	m.nextID++
	user := User{ID: strconv.Itoa(m.nextID), Email: u.Email, PasswordHash: u.PasswordHash, Name: u.Name, Address: u.Address, Phone: u.Phone}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) FindByID(_ context.Context, id string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) Update(_ context.Context, id string, c Changes) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if c.Email != nil {
		for otherID, other := range m.users {
			if otherID != id && other.Email == *c.Email {
				return User{}, ErrEmailTaken
			}
		}
		u.Email = *c.Email
	}
	if c.Name != nil {
		u.Name = *c.Name
	}
	if c.Address != nil {
		u.Address = *c.Address
	}
	if c.Phone != nil {
		u.Phone = *c.Phone
	}
	if c.PasswordHash != nil {
		u.PasswordHash = *c.PasswordHash
	}
	m.users[id] = u
	return u, nil
}

func (m *memStore) CreateResetToken(_ context.Context, t ResetToken) error {
	m.resets[t.Token] = t
	return nil
}

func (m *memStore) FindResetToken(_ context.Context, token string) (ResetToken, error) {
	t, ok := m.resets[token]
	if !ok {
		return ResetToken{}, ErrNotFound
	}
	return t, nil
}

func (m *memStore) DeleteResetToken(_ context.Context, token string) error {
	delete(m.resets, token)
	return nil
}

type recordingEmailer struct{ jobs []queue.EmailJob }

func (r *recordingEmailer) Enqueue(_ context.Context, job queue.EmailJob) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func newTestService(store Store, emailer queue.Emailer) *Service {
	return NewService(store, ServiceConfig{
		JWTSecret: "secret",
		ResetURL:  "http://localhost:4000/reset-password",
		Emailer:   emailer,
	})
}

func requireUserError(t *testing.T, err error, status int, message string) {
	t.Helper()
	ue, ok := AsError(err)
	require.True(t, ok, "expected users.Error, got %v", err)
	assert.Equal(t, status, ue.StatusCode)
	assert.Equal(t, message, ue.Message)
}

func TestRegisterAndLogin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Email: " Mona@Example.com ", Password: "hunter22", Name: " Mona "})
	require.NoError(t, err)
	assert.Equal(t, "mona@example.com", session.User.Email)
	assert.Equal(t, "Mona", session.User.Name)

	claims, err := auth.VerifyAccessToken(session.Token, "secret")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID())

	_, err = svc.Register(ctx, RegisterInput{Email: "mona@example.com", Password: "x", Name: "Other"})
	requireUserError(t, err, http.StatusConflict, "Email is already registered.")

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.co"})
	requireUserError(t, err, http.StatusBadRequest, "Email, password, and name are required.")

	login, err := svc.Login(ctx, "MONA@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "mona@example.com", "wrong")
	requireUserError(t, err, http.StatusUnauthorized, "Invalid email or password.")
	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	requireUserError(t, err, http.StatusUnauthorized, "Invalid email or password.")
}

func TestUpdateProfile(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "pw", Name: "A"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "b@example.com", Password: "pw", Name: "B"})
	require.NoError(t, err)

	blank := "  "
	address := " 12 Road 9, Maadi "
	updated, err := svc.UpdateProfile(ctx, a.User.ID, ProfileInput{Name: &blank, Address: &address})
	require.NoError(t, err)
	assert.Equal(t, "A", updated.Name)
	assert.Equal(t, "12 Road 9, Maadi", updated.Address)

	taken := "B@example.com"
	_, err = svc.UpdateProfile(ctx, a.User.ID, ProfileInput{Email: &taken})
	requireUserError(t, err, http.StatusConflict, "Email is already registered.")

	_, err = svc.Me(ctx, "999")
	requireUserError(t, err, http.StatusUnauthorized, "User not found.")
}

func TestPasswordResetFlow(t *testing.T) {
	store := newMemStore()
	emailer := &recordingEmailer{}
	svc := newTestService(store, emailer)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "old-pass", Name: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, emailer.jobs)

	require.NoError(t, svc.ForgotPassword(ctx, "A@example.com"))
	require.Len(t, emailer.jobs, 1)
	require.Len(t, store.resets, 1)
	var token string
	for tok := range store.resets {
		token = tok
	}
	assert.Equal(t, "a@example.com", emailer.jobs[0].To)
	assert.Equal(t, "http://localhost:4000/reset-password?token="+token, emailer.jobs[0].Params["resetLink"])

	err = svc.ResetPassword(ctx, "bogus", "new-pass")
	requireUserError(t, err, http.StatusBadRequest, "Invalid or expired token.")

	require.NoError(t, svc.ResetPassword(ctx, token, "new-pass"))
	assert.Empty(t, store.resets)

	_, err = svc.Login(ctx, "a@example.com", "old-pass")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "a@example.com", "new-pass")
	assert.NoError(t, err)

	err = svc.ResetPassword(ctx, token, "again")
	requireUserError(t, err, http.StatusBadRequest, "Invalid or expired token.")
}

func TestResetPasswordExpired(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{Email: "a@example.com", Password: "pw", Name: "A"})
	require.NoError(t, err)
	store.resets["old"] = ResetToken{Token: "old", UserID: session.User.ID, ExpiresAt: time.Now().Add(-time.Minute)}

	err = svc.ResetPassword(ctx, "old", "new-pass")
	requireUserError(t, err, http.StatusBadRequest, "Invalid or expired token.")
	assert.NotContains(t, store.resets, "old")

	err = svc.ResetPassword(ctx, "", "")
	requireUserError(t, err, http.StatusBadRequest, "Token and new password are required.")
}
