package oauth

import (
	"context"
	"strings"
	"testing"

	"account-service/internal/config"
	domainAccount "account-service/internal/domain/account"
	appErrors "account-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*domainAccount.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domainAccount.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domainAccount.User, p *domainAccount.Profile) error {
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domainAccount.ErrUserAlreadyExists
		}
	}
	u.ID = uuid.New()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domainAccount.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domainAccount.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domainAccount.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrUserNotFound
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domainAccount.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrUserNotFound
}

func (f *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domainAccount.User, error) {
	if u, err := f.GetByUsername(ctx, identifier); err == nil {
		return u, nil
	}
	return f.GetByEmail(ctx, identifier)
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domainAccount.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return domainAccount.ErrUserNotFound
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	u, ok := f.users[userID]
	if !ok {
		return domainAccount.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordLogin = true
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, ok := f.users[userID]; !ok {
		return domainAccount.ErrUserNotFound
	}
	delete(f.users, userID)
	return nil
}

type fakeLinkRepo struct {
	links map[uuid.UUID]*domainAccount.OAuthLink
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[uuid.UUID]*domainAccount.OAuthLink)}
}

func (f *fakeLinkRepo) Create(ctx context.Context, link *domainAccount.OAuthLink) error {
	for _, existing := range f.links {
		if existing.Provider == link.Provider && existing.ProviderID == link.ProviderID {
			return domainAccount.ErrLinkExists
		}
	}
	link.ID = uuid.New()
	stored := *link
	f.links[link.ID] = &stored
	return nil
}

func (f *fakeLinkRepo) GetByProviderID(ctx context.Context, provider, providerID string) (*domainAccount.OAuthLink, error) {
	for _, l := range f.links {
		if l.Provider == provider && l.ProviderID == providerID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrLinkNotFound
}

func (f *fakeLinkRepo) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domainAccount.OAuthLink, error) {
	var out []*domainAccount.OAuthLink
	for _, l := range f.links {
		if l.UserID == userID {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeLinkRepo) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	for id, l := range f.links {
		if l.UserID == userID && l.Provider == provider {
			delete(f.links, id)
			return nil
		}
	}
	return domainAccount.ErrLinkNotFound
}

func newTestService(t *testing.T) (*Service, *fakeUserRepo, *fakeLinkRepo) {
	t.Helper()
	users := newFakeUserRepo()
	links := newFakeLinkRepo()
	cfg := &config.Config{
		OAuth: config.OAuthConfig{
			GoogleClientID:     "client-id",
			GoogleClientSecret: "client-secret",
			GoogleRedirectURL:  "http://localhost:8080/api/v1/account/google/callback",
		},
	}
	return NewService(users, links, cfg), users, links
}

func TestGetOrCreateIsIdempotentByEmail(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)

	first, err := svc.GetOrCreate(ctx, "carol@example.com", "carol", "Carol", "Chen")
	require.NoError(t, err)
	second, err := svc.GetOrCreate(ctx, "carol@example.com", "carol", "Carol", "Chen")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, users.users, 1)
}

func TestGetOrCreateProvisionsActiveUserWithoutPasswordLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	user, err := svc.GetOrCreate(ctx, "carol@example.com", "carol", "Carol", "Chen")
	require.NoError(t, err)

	assert.Equal(t, "carol", user.Username)
	assert.True(t, user.Active)
	assert.False(t, user.PasswordLogin)
	assert.NotEmpty(t, user.PasswordHash)
}

func TestGetOrCreateDerivesUsernameOnCollision(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)

	require.NoError(t, users.Create(ctx, &domainAccount.User{
		Username: "carol",
		Email:    "carol@elsewhere.example.com",
	}, nil))

	user, err := svc.GetOrCreate(ctx, "carol@example.com", "carol", "Carol", "Chen")
	require.NoError(t, err)

	assert.NotEqual(t, "carol", user.Username)
	assert.True(t, strings.HasPrefix(user.Username, "carol_"))
}

func TestLinkIdempotentForSameUserConflictForOther(t *testing.T) {
	ctx := context.Background()
	svc, _, links := newTestService(t)

	alice, err := svc.GetOrCreate(ctx, "alice@example.com", "alice", "Alice", "Archer")
	require.NoError(t, err)
	bob, err := svc.GetOrCreate(ctx, "bob@example.com", "bob", "Bob", "Brown")
	require.NoError(t, err)

	require.NoError(t, svc.Link(ctx, alice, ProviderGoogle, "sub-1"))
	require.NoError(t, svc.Link(ctx, alice, ProviderGoogle, "sub-1"))
	assert.Len(t, links.links, 1)

	err = svc.Link(ctx, bob, ProviderGoogle, "sub-1")
	assert.ErrorIs(t, err, appErrors.ErrOAuthSubjectLinked)
}

func TestUnlinkRefusesLastAuthMethod(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	user, err := svc.GetOrCreate(ctx, "alice@example.com", "alice", "Alice", "Archer")
	require.NoError(t, err)
	require.NoError(t, svc.Link(ctx, user, ProviderGoogle, "sub-1"))

	err = svc.Unlink(ctx, user.ID, ProviderGoogle)
	assert.ErrorIs(t, err, appErrors.ErrLastAuthMethod)
}

func TestUnlinkAllowedWithPasswordLogin(t *testing.T) {
	ctx := context.Background()
	svc, users, links := newTestService(t)

	user, err := svc.GetOrCreate(ctx, "alice@example.com", "alice", "Alice", "Archer")
	require.NoError(t, err)
	require.NoError(t, svc.Link(ctx, user, ProviderGoogle, "sub-1"))

	// A password set later makes the link removable.
	require.NoError(t, users.UpdatePassword(ctx, user.ID, "some-hash"))

	require.NoError(t, svc.Unlink(ctx, user.ID, ProviderGoogle))
	assert.Empty(t, links.links)
}

func TestUnlinkUnknownProvider(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newTestService(t)

	user, err := svc.GetOrCreate(ctx, "alice@example.com", "alice", "Alice", "Archer")
	require.NoError(t, err)
	require.NoError(t, users.UpdatePassword(ctx, user.ID, "some-hash"))

	err = svc.Unlink(ctx, user.ID, ProviderGoogle)
	assert.ErrorIs(t, err, appErrors.ErrUserNotFound)
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestGoogleAuthURLCarriesState(t *testing.T) {
	svc, _, _ := newTestService(t)

	url := svc.GoogleAuthURL("state-value")
	assert.Contains(t, url, "state=state-value")
	assert.Contains(t, url, "client_id=client-id")
}
