package account

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	domainAccount "account-service/internal/domain/account"

	"github.com/google/uuid"
)

// memStore backs the fake repositories with one shared dataset so
// cross-entity effects (cascades, uniqueness) behave like the real
// database.
type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domainAccount.User
	profiles map[uuid.UUID]*domainAccount.Profile
	tokens   map[uuid.UUID]*domainAccount.SecurityToken
	links    map[uuid.UUID]*domainAccount.OAuthLink
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*domainAccount.User),
		profiles: make(map[uuid.UUID]*domainAccount.Profile),
		tokens:   make(map[uuid.UUID]*domainAccount.SecurityToken),
		links:    make(map[uuid.UUID]*domainAccount.OAuthLink),
	}
}

type fakeUserRepo struct{ store *memStore }

func (f *fakeUserRepo) Create(ctx context.Context, u *domainAccount.User, p *domainAccount.Profile) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, existing := range f.store.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domainAccount.ErrUserAlreadyExists
		}
	}

	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt

	if p == nil {
		p = &domainAccount.Profile{}
	}
	p.ID = uuid.New()
	p.UserID = u.ID

	stored := *u
	storedProfile := *p
	f.store.users[u.ID] = &stored
	f.store.profiles[u.ID] = &storedProfile

	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domainAccount.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	u, ok := f.store.users[userID]
	if !ok {
		return nil, domainAccount.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domainAccount.User, error) {
	return f.find(func(u *domainAccount.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domainAccount.User, error) {
	return f.find(func(u *domainAccount.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domainAccount.User, error) {
	return f.find(func(u *domainAccount.User) bool {
		return u.Username == identifier || u.Email == identifier
	})
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domainAccount.User) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if _, ok := f.store.users[u.ID]; !ok {
		return domainAccount.ErrUserNotFound
	}
	for id, existing := range f.store.users {
		if id != u.ID && (existing.Username == u.Username || existing.Email == u.Email) {
			return domainAccount.ErrUserAlreadyExists
		}
	}

	u.UpdatedAt = time.Now()
	stored := *u
	f.store.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	u, ok := f.store.users[userID]
	if !ok {
		return domainAccount.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.PasswordLogin = true
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if _, ok := f.store.users[userID]; !ok {
		return domainAccount.ErrUserNotFound
	}
	delete(f.store.users, userID)
	delete(f.store.profiles, userID)
	for id, t := range f.store.tokens {
		if t.UserID == userID {
			delete(f.store.tokens, id)
		}
	}
	for id, l := range f.store.links {
		if l.UserID == userID {
			delete(f.store.links, id)
		}
	}
	return nil
}

func (f *fakeUserRepo) find(match func(*domainAccount.User) bool) (*domainAccount.User, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, u := range f.store.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrUserNotFound
}

type fakeProfileRepo struct{ store *memStore }

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domainAccount.Profile, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	p, ok := f.store.profiles[userID]
	if !ok {
		return nil, domainAccount.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, p *domainAccount.Profile) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if _, ok := f.store.profiles[p.UserID]; !ok {
		return domainAccount.ErrProfileNotFound
	}
	stored := *p
	f.store.profiles[p.UserID] = &stored
	return nil
}

type fakeTokenRepo struct {
	store *memStore

	// collideOnce makes the next Create report a uniqueness collision.
	collideOnce bool
}

func (f *fakeTokenRepo) Create(ctx context.Context, t *domainAccount.SecurityToken) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	if f.collideOnce {
		f.collideOnce = false
		return domainAccount.ErrTokenExists
	}
	for _, existing := range f.store.tokens {
		if existing.Token == t.Token && existing.Salt == t.Salt {
			return domainAccount.ErrTokenExists
		}
	}

	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.Expired = false
	stored := *t
	f.store.tokens[t.ID] = &stored
	return nil
}

func (f *fakeTokenRepo) GetByTokenAndSalt(ctx context.Context, token, salt string) (*domainAccount.SecurityToken, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, t := range f.store.tokens {
		if t.Token == token && t.Salt == salt {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrTokenNotFound
}

func (f *fakeTokenRepo) MarkExpired(ctx context.Context, tokenID uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	t, ok := f.store.tokens[tokenID]
	if !ok {
		return domainAccount.ErrTokenNotFound
	}
	t.Expired = true
	return nil
}

func (f *fakeTokenRepo) Delete(ctx context.Context, tokenID uuid.UUID) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	delete(f.store.tokens, tokenID)
	return nil
}

type fakeOAuthRepo struct{ store *memStore }

func (f *fakeOAuthRepo) Create(ctx context.Context, link *domainAccount.OAuthLink) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, existing := range f.store.links {
		if existing.Provider == link.Provider && existing.ProviderID == link.ProviderID {
			return domainAccount.ErrLinkExists
		}
	}

	link.ID = uuid.New()
	link.CreatedAt = time.Now()
	stored := *link
	f.store.links[link.ID] = &stored
	return nil
}

func (f *fakeOAuthRepo) GetByProviderID(ctx context.Context, provider, providerID string) (*domainAccount.OAuthLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for _, l := range f.store.links {
		if l.Provider == provider && l.ProviderID == providerID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, domainAccount.ErrLinkNotFound
}

func (f *fakeOAuthRepo) GetByUser(ctx context.Context, userID uuid.UUID) ([]*domainAccount.OAuthLink, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	var links []*domainAccount.OAuthLink
	for _, l := range f.store.links {
		if l.UserID == userID {
			copied := *l
			links = append(links, &copied)
		}
	}
	return links, nil
}

func (f *fakeOAuthRepo) Delete(ctx context.Context, userID uuid.UUID, provider string) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	for id, l := range f.store.links {
		if l.UserID == userID && l.Provider == provider {
			delete(f.store.links, id)
			return nil
		}
	}
	return domainAccount.ErrLinkNotFound
}

// fakeMailer records the emails the service sends and exposes the raw
// security token carried in each link.
type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	kind      string
	recipient string
	link      string
}

func (m *fakeMailer) SendAccountConfirmation(ctx context.Context, recipient, username, link string) error {
	return m.record("confirm", recipient, link)
}

func (m *fakeMailer) SendPasswordReset(ctx context.Context, recipient, username, link string) error {
	return m.record("reset", recipient, link)
}

func (m *fakeMailer) SendEmailChangeConfirmation(ctx context.Context, recipient, username, link string) error {
	return m.record("change-email", recipient, link)
}

func (m *fakeMailer) record(kind, recipient, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, recipient: recipient, link: link})
	return nil
}

func (m *fakeMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sent) == 0 {
		return ""
	}
	link := m.sent[len(m.sent)-1].link
	idx := strings.Index(link, "?")
	if idx < 0 {
		return ""
	}
	values, err := url.ParseQuery(link[idx+1:])
	if err != nil {
		return ""
	}
	return values.Get("token")
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
