package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
)

type fakeDB struct {
	orgs  map[string]*entity.Organization
	users map[int64]*entity.User
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		orgs:  map[string]*entity.Organization{},
		users: map[int64]*entity.User{},
	}
}

func (f *fakeDB) CreateOrganization(org *entity.Organization, owner *entity.User) error {
	if _, exists := f.users[owner.TelegramId]; exists {
		return fmt.Errorf("telegram id taken: %w", entity.ErrConflict)
	}
	f.orgs[org.Id] = org
	f.users[owner.TelegramId] = owner
	return nil
}

func (f *fakeDB) GetUserByTelegramId(telegramId int64) (*entity.User, error) {
	user, ok := f.users[telegramId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return user, nil
}

func (f *fakeDB) GetUserById(tenantId, id string) (*entity.User, error) {
	for _, user := range f.users {
		if user.TenantId == tenantId && user.Id == id {
			return user, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeDB) TouchUserLogin(telegramId int64, photoUrl string, at time.Time) error {
	if user, ok := f.users[telegramId]; ok {
		user.PhotoUrl = photoUrl
		user.LastLogin = &at
	}
	return nil
}

// sign computes the widget hash the way Telegram does.
func sign(a *Auth, login *entity.TelegramLogin) string {
	fields := map[string]string{
		"id":         fmt.Sprintf("%d", login.Id),
		"first_name": login.FirstName,
		"auth_date":  fmt.Sprintf("%d", login.AuthDate),
	}
	if login.LastName != "" {
		fields["last_name"] = login.LastName
	}
	if login.Username != "" {
		fields["username"] = login.Username
	}
	if login.PhotoUrl != "" {
		fields["photo_url"] = login.PhotoUrl
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	mac := hmac.New(sha256.New, a.secretKey[:])
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func testAuth(db Database) *Auth {
	a := New(db, "12345:bot-token", "test-signing-key", 24*time.Hour)
	a.now = func() time.Time { return time.Unix(1700000000, 0) }
	return a
}

func validLogin(a *Auth) *entity.TelegramLogin {
	login := &entity.TelegramLogin{
		Id:        1001,
		FirstName: "Alice",
		Username:  "alice",
		AuthDate:  a.now().Unix() - 60,
	}
	login.Hash = sign(a, login)
	return login
}

func TestVerifyLogin(t *testing.T) {
	a := testAuth(newFakeDB())

	login := validLogin(a)
	assert.NoError(t, a.VerifyLogin(login))

	// deterministic: verifying twice gives the same result
	assert.NoError(t, a.VerifyLogin(login))

	tampered := *login
	tampered.FirstName = "Mallory"
	err := a.VerifyLogin(&tampered)
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)
}

func TestVerifyLoginExpired(t *testing.T) {
	a := testAuth(newFakeDB())

	login := &entity.TelegramLogin{
		Id:        1001,
		FirstName: "Alice",
		AuthDate:  a.now().Add(-25 * time.Hour).Unix(),
	}
	login.Hash = sign(a, login)

	err := a.VerifyLogin(login)
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newFakeDB()
	a := testAuth(db)

	req := &entity.RegisterRequest{
		TelegramLogin:    *validLogin(a),
		OrganizationName: "Acme",
	}
	token, err := a.Register(req)
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
	assert.Equal(t, entity.RoleOwner, token.User.Role)
	assert.NotEmpty(t, token.User.TenantId)

	user, err := a.AuthenticateByToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.User.Id, user.Id)
	assert.Equal(t, token.User.TenantId, user.TenantId)

	// the role comes from the store, not the token
	db.users[1001].Role = entity.RoleViewer
	user, err = a.AuthenticateByToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleViewer, user.Role)
}

func TestRegisterDuplicateTelegramId(t *testing.T) {
	db := newFakeDB()
	a := testAuth(db)

	first := &entity.RegisterRequest{TelegramLogin: *validLogin(a), OrganizationName: "A"}
	_, err := a.Register(first)
	require.NoError(t, err)

	second := &entity.RegisterRequest{TelegramLogin: *validLogin(a), OrganizationName: "B"}
	_, err = a.Register(second)
	assert.ErrorIs(t, err, entity.ErrConflict)
}

func TestLogin(t *testing.T) {
	db := newFakeDB()
	a := testAuth(db)

	_, err := a.Login(validLogin(a))
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)

	_, err = a.Register(&entity.RegisterRequest{TelegramLogin: *validLogin(a), OrganizationName: "Acme"})
	require.NoError(t, err)

	token, err := a.Login(validLogin(a))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), token.User.TelegramId)

	db.users[1001].IsActive = false
	_, err = a.Login(validLogin(a))
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	db := newFakeDB()
	a := testAuth(db)

	token, err := a.Register(&entity.RegisterRequest{TelegramLogin: *validLogin(a), OrganizationName: "Acme"})
	require.NoError(t, err)

	a.now = func() time.Time { return time.Unix(1700000000, 0).Add(25 * time.Hour) }
	_, err = a.AuthenticateByToken(token.Token)
	assert.ErrorIs(t, err, entity.ErrUnauthenticated)
}
