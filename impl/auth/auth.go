package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"tgmon/entity"
)

// Login payloads older than this are rejected outright.
const maxAuthAge = 24 * time.Hour

// Database defines the storage operations the auth service depends on.
// Implemented by internal/database.
type Database interface {
	CreateOrganization(org *entity.Organization, owner *entity.User) error
	GetUserByTelegramId(telegramId int64) (*entity.User, error)
	GetUserById(tenantId, id string) (*entity.User, error)
	TouchUserLogin(telegramId int64, photoUrl string, at time.Time) error
}

type Auth struct {
	db         Database
	secretKey  [32]byte // sha256 of the bot token, per the Telegram login contract
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func New(db Database, botToken, signingKey string, tokenTTL time.Duration) *Auth {
	return &Auth{
		db:         db,
		secretKey:  sha256.Sum256([]byte(botToken)),
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}
}

// VerifyLogin checks the widget payload: the supplied hash must equal the
// HMAC-SHA256 of the sorted k=v data-check string keyed with sha256(bot
// token), and auth_date must be within 24 hours.
func (a *Auth) VerifyLogin(login *entity.TelegramLogin) error {
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
	check := strings.Join(pairs, "\n")

	mac := hmac.New(sha256.New, a.secretKey[:])
	mac.Write([]byte(check))
	digest := hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(digest), []byte(strings.ToLower(login.Hash))) != 1 {
		return fmt.Errorf("hash mismatch: %w", entity.ErrUnauthenticated)
	}
	if a.now().Sub(time.Unix(login.AuthDate, 0)) > maxAuthAge {
		return fmt.Errorf("auth_date expired: %w", entity.ErrUnauthenticated)
	}
	return nil
}

// Register verifies the login payload and atomically creates the
// organization with its owner user. Idempotent by telegram id: a repeat
// registration fails with ErrConflict.
func (a *Auth) Register(req *entity.RegisterRequest) (*entity.AuthToken, error) {
	if err := a.VerifyLogin(&req.TelegramLogin); err != nil {
		return nil, err
	}

	now := a.now().UTC()
	org := &entity.Organization{
		Id:        uuid.New().String(),
		Name:      req.OrganizationName,
		Plan:      entity.PlanFree,
		CreatedAt: now,
	}
	owner := &entity.User{
		Id:         uuid.New().String(),
		TenantId:   org.Id,
		TelegramId: req.Id,
		Username:   req.Username,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		PhotoUrl:   req.PhotoUrl,
		Role:       entity.RoleOwner,
		IsActive:   true,
		CreatedAt:  now,
		LastLogin:  &now,
	}
	if err := a.db.CreateOrganization(org, owner); err != nil {
		return nil, err
	}
	return a.issueToken(owner)
}

// Login verifies the payload and resolves it to an existing user.
func (a *Auth) Login(login *entity.TelegramLogin) (*entity.AuthToken, error) {
	if err := a.VerifyLogin(login); err != nil {
		return nil, err
	}
	user, err := a.db.GetUserByTelegramId(login.Id)
	if err != nil {
		return nil, fmt.Errorf("unknown telegram id: %w", entity.ErrUnauthenticated)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user deactivated: %w", entity.ErrUnauthenticated)
	}

	now := a.now().UTC()
	if err = a.db.TouchUserLogin(user.TelegramId, login.PhotoUrl, now); err != nil {
		return nil, err
	}
	user.PhotoUrl = login.PhotoUrl
	user.LastLogin = &now

	return a.issueToken(user)
}

type claims struct {
	TenantId string      `json:"tenant_id"`
	Role     entity.Role `json:"role"`
	jwt.RegisteredClaims
}

func (a *Auth) issueToken(user *entity.User) (*entity.AuthToken, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TenantId: user.TenantId,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	})
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &entity.AuthToken{Token: signed, User: user}, nil
}

// AuthenticateByToken resolves a bearer token to the current user record.
// The role is always taken from the store, not the token, so a role change
// takes effect before the token expires.
func (a *Auth) AuthenticateByToken(token string) (*entity.User, error) {
	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(a.now))
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token: %w", entity.ErrUnauthenticated)
	}

	user, err := a.db.GetUserById(cl.TenantId, cl.Subject)
	if err != nil {
		return nil, fmt.Errorf("token user: %w", entity.ErrUnauthenticated)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user deactivated: %w", entity.ErrUnauthenticated)
	}
	return user, nil
}
