package authenticate

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgmon/entity"
	"tgmon/lib/api/cont"
)

type fakeAuth struct {
	user *entity.User
}

func (f *fakeAuth) AuthenticateByToken(token string) (*entity.User, error) {
	if f.user == nil || token != "good-token" {
		return nil, entity.ErrUnauthenticated
	}
	return f.user, nil
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func echoUser(t *testing.T, hits *int) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		assert.NotEmpty(t, cont.GetUser(r.Context()).Id)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateHeader(t *testing.T) {
	auth := &fakeAuth{user: &entity.User{Id: "u1", TenantId: "t1", Username: "alice", Role: entity.RoleViewer, IsActive: true}}
	hits := 0
	handler := New(discard(), auth)(echoUser(t, &hits))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"scheme only, no token", "Bearer", http.StatusUnauthorized},
		{"scheme with trailing space only", "Bearer ", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized},
		{"valid token", "Bearer good-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			require.NotPanics(t, func() { handler.ServeHTTP(rec, req) })
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, 1, hits)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("Bearer "))
	assert.Equal(t, "", bearerToken("Token abc"))
	assert.Equal(t, "", bearerToken(""))
}

func roleRequest(user *entity.User) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/groups", nil)
	return req.WithContext(cont.PutUser(req.Context(), user))
}

func TestMutatorGate(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := Mutator(discard())(next)

	for role, status := range map[entity.Role]int{
		entity.RoleOwner:  http.StatusOK,
		entity.RoleAdmin:  http.StatusOK,
		entity.RoleViewer: http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, roleRequest(&entity.User{Id: "u1", Role: role}))
		assert.Equal(t, status, rec.Code, role)
	}
}

func TestOwnerGate(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := Owner(discard())(next)

	for role, status := range map[entity.Role]int{
		entity.RoleOwner:  http.StatusOK,
		entity.RoleAdmin:  http.StatusForbidden,
		entity.RoleViewer: http.StatusForbidden,
	} {
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, roleRequest(&entity.User{Id: "u1", Role: role}))
		assert.Equal(t, status, rec.Code, role)
	}
}
