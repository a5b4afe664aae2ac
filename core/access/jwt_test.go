package access

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/restkit/core/logger"
)

const subject = "b3f2c1d0-5e4f-4a3b-8c2d-1e0f9a8b7c6d"

func newRouter(issuer *TokenIssuer) *mux.Router {
	router := mux.NewRouter()
	router.Use(NewJwtMiddleware(issuer))
	router.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		w.Write([]byte(identity.Subject + " " + logger.FromContext(r.Context()).Data["identity"].(string)))
	})
	return router
}

func TestTokenIssuer(t *testing.T) {
	issuer := &TokenIssuer{Secret: []byte("secret"), Issuer: "restkit", TTL: time.Minute}
	token, err := issuer.Issue(subject, map[string]interface{}{"user": map[string]interface{}{"email": "jane@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := issuer.Parse(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, "jane@example.com", claims.Data["user"].(map[string]interface{})["email"])

	refreshed, err := issuer.Refresh(token.AccessToken)
	require.NoError(t, err)
	claims, err = issuer.Parse(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)

	other := &TokenIssuer{Secret: []byte("other"), Issuer: "restkit"}
	_, err = other.Parse(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	foreign := &TokenIssuer{Secret: []byte("secret"), Issuer: "someone"}
	_, err = foreign.Parse(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = (&TokenIssuer{}).Issue(subject, nil)
	assert.Error(t, err)
}

func TestTokenIssuer_RejectsExpiredAndUnsigned(t *testing.T) {
	issuer := &TokenIssuer{Secret: []byte("secret")}
	past := time.Now().Add(-time.Hour)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(past),
	}}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: subject,
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJwtMiddleware(t *testing.T) {
	issuer := &TokenIssuer{Secret: []byte("secret")}
	router := newRouter(issuer)
	token, err := issuer.Issue(subject, nil)
	require.NoError(t, err)

	tests := map[string]struct {
		prepare func(r *http.Request)
		status  int
	}{
		"no token":     {func(r *http.Request) {}, http.StatusUnauthorized},
		"bearer":       {func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token.AccessToken) }, http.StatusOK},
		"cookie":       {func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token.AccessToken}) }, http.StatusOK},
		"garbage":      {func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }, http.StatusUnauthorized},
		"basic scheme": {func(r *http.Request) { r.Header.Set("Authorization", "Basic "+token.AccessToken) }, http.StatusUnauthorized},
	}
	for name, test := range tests {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		test.prepare(r)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		assert.Equal(t, test.status, w.Code, name)
		if test.status == http.StatusOK {
			assert.Equal(t, subject+" "+subject, w.Body.String(), name)
		}
	}
}
