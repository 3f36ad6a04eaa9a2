package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func protected(roles ...models.UserRole) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := GetUserIDFromContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return Authenticate(testSecret)(Authorize(roles...)(final))
}

func doRequest(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	h := protected(models.RoleAdmin, models.RoleCoach)

	valid := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "admin", "exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, http.StatusOK, doRequest(h, valid).Code)

	player := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "player"})
	assert.Equal(t, http.StatusForbidden, doRequest(h, player).Code)

	unknownRole := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "root"})
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, unknownRole).Code)

	expired := signToken(t, testSecret, jwt.MapClaims{"user_id": 7, "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()})
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, expired).Code)

	wrongKey := signToken(t, []byte("other"), jwt.MapClaims{"user_id": 7, "role": "admin"})
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, wrongKey).Code)

	rec := doRequest(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing or malformed authorization header"}`, rec.Body.String())
}

func TestAuthenticateRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1, "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, doRequest(protected(models.RoleAdmin), token).Code)
}

func TestGetUserIDFromContext(t *testing.T) {
	cases := []struct {
		claims jwt.MapClaims
		want   int
		ok     bool
	}{
		{jwt.MapClaims{"user_id": float64(12)}, 12, true},
		{jwt.MapClaims{"user_id": "34"}, 34, true},
		{jwt.MapClaims{"user_id": 1.5}, 0, false},
		{jwt.MapClaims{"user_id": float64(0)}, 0, false},
		{jwt.MapClaims{"user_id": "abc"}, 0, false},
		{jwt.MapClaims{"user_id": true}, 0, false},
		{jwt.MapClaims{}, 0, false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		id, err := GetUserIDFromContext(WithClaims(req.Context(), tc.claims))
		if tc.ok {
			require.NoError(t, err, "%v", tc.claims)
			assert.Equal(t, tc.want, id)
		} else {
			assert.Error(t, err, "%v", tc.claims)
		}
	}

	_, err := GetUserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, ErrNoClaims)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seenID string
	h := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
		LoggerFromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/teams/bracket", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, seenID)
	assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"`+seenID+`"`)
	assert.Contains(t, buf.String(), `"status":201`)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))
}
