package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

func TestCorrelationID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	h := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get(HeaderCorrelationID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "cid-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "cid-1", seen)
}

func TestSession_IssuesCookieOnce(t *testing.T) {
	var sid string
	h := Session(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = session.IDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, SessionCookie, cookies[0].Name)
	require.Equal(t, sid, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	first := sid
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, first, sid)
	require.Empty(t, rr.Result().Cookies())
}

func TestSession_RejectsMalformedCookie(t *testing.T) {
	var sid string
	h := Session(time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sid = session.IDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "not-a-uuid"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.NotEqual(t, "not-a-uuid", sid)
	require.Len(t, rr.Result().Cookies(), 1)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://shop.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "http://shop.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "http://shop.test", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardOmitsCredentials(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "http://evil.test", rr.Header().Get("Access-Control-Allow-Origin"))
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := CorrelationID(Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, "internal server error", body.Error)
	require.NotEmpty(t, body.CorrelationID)
	require.Contains(t, logs.String(), "panic=boom")
}
