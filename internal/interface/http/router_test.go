package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/stylecast/internal/domain/session"
	"github.com/yanqian/stylecast/internal/domain/stylist"
	"github.com/yanqian/stylecast/internal/infra/config"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

const testToken = "good-token"

func TestRouter_Health(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, &stubSessions{}), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CreateSession(t *testing.T) {
	svc := &stubSessions{}
	rec := performRequest(newRouterUnderTest(t, svc), http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var got session.Created
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, testToken, got.Token)
	require.Equal(t, "s1", got.Session.ID)
	require.Equal(t, session.StateIdle, got.Session.State)
}

func TestRouter_SessionRoutesRequireToken(t *testing.T) {
	server := newRouterUnderTest(t, &stubSessions{})

	rec := performRequest(server, http.MethodGet, "/api/v1/session", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, apperrors.CodeInvalidToken, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodGet, "/api/v1/session", "", "Bearer forged")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SubmitSuccess(t *testing.T) {
	svc := &stubSessions{
		submitFn: func(id string, req session.SubmitRequest) (session.View, error) {
			require.Equal(t, "s1", id)
			require.Equal(t, "London", req.City)
			require.Equal(t, 25, req.Age)
			require.Equal(t, "Male", req.Gender)
			return session.View{ID: id, State: session.StateReady, Recommendation: &stylist.Recommendation{Headline: "Rain Ready"}}, nil
		},
	}
	rec := performRequest(newRouterUnderTest(t, svc), http.MethodPost, "/api/v1/session/submit",
		`{"city":"London","age":25,"gender":"Male"}`, "Bearer "+testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var got session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, session.StateReady, got.State)
	require.Equal(t, "Rain Ready", got.Recommendation.Headline)
}

func TestRouter_SubmitInvalidJSON(t *testing.T) {
	rec := performRequest(newRouterUnderTest(t, &stubSessions{}), http.MethodPost, "/api/v1/session/submit",
		`{"city":"London","age":"old"}`, "Bearer "+testToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, apperrors.CodeInvalidInput, decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_SubmitBodyTooLarge(t *testing.T) {
	big := `{"city":"London","age":25,"gender":"Male","referenceImage":"data:image/png;base64,` +
		string(bytes.Repeat([]byte("A"), 200<<10)) + `"}`
	rec := performRequest(newRouterUnderTest(t, &stubSessions{}), http.MethodPost, "/api/v1/session/submit", big, "Bearer "+testToken)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouter_DomainErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{apperrors.CodeInvalidInput, http.StatusBadRequest},
		{apperrors.CodeLocationNotFound, http.StatusNotFound},
		{apperrors.CodeConflict, http.StatusConflict},
		{apperrors.CodeWeatherUnavailable, http.StatusBadGateway},
		{apperrors.CodeTransportFailure, http.StatusBadGateway},
		{apperrors.CodeGenerationFailed, http.StatusBadGateway},
		{apperrors.CodeConfiguration, http.StatusServiceUnavailable},
		{apperrors.CodeSessionNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		svc := &stubSessions{
			submitFn: func(id string, req session.SubmitRequest) (session.View, error) {
				return session.View{ID: id, State: session.StateError}, apperrors.Wrap(tc.code, "Could not find location: Nowhere12345", nil)
			},
		}
		rec := performRequest(newRouterUnderTest(t, svc), http.MethodPost, "/api/v1/session/submit",
			`{"city":"Nowhere12345","age":30,"gender":"Female"}`, "Bearer "+testToken)
		require.Equal(t, tc.status, rec.Code, tc.code)
		body := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, tc.code, body["error"]["code"])
		require.Equal(t, "Could not find location: Nowhere12345", body["error"]["message"])
	}
}

func TestRouter_VisualizationFailure(t *testing.T) {
	svc := &stubSessions{
		visualizeFn: func(id string) (session.View, error) {
			return session.View{}, apperrors.Wrap(apperrors.CodeVisualizationFailed, stylist.ReasonNoImageParts, nil)
		},
	}
	rec := performRequest(newRouterUnderTest(t, svc), http.MethodPost, "/api/v1/session/visualization", "", "Bearer "+testToken)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, stylist.ReasonNoImageParts, decodeErrorBody(t, rec.Body.Bytes())["error"]["message"])
}

func TestRouter_Image(t *testing.T) {
	svc := &stubSessions{image: stylist.Image{Data: []byte("png"), MimeType: "image/png"}}
	rec := performRequest(newRouterUnderTest(t, svc), http.MethodGet, "/api/v1/session/visualization/image", "", "Bearer "+testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	require.Equal(t, "png", rec.Body.String())
}

func TestRouter_ResetAndDismiss(t *testing.T) {
	svc := &stubSessions{}
	server := newRouterUnderTest(t, svc)

	rec := performRequest(server, http.MethodDelete, "/api/v1/session", "", "Bearer "+testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.resets)

	rec = performRequest(server, http.MethodPost, "/api/v1/session/dismiss", "", "Bearer "+testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, svc.dismissals)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(&stubSessions{}, newTestLogger()))

	rec := performRequest(server, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = performRequest(server, http.MethodPost, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRouter_GenerationLimitSharedAcrossRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, Burst: 100, GenerationPerMinute: 1}
	server := NewRouter(cfg, NewHandler(&stubSessions{}, newTestLogger()))
	auth := "Bearer " + testToken

	rec := performRequest(server, http.MethodPost, "/api/v1/session/visualization", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = performRequest(server, http.MethodPost, "/api/v1/session/submit", `{"city":"London","age":25,"gender":"Male"}`, auth)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	rec = performRequest(server, http.MethodGet, "/api/v1/session", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.AllowedOrigins = []string{"https://stylecast.example"}
	server := NewRouter(cfg, NewHandler(&stubSessions{}, newTestLogger()))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://stylecast.example")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://stylecast.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	require.Equal(t, "Origin", rec.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func performRequest(server *http.Server, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Session: config.SessionConfig{MaxImageBytes: 64 << 10},
	}
}

func newRouterUnderTest(t *testing.T, svc session.Service) *http.Server {
	t.Helper()
	return NewRouter(testConfig(), NewHandler(svc, newTestLogger()))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type stubSessions struct {
	submitFn    func(id string, req session.SubmitRequest) (session.View, error)
	visualizeFn func(id string) (session.View, error)
	image       stylist.Image
	resets      int
	dismissals  int
}

func (s *stubSessions) Create(context.Context) (session.Created, error) {
	return session.Created{Token: testToken, Session: session.View{ID: "s1", State: session.StateIdle}}, nil
}

func (s *stubSessions) Authenticate(token string) (string, error) {
	if token != testToken {
		return "", apperrors.Wrap(apperrors.CodeInvalidToken, "session token validation failed", nil)
	}
	return "s1", nil
}

func (s *stubSessions) Get(_ context.Context, id string) (session.View, error) {
	return session.View{ID: id, State: session.StateIdle}, nil
}

func (s *stubSessions) Submit(_ context.Context, id string, req session.SubmitRequest) (session.View, error) {
	if s.submitFn != nil {
		return s.submitFn(id, req)
	}
	return session.View{ID: id, State: session.StateReady}, nil
}

func (s *stubSessions) Dismiss(_ context.Context, id string) (session.View, error) {
	s.dismissals++
	return session.View{ID: id, State: session.StateCollectingInput}, nil
}

func (s *stubSessions) Reset(_ context.Context, id string) (session.View, error) {
	s.resets++
	return session.View{ID: id, State: session.StateIdle}, nil
}

func (s *stubSessions) Visualize(_ context.Context, id string) (session.View, error) {
	if s.visualizeFn != nil {
		return s.visualizeFn(id)
	}
	return session.View{ID: id, State: session.StateReady}, nil
}

func (s *stubSessions) Image(context.Context, string) (stylist.Image, error) {
	return s.image, nil
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
