// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/meetmesh/composite/internal/auth"
	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubEnricher struct {
	event        *models.EnrichedEvent
	availability *models.EnrichedAvailability
	err          error
}

func (s *stubEnricher) EnrichEvent(_ context.Context, _ int64, _ string) (*models.EnrichedEvent, error) {
	return s.event, s.err
}

func (s *stubEnricher) EnrichAvailability(_ context.Context, _ int64, _ string) (*models.EnrichedAvailability, error) {
	return s.availability, s.err
}

type stubCreator struct {
	calls    int
	gotBody  []byte
	gotToken string
	respBody []byte
	status   int
	err      error
}

func (s *stubCreator) CreateEvent(_ context.Context, body []byte, token string) ([]byte, int, error) {
	s.calls++
	s.gotBody = body
	s.gotToken = token
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.respBody, s.status, nil
}

type stubNotifier struct {
	calls   int
	gotBody []byte
}

func (s *stubNotifier) EventCreated(_ context.Context, createdBody []byte, _ string) {
	s.calls++
	s.gotBody = createdBody
}

// selfResolver satisfies the authenticator's identity lookup.
type selfResolver struct {
	user *models.UserDetail
	err  error
}

func (s *selfResolver) Self(_ context.Context, _ string) (*models.UserDetail, error) {
	return s.user, s.err
}

func testRouterConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.JWTSecret = testSecret
	cfg.Server.PublicBaseURL = "https://composite.example.com"
	return cfg
}

func newTestRouter(t *testing.T, e *stubEnricher, c *stubCreator, n *stubNotifier) http.Handler {
	t.Helper()
	authn, err := auth.NewAuthenticator(&config.SecurityConfig{JWTSecret: testSecret},
		&selfResolver{user: &models.UserDetail{ID: 7, Username: "ada"}})
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	var nf notifier
	if n != nil {
		nf = n
	}
	return NewRouter(testRouterConfig(), authn, NewHandler(e, c, nf), nil)
}

func bearer(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return "Bearer " + signed
}

func TestGetEventReturnsEnrichedBody(t *testing.T) {
	t.Parallel()

	e := &stubEnricher{event: &models.EnrichedEvent{
		ID:    42,
		Title: "Sprint planning",
		Organizer: &models.UserDetail{
			ID: 7, Username: "ada", Email: "ada@example.com",
		},
		Participants: []models.UserDetail{{ID: 9, Username: "grace", Email: "grace@example.com"}},
	}}
	router := newTestRouter(t, e, &stubCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/getevent/42/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got models.EnrichedEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	// Raw entity, no success/data envelope.
	if got.ID != 42 || got.Organizer == nil || got.Organizer.ID != 7 {
		t.Errorf("body = %s", rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte(`"success"`)) {
		t.Error("response must be the bare enriched entity")
	}
}

func TestGetEventIsOpen(t *testing.T) {
	t.Parallel()

	e := &stubEnricher{event: &models.EnrichedEvent{ID: 1, Participants: []models.UserDetail{}}}
	router := newTestRouter(t, e, &stubCreator{}, nil)

	// No Authorization header at all.
	req := httptest.NewRequest(http.MethodGet, "/getevent/1/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for anonymous read", rec.Code)
	}
}

func TestGetEventBadID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &stubEnricher{}, &stubCreator{}, nil)

	for _, path := range []string{"/getevent/abc/", "/getevent/-3/", "/getevent/0/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, rec.Code)
		}
	}
}

func TestGetEventFetchFailureIs500(t *testing.T) {
	t.Parallel()

	e := &stubEnricher{err: context.DeadlineExceeded}
	router := newTestRouter(t, e, &stubCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/getevent/42/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body not valid JSON: %v", err)
	}
	if body["detail"] == "" {
		t.Error("error body missing detail field")
	}
}

func TestGetAvailability(t *testing.T) {
	t.Parallel()

	e := &stubEnricher{availability: &models.EnrichedAvailability{
		ID:       3,
		EventID:  42,
		EventURL: "https://composite.example.com/getevent/42/",
	}}
	router := newTestRouter(t, e, &stubCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/getavailability/3/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got models.EnrichedAvailability
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("body not valid JSON: %v", err)
	}
	if got.EventURL != "https://composite.example.com/getevent/42/" {
		t.Errorf("event_url = %q", got.EventURL)
	}
}

func TestPostEventRejectsAnonymousBeforeForwarding(t *testing.T) {
	t.Parallel()

	creator := &stubCreator{}
	router := newTestRouter(t, &stubEnricher{}, creator, nil)

	req := httptest.NewRequest(http.MethodPost, "/postevent/",
		bytes.NewReader([]byte(`{"title":"Standup"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if creator.calls != 0 {
		t.Errorf("scheduling service called %d times before auth, want 0", creator.calls)
	}
}

func TestPostEventRelaysUpstreamVerbatim(t *testing.T) {
	t.Parallel()

	created := []byte(`{"id":10,"title":"Standup","participant_ids":[9,11]}`)
	creator := &stubCreator{respBody: created, status: http.StatusCreated}
	notif := &stubNotifier{}
	router := newTestRouter(t, &stubEnricher{}, creator, notif)

	reqBody := []byte(`{"title":"Standup","participant_ids":[9,11]}`)
	req := httptest.NewRequest(http.MethodPost, "/postevent/", bytes.NewReader(reqBody))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want upstream 201 relayed: %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), created) {
		t.Errorf("body = %s, want upstream body byte-for-byte", rec.Body.String())
	}
	if !bytes.Equal(creator.gotBody, reqBody) {
		t.Errorf("forwarded body = %s, want the client body untouched", creator.gotBody)
	}
	if creator.gotToken == "" {
		t.Error("bearer token not forwarded to the scheduling service")
	}
	if notif.calls != 1 {
		t.Errorf("notifier calls = %d, want 1", notif.calls)
	}
	if !bytes.Equal(notif.gotBody, created) {
		t.Errorf("notifier got %s, want the upstream creation body", notif.gotBody)
	}
}

func TestPostEventUpstreamRejectionRelayedWithoutNotification(t *testing.T) {
	t.Parallel()

	creator := &stubCreator{respBody: []byte(`{"datetime":["invalid format"]}`), status: http.StatusBadRequest}
	notif := &stubNotifier{}
	router := newTestRouter(t, &stubEnricher{}, creator, notif)

	req := httptest.NewRequest(http.MethodPost, "/postevent/",
		bytes.NewReader([]byte(`{"title":"Standup","datetime":"tomorrow-ish"}`)))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want upstream 400 relayed", rec.Code)
	}
	if rec.Body.String() != `{"datetime":["invalid format"]}` {
		t.Errorf("body = %s, want upstream rejection verbatim", rec.Body.String())
	}
	if notif.calls != 0 {
		t.Errorf("notifier calls = %d on failed creation, want 0", notif.calls)
	}
}

func TestPostEventValidationRejectsBeforeForwarding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json"},
		{name: "missing title", body: `{"participant_ids":[9]}`},
		{name: "negative participant", body: `{"title":"x","participant_ids":[-1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			creator := &stubCreator{}
			router := newTestRouter(t, &stubEnricher{}, creator, nil)

			req := httptest.NewRequest(http.MethodPost, "/postevent/", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Authorization", bearer(t))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if creator.calls != 0 {
				t.Errorf("invalid body forwarded upstream")
			}
		})
	}
}

func TestPostEventTransportFailureIs500(t *testing.T) {
	t.Parallel()

	creator := &stubCreator{err: context.DeadlineExceeded}
	router := newTestRouter(t, &stubEnricher{}, creator, nil)

	req := httptest.NewRequest(http.MethodPost, "/postevent/",
		bytes.NewReader([]byte(`{"title":"Standup"}`)))
	req.Header.Set("Authorization", bearer(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body not valid JSON: %v", err)
	}
	if body["detail"] == "" {
		t.Error("error body missing detail field")
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, &stubEnricher{}, &stubCreator{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
