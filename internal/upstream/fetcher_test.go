// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetmesh/composite/internal/config"
	"github.com/meetmesh/composite/internal/logging"
)

func testFetcher(breaker bool) *Fetcher {
	return NewFetcher(&config.UpstreamConfig{
		Timeout:        2 * time.Second,
		FanoutLimit:    4,
		BreakerEnabled: breaker,
	})
}

func TestDoAttachesHeaders(t *testing.T) {
	var gotAuth, gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCorrelation = r.Header.Get(CorrelationHeader)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := testFetcher(false)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	if _, err := f.Do(ctx, ServiceIdentity, http.MethodGet, server.URL, "tok123", nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q, want Bearer tok123", gotAuth)
	}
	if gotCorrelation != "corr-1" {
		t.Errorf("correlation header = %q, want corr-1", gotCorrelation)
	}
}

func TestDoOmitsAuthorizationWithoutToken(t *testing.T) {
	var sawAuth bool
	var gotCorrelation string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		gotCorrelation = r.Header.Get(CorrelationHeader)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := testFetcher(false)

	if _, err := f.Do(context.Background(), ServiceIdentity, http.MethodGet, server.URL, "", nil); err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if sawAuth {
		t.Error("Authorization header should be absent without a token")
	}
	// No correlation id in context -> sentinel value, never empty.
	if gotCorrelation != logging.UnknownCorrelationID {
		t.Errorf("correlation header = %q, want %q", gotCorrelation, logging.UnknownCorrelationID)
	}
}

func TestDoNon2xxReturnsTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"no such user"}`))
	}))
	defer server.Close()

	f := testFetcher(false)

	_, err := f.Do(context.Background(), ServiceIdentity, http.MethodGet, server.URL, "", nil)
	if err == nil {
		t.Fatal("Do() should fail on 404")
	}

	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", ue.Status)
	}
	if !ue.NotFound() {
		t.Error("NotFound() should be true")
	}
	if ue.Unavailable() {
		t.Error("a 404 is not an availability failure")
	}
}

func TestDoTransportFailure(t *testing.T) {
	f := testFetcher(false)

	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := f.Do(context.Background(), ServiceScheduling, http.MethodGet, url, "", nil)
	if err == nil {
		t.Fatal("Do() should fail when upstream is unreachable")
	}

	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if ue.Status != 0 {
		t.Errorf("Status = %d, want 0 for transport failure", ue.Status)
	}
	if !IsUnavailable(err) {
		t.Error("IsUnavailable() should be true for transport failure")
	}
}

func TestDoMakesExactlyOneAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := testFetcher(false)

	if _, err := f.Do(context.Background(), ServiceScheduling, http.MethodGet, server.URL, "", nil); err == nil {
		t.Fatal("Do() should fail on 500")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly 1 (no retries)", attempts)
	}
}

func TestForwardRelaysNon2xxVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"title":["This field is required."]}`))
	}))
	defer server.Close()

	f := testFetcher(false)

	body, status, err := f.Forward(context.Background(), ServiceScheduling, http.MethodPost, server.URL, "tok", []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if string(body) != `{"title":["This field is required."]}` {
		t.Errorf("body = %s, want upstream body verbatim", body)
	}
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := testFetcher(true)

	// Drive enough 5xx failures to trip the breaker (>=10 requests, >=60%).
	for i := 0; i < 12; i++ {
		_, _ = f.Do(context.Background(), ServiceEmail, http.MethodGet, server.URL, "", nil)
	}

	_, err := f.Do(context.Background(), ServiceEmail, http.MethodGet, server.URL, "", nil)
	if err == nil {
		t.Fatal("Do() should fail once the breaker is open")
	}
	if !IsUnavailable(err) {
		t.Errorf("open-breaker failure should be unavailable, got %v", err)
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := testFetcher(true)

	// 404s must never trip the breaker: a missing record is a normal
	// outcome, not a service health signal.
	for i := 0; i < 20; i++ {
		_, err := f.Do(context.Background(), ServiceIdentity, http.MethodGet, server.URL, "", nil)
		var ue *Error
		if !errors.As(err, &ue) || ue.Status != http.StatusNotFound {
			t.Fatalf("request %d: err = %v, want 404 *Error", i, err)
		}
	}
}

func TestExcerptTruncatesLargeBodies(t *testing.T) {
	t.Parallel()

	big := make([]byte, maxErrorBodySize+100)
	for i := range big {
		big[i] = 'x'
	}

	got := excerpt(big)
	if len(got) > maxErrorBodySize+32 {
		t.Errorf("excerpt length = %d, should be truncated", len(got))
	}
}
