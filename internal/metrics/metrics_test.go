// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/getevent/{id}/", "200"))

	RecordHTTPRequest("GET", "/getevent/{id}/", "200", 25*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/getevent/{id}/", "200"))
	if after != before+1 {
		t.Errorf("HTTPRequestsTotal = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before+1 {
		t.Errorf("active requests after start = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before {
		t.Errorf("active requests after finish = %v, want %v", got, before)
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues("identity", "success"))

	RecordUpstreamRequest("identity", "success", 5*time.Millisecond)

	after := testutil.ToFloat64(UpstreamRequests.WithLabelValues("identity", "success"))
	if after != before+1 {
		t.Errorf("UpstreamRequests = %v, want %v", after, before+1)
	}
}
