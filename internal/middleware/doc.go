// Composite - Aggregation Gateway for MeetMesh Microservices
// Copyright 2026 MeetMesh contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/meetmesh/composite

// Package middleware provides the gateway's HTTP middleware: correlation
// id propagation, Prometheus instrumentation, and per-client rate
// limiting. Authentication middleware lives in internal/auth next to the
// gate it enforces.
package middleware
