// Package ingest fetches raw workout and biometric samples from platform
// health stores, normalizes vendor-specific shapes into canonical records,
// and tracks per-stream anchors for incremental sync.
//
// Vendor-shaped records never leave this package: every adapter defines a
// tagged record type for its platform and an explicit mapping into
// domain.CanonicalWorkout.
package ingest

import (
	"context"

	"example.com/swimmatch/internal/domain"
)

// Platform identifies a health data source.
const (
	PlatformHealthKit = "healthkit"
	PlatformGoogleFit = "googlefit"
)

// AnchorStore persists the opaque per-stream cursors between fetches.
// Implemented by the Postgres repository.
type AnchorStore interface {
	LoadAnchors(ctx context.Context, userID, platform string) (domain.Anchors, error)
	SaveAnchors(ctx context.Context, userID, platform string, anchors domain.Anchors) error
}

// Adapter is the common surface of the platform adapters. Fetch returns only
// samples not returned by a previous call (at-least-once; the matcher
// tolerates duplicate ids via the offered registry) and never panics on
// store failure: a failed stream is logged and comes back empty.
type Adapter interface {
	Platform() string
	Fetch(ctx context.Context, userID string) (domain.IngestionResult, error)
}
