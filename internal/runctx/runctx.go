// Package runctx carries the immutable run context of spec §3 through
// every pipeline stage: a unique run identifier, the primary source's
// release version captured once at start, a content hash of the resolved
// configuration, a process identity fingerprint, the primary source's base
// URL, and a UTC start instant.
package runctx

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrReleaseChanged is returned by Context.ObserveRelease when a subsequent
// probe of the primary source reports a release version different from the
// one captured at run start (spec §3 "once set, the release version must
// not change mid-run; any subsequent probe that reports a different
// release is a hard failure").
var ErrReleaseChanged = errors.New("runctx: release version changed mid-run")

// Context is the immutable record threaded through Extract, Normalize,
// Validate, and Load. Every field except Release is fixed at construction;
// Release is captured exactly once via ObserveRelease and then locked.
type Context struct {
	RunID string

	// ConfigHash is a content hash of the fully resolved configuration
	// (after defaults, profile, env, and --set overrides have been merged).
	ConfigHash string

	// ProcessFingerprint identifies this binary build: its version plus a
	// hash of its dependency manifest (spec §3 "process identity
	// fingerprint").
	ProcessFingerprint string

	PrimarySourceBaseURL string

	StartedAt time.Time

	release    string
	releaseSet bool
}

// New builds a Context for one run. runID, when empty, is generated as a
// UUID; ConfigHash/ProcessFingerprint/PrimarySourceBaseURL are supplied by
// the caller (internal/config and internal/pipeline assemble them).
func New(runID, configHash, processFingerprint, primarySourceBaseURL string, startedAt time.Time) *Context {
	if runID == "" {
		runID = uuid.New().String()
	}

	return &Context{
		RunID:                runID,
		ConfigHash:           configHash,
		ProcessFingerprint:   processFingerprint,
		PrimarySourceBaseURL: primarySourceBaseURL,
		StartedAt:            startedAt.UTC(),
	}
}

// Release returns the release version captured at run start, or "" if no
// probe has observed one yet.
func (c *Context) Release() string {
	return c.release
}

// ObserveRelease records release the first time it is called, and on every
// subsequent call verifies the observed release still matches — returning
// ErrReleaseChanged the moment it doesn't (spec §3's release-pinning
// invariant). Callers are expected to treat this as a hard, run-aborting
// failure.
func (c *Context) ObserveRelease(release string) error {
	if !c.releaseSet {
		c.release = release
		c.releaseSet = true

		return nil
	}

	if c.release != release {
		return fmt.Errorf("%w: captured %q, observed %q", ErrReleaseChanged, c.release, release)
	}

	return nil
}

// Fingerprint builds the process identity fingerprint spec §3 describes: the
// binary's version string plus a content hash of its dependency manifest
// (a go.sum or equivalent digest, computed by the caller and passed in as
// depManifestHash — runctx has no build-time access to module metadata).
func Fingerprint(version, depManifestHash string) string {
	return fmt.Sprintf("%s+%s", version, depManifestHash)
}
