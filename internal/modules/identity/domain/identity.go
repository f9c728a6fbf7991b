package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

type State string

const (
	StateUnauthenticated     State = "unauthenticated"
	StateAuthenticatedCached State = "authenticated_cached"
	StateAuthenticatedFresh  State = "authenticated_fresh"
	StateReconciling         State = "reconciling"
)

type TokenSource string

const (
	// TokenSourceBackend marks a token issued by the record store on sign-in.
	TokenSourceBackend TokenSource = "backend"
	// TokenSourceProvider marks the provider's own token, used only until the next sign-in.
	TokenSourceProvider TokenSource = "provider"
)

type RemoteUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SameDisplay reports whether the user-visible fields match.
func (u RemoteUser) SameDisplay(other RemoteUser) bool {
	return u.DisplayName == other.DisplayName && u.Email == other.Email
}

// Record is the process-wide identity. Version increases on every change.
type Record struct {
	Version     uint64
	User        *RemoteUser
	Token       string
	TokenSource TokenSource
	State       State
}

func (r Record) Authenticated() bool {
	return r.User != nil && r.Token != ""
}

// Empty reports whether there is nothing to clear.
func (r Record) Empty() bool {
	return r.User == nil && r.Token == ""
}

// Clone returns a copy that shares no memory with r.
func (r Record) Clone() Record {
	if r.User != nil {
		u := *r.User
		r.User = &u
	}
	return r
}

// Snapshot is the persisted part of a record: one user and one token.
type Snapshot struct {
	User        *RemoteUser `json:"user"`
	Token       string      `json:"token"`
	TokenSource TokenSource `json:"token_source"`
}

func (r Record) Snapshot() Snapshot {
	c := r.Clone()
	return Snapshot{User: c.User, Token: c.Token, TokenSource: c.TokenSource}
}

// Fingerprint hashes the canonical JSON (RFC 8785) of s, so equal snapshots
// always produce equal fingerprints.
func Fingerprint(s Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode identity snapshot: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize identity snapshot: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// ProviderEvent is one observation of the identity provider. A nil User means
// the provider reports no signed-in user.
type ProviderEvent struct {
	User    *RemoteUser
	IDToken string
}
