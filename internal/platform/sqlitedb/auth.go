package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"readjourney/internal/platform/credential"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/token"
)

// Authenticator resolves the bearer token of the current identity to a local
// user id, the way the remote backend authorizes every record-store call.
type Authenticator struct {
	db     *DB
	issuer *token.Issuer
	creds  credential.Store
}

func NewAuthenticator(db *DB, issuer *token.Issuer, creds credential.Store) *Authenticator {
	return &Authenticator{db: db, issuer: issuer, creds: creds}
}

func (a *Authenticator) UserID(ctx context.Context, op string) (string, error) {
	raw := ""
	if a.creds != nil {
		raw = a.creds.BearerToken()
	}
	if raw == "" {
		return "", apperrors.Unauthorized(op, errors.New("missing bearer token"))
	}
	subject, err := a.issuer.Verify(raw)
	if err != nil {
		return "", credential.Guard(ctx, a.creds, apperrors.Unauthorized(op, err))
	}
	revoked, err := a.db.Revoked(ctx, raw)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", credential.Guard(ctx, a.creds, apperrors.Unauthorized(op, errors.New("token revoked")))
	}
	var exists int
	err = a.db.Conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, subject.UserID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", credential.Guard(ctx, a.creds, apperrors.Unauthorized(op, errors.New("unknown user")))
	}
	if err != nil {
		return "", fmt.Errorf("lookup token user: %w", err)
	}
	return subject.UserID, nil
}

func (d *DB) Revoked(ctx context.Context, raw string) (bool, error) {
	var exists int
	err := d.Conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM revoked_tokens WHERE token = ?`, raw).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}
