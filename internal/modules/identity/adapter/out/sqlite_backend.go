package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/credential"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/id"
	"readjourney/internal/platform/sqlitedb"
	"readjourney/internal/platform/token"
)

// SQLiteBackend is the local record store's user table. It issues the same
// kind of bearer token the remote API does.
type SQLiteBackend struct {
	db     *sqlitedb.DB
	issuer *token.Issuer
	auth   *sqlitedb.Authenticator
	creds  credential.Source
	clock  clock.Clock
	idGen  id.Generator
	cost   int
}

var _ identityout.Backend = (*SQLiteBackend)(nil)

func NewSQLiteBackend(db *sqlitedb.DB, issuer *token.Issuer, auth *sqlitedb.Authenticator, creds credential.Source, clock clock.Clock, idGen id.Generator) *SQLiteBackend {
	return &SQLiteBackend{db: db, issuer: issuer, auth: auth, creds: creds, clock: clock, idGen: idGen, cost: bcrypt.DefaultCost}
}

func (b *SQLiteBackend) Register(ctx context.Context, creds identityout.Credentials) (identityout.BackendSession, error) {
	const op = "register"
	email := normalizeEmail(creds.Email)
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), b.cost)
	if err != nil {
		return identityout.BackendSession{}, fmt.Errorf("%s: hash password: %w", op, err)
	}
	user := domain.RemoteUser{ID: b.idGen.New(), DisplayName: strings.TrimSpace(creds.Name), Email: email}
	err = b.db.Within(ctx, func(ctx context.Context) error {
		var exists int
		err := b.db.Conn(ctx).QueryRowContext(ctx, `SELECT 1 FROM users WHERE email = ?`, email).Scan(&exists)
		if err == nil {
			return apperrors.Conflict(op, "an account with this email already exists")
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: lookup email: %w", op, err)
		}
		_, err = b.db.Conn(ctx).ExecContext(ctx,
			`INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
			user.ID, user.DisplayName, user.Email, string(hash), b.clock.Now().Format(sqlitedb.TimeLayout),
		)
		if err != nil {
			return fmt.Errorf("%s: insert user: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return identityout.BackendSession{}, err
	}
	return b.session(user)
}

func (b *SQLiteBackend) Login(ctx context.Context, email, password string) (identityout.BackendSession, error) {
	const op = "login"
	var (
		user domain.RemoteUser
		hash string
	)
	err := b.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, email, password_hash FROM users WHERE email = ?`, normalizeEmail(email),
	).Scan(&user.ID, &user.DisplayName, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return identityout.BackendSession{}, apperrors.Auth(op, "invalid email or password", nil)
	}
	if err != nil {
		return identityout.BackendSession{}, fmt.Errorf("%s: lookup user: %w", op, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return identityout.BackendSession{}, apperrors.Auth(op, "invalid email or password", nil)
	}
	return b.session(user)
}

// Logout revokes the current bearer token. Logging out twice is harmless.
func (b *SQLiteBackend) Logout(ctx context.Context) error {
	raw := b.creds.BearerToken()
	if raw == "" {
		return nil
	}
	_, err := b.db.Conn(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (token, revoked_at) VALUES (?, ?)`,
		raw, b.clock.Now().Format(sqlitedb.TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("logout: revoke token: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Current(ctx context.Context) (domain.RemoteUser, error) {
	const op = "current user"
	userID, err := b.auth.UserID(ctx, op)
	if err != nil {
		return domain.RemoteUser{}, err
	}
	user := domain.RemoteUser{ID: userID}
	err = b.db.Conn(ctx).QueryRowContext(ctx, `SELECT name, email FROM users WHERE id = ?`, userID).Scan(&user.DisplayName, &user.Email)
	if err != nil {
		return domain.RemoteUser{}, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (b *SQLiteBackend) session(user domain.RemoteUser) (identityout.BackendSession, error) {
	signed, err := b.issuer.Issue(user.ID, user.Email, user.DisplayName)
	if err != nil {
		return identityout.BackendSession{}, err
	}
	return identityout.BackendSession{User: user, Token: signed}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
