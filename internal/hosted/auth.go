package hosted

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const pgUniqueViolation = "23505"

var (
	errEmailTaken = errors.New("email already registered")
	errNoSession  = errors.New("no session in context")
)

func (b *Backend) SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	email := strings.TrimSpace(data.Email)
	if email == "" || data.Password == "" {
		return nil, shop.NewValidationError("credentials", errors.New("email and password are required"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.Password), b.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	sid := session.IDFromContext(ctx)
	if sid == "" {
		return nil, errNoSession
	}

	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u := &shop.AuthUser{ID: b.newID(), Email: email, FirstName: data.FirstName, LastName: data.LastName}
	_, err = tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, string(hash), nullable(u.FirstName), nullable(u.LastName), b.now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, shop.NewAuthError(errEmailTaken)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	tok, err := b.insertSession(ctx, tx, u.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit signup: %w", err)
	}
	if err := b.tokens.Set(ctx, sid, session.ProviderHosted, tok); err != nil {
		return nil, err
	}
	return u, nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error) {
	var (
		u    shop.AuthUser
		hash string
	)
	err := b.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(first_name, ''), COALESCE(last_name, '')
		FROM users WHERE lower(email) = lower($1)`, strings.TrimSpace(email),
	).Scan(&u.ID, &u.Email, &hash, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shop.NewAuthError(shop.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, shop.NewAuthError(shop.ErrInvalidCredentials)
	}

	if err := b.startSession(ctx, u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the hosted session of the current session, if any.
func (b *Backend) SignOut(ctx context.Context) error {
	sid := session.IDFromContext(ctx)
	tok, err := b.tokens.Get(ctx, sid, session.ProviderHosted)
	if errors.Is(err, session.ErrNoToken) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := b.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE token = $1`, tok); err != nil {
		return fmt.Errorf("delete auth_session: %w", err)
	}
	return b.tokens.Delete(ctx, sid, session.ProviderHosted)
}

// CurrentUser returns nil without error when the session has no valid hosted login.
func (b *Backend) CurrentUser(ctx context.Context) (*shop.AuthUser, error) {
	sid := session.IDFromContext(ctx)
	tok, err := b.tokens.Get(ctx, sid, session.ProviderHosted)
	if errors.Is(err, session.ErrNoToken) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var u shop.AuthUser
	err = b.pool.QueryRow(ctx, `
		SELECT u.id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, '')
		FROM auth_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2`, tok, b.now().UTC(),
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		_ = b.tokens.Delete(ctx, sid, session.ProviderHosted)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session user: %w", err)
	}
	return &u, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (b *Backend) startSession(ctx context.Context, userID string) error {
	sid := session.IDFromContext(ctx)
	if sid == "" {
		return errNoSession
	}
	tok, err := b.insertSession(ctx, b.pool, userID)
	if err != nil {
		return err
	}
	return b.tokens.Set(ctx, sid, session.ProviderHosted, tok)
}

// insertSession records a new auth session row and returns its token.
func (b *Backend) insertSession(ctx context.Context, db execer, userID string) (string, error) {
	tok, err := b.newToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO auth_sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)`, tok, userID, b.now().UTC().Add(b.sessionTTL))
	if err != nil {
		return "", fmt.Errorf("insert auth_session: %w", err)
	}
	return tok, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
