package hosted

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Backend is the hosted relational store with its own managed auth.
type Backend struct {
	pool       DBPool
	tokens     session.TokenStore
	sessionTTL time.Duration
	hashCost   int

	now      func() time.Time
	newToken func() (string, error)
	newID    func() string
}

type Option func(*Backend)

func WithSessionTTL(d time.Duration) Option { return func(b *Backend) { b.sessionTTL = d } }

func WithHashCost(cost int) Option { return func(b *Backend) { b.hashCost = cost } }

func New(pool DBPool, tokens session.TokenStore, opts ...Option) *Backend {
	b := &Backend{
		pool:       pool,
		tokens:     tokens,
		sessionTTL: 7 * 24 * time.Hour,
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
		newToken:   randomToken,
		newID:      newUUID,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
