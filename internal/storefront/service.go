package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

const (
	backendPrimary   = "primary"
	backendSecondary = "hosted"
)

type Options struct {
	// Primary is optional. Without it every call goes to Secondary.
	Primary   Backend
	Secondary Backend
	Probe     Prober

	// Tokens is the store both backends keep their session tokens in. When set, a successful
	// sign-in on one provider drops the session's token for the other.
	Tokens session.TokenStore

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

// Service is the backend-agnostic data-access facade. It tries the primary backend when the
// probe reports it reachable and falls back to the secondary on any primary failure.
type Service struct {
	primary   Backend
	secondary Backend
	probe     Prober
	tokens    session.TokenStore
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func New(opts Options) (*Service, error) {
	if opts.Secondary == nil {
		return nil, errors.New("storefront: secondary backend is required")
	}
	if opts.Primary != nil && opts.Probe == nil {
		return nil, errors.New("storefront: probe is required with a primary backend")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront")
	}
	return &Service{
		primary:   opts.Primary,
		secondary: opts.Secondary,
		probe:     opts.Probe,
		tokens:    opts.Tokens,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
	}, nil
}

// call runs fn against the primary when it is reachable and against the secondary otherwise
// or after a primary failure. Only the secondary's error reaches the caller.
func call[T any](ctx context.Context, s *Service, op string, fn func(context.Context, Backend) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "storefront."+strings.ReplaceAll(op, " ", "_"))
	defer span.End()

	if s.primary != nil && s.probe.Available(ctx) {
		v, err := fn(ctx, s.primary)
		if err == nil {
			span.SetAttributes(attribute.String("backend", backendPrimary))
			return v, nil
		}
		s.absorb(ctx, op, err)
		span.AddEvent("fallback")
	}

	span.SetAttributes(attribute.String("backend", backendSecondary))
	v, err := fn(ctx, s.secondary)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	return v, err
}

func (s *Service) absorb(ctx context.Context, op string, err error) {
	terr := &shop.TransientBackendError{Backend: backendPrimary, Op: op, Err: err}
	s.metrics.Fallback(op)
	s.logger.WarnContext(ctx, "primary backend failed, falling back", "op", op, "error", terr)
}

// persistErr keeps auth and validation failures as they are and reports the rest as a failed write.
func persistErr(op string, err error) error {
	if err == nil || shop.IsAuthError(err) || shop.IsValidationError(err) {
		return err
	}
	return &shop.PersistenceError{Op: op, Err: err}
}

func exec(ctx context.Context, s *Service, op string, fn func(context.Context, Backend) error) error {
	_, err := call(ctx, s, op, func(ctx context.Context, b Backend) (struct{}, error) {
		return struct{}{}, fn(ctx, b)
	})
	return persistErr(op, err)
}

// degrade turns a failed read into an empty collection.
func degrade[T any](s *Service, ctx context.Context, op string, v []T, err error) []T {
	if err != nil {
		s.logger.ErrorContext(ctx, "read failed on every backend, serving empty result", "op", op, "error", err)
		return []T{}
	}
	if v == nil {
		return []T{}
	}
	return v
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*shop.AuthUser, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, shop.NewValidationError("credentials", errors.New("email and password are required"))
	}
	var served session.Provider
	u, err := call(ctx, s, "sign in", func(ctx context.Context, b Backend) (*shop.AuthUser, error) {
		served = s.provider(b)
		return b.SignIn(ctx, email, password)
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if err := s.keepOnly(ctx, served); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return u, nil
}

func (s *Service) SignUp(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	if strings.TrimSpace(data.Email) == "" || data.Password == "" {
		return nil, shop.NewValidationError("credentials", errors.New("email and password are required"))
	}
	var served session.Provider
	u, err := call(ctx, s, "sign up", func(ctx context.Context, b Backend) (*shop.AuthUser, error) {
		served = s.provider(b)
		return b.SignUp(ctx, data)
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	if err := s.keepOnly(ctx, served); err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return u, nil
}

func (s *Service) provider(b Backend) session.Provider {
	if s.primary != nil && b == s.primary {
		return session.ProviderPrimary
	}
	return session.ProviderHosted
}

// keepOnly drops the session's token for every provider other than p, so the current user
// is always whoever signed in last.
func (s *Service) keepOnly(ctx context.Context, p session.Provider) error {
	sid := session.IDFromContext(ctx)
	if s.tokens == nil || sid == "" {
		return nil
	}
	other := session.ProviderPrimary
	if p == session.ProviderPrimary {
		other = session.ProviderHosted
	}
	if err := s.tokens.Delete(ctx, sid, other); err != nil {
		return fmt.Errorf("drop %s token: %w", other, err)
	}
	return nil
}

// SignOut ends the session on both providers. A primary failure is absorbed.
func (s *Service) SignOut(ctx context.Context) error {
	if s.primary != nil && s.probe.Available(ctx) {
		if err := s.primary.SignOut(ctx); err != nil {
			s.absorb(ctx, "sign out", err)
		}
	}
	if err := s.secondary.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// GetCurrentUser returns nil for a guest, including when no backend can answer.
func (s *Service) GetCurrentUser(ctx context.Context) *shop.AuthUser {
	u, err := call(ctx, s, "get current user", func(ctx context.Context, b Backend) (*shop.AuthUser, error) {
		return b.CurrentUser(ctx)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "current user lookup failed, treating as guest", "error", err)
		return nil
	}
	return u
}

func (s *Service) FetchProducts(ctx context.Context) []shop.Product {
	v, err := call(ctx, s, "fetch products", func(ctx context.Context, b Backend) ([]shop.Product, error) {
		return b.Products(ctx)
	})
	return degrade(s, ctx, "fetch products", v, err)
}

// ProductByID resolves a product from the catalog. Unknown ids yield shop.ErrNotFound.
func (s *Service) ProductByID(ctx context.Context, id string) (shop.Product, error) {
	if strings.TrimSpace(id) == "" {
		return shop.Product{}, shop.NewValidationError("productId", errors.New("is required"))
	}
	p, err := call(ctx, s, "fetch product", func(ctx context.Context, b Backend) (*shop.Product, error) {
		p, err := b.Product(ctx, id)
		if err == nil && p == nil {
			err = fmt.Errorf("product %s: %w", id, shop.ErrNotFound)
		}
		return p, err
	})
	if err != nil {
		return shop.Product{}, fmt.Errorf("fetch product: %w", err)
	}
	return *p, nil
}

func (s *Service) FetchCategories(ctx context.Context) []string {
	v, err := call(ctx, s, "fetch categories", func(ctx context.Context, b Backend) ([]string, error) {
		return b.Categories(ctx)
	})
	return degrade(s, ctx, "fetch categories", v, err)
}

func (s *Service) SearchProducts(ctx context.Context, query string) []shop.Product {
	v, err := call(ctx, s, "search products", func(ctx context.Context, b Backend) ([]shop.Product, error) {
		return b.SearchProducts(ctx, query)
	})
	return degrade(s, ctx, "search products", v, err)
}

func (s *Service) FetchCartItems(ctx context.Context, userID string) []shop.CartLine {
	v, err := call(ctx, s, "fetch cart items", func(ctx context.Context, b Backend) ([]shop.CartLine, error) {
		return b.CartItems(ctx, userID)
	})
	return degrade(s, ctx, "fetch cart items", v, err)
}

func (s *Service) FetchOrders(ctx context.Context, userID string) []shop.Order {
	v, err := call(ctx, s, "fetch orders", func(ctx context.Context, b Backend) ([]shop.Order, error) {
		return b.Orders(ctx, userID)
	})
	return degrade(s, ctx, "fetch orders", v, err)
}

// SaveCartItem persists the absolute quantity of a line. Quantities below one are rejected.
func (s *Service) SaveCartItem(ctx context.Context, userID, productID string, quantity int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if quantity < 1 {
		return shop.NewValidationError("quantity", errors.New("must be at least 1"))
	}
	return exec(ctx, s, "save cart item", func(ctx context.Context, b Backend) error {
		return b.SaveCartItem(ctx, userID, productID, quantity)
	})
}

func (s *Service) RemoveCartItem(ctx context.Context, userID, productID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return exec(ctx, s, "remove cart item", func(ctx context.Context, b Backend) error {
		return b.RemoveCartItem(ctx, userID, productID)
	})
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return exec(ctx, s, "clear cart", func(ctx context.Context, b Backend) error {
		return b.ClearCart(ctx, userID)
	})
}

// CreateOrder places an order with status pending and returns its id.
func (s *Service) CreateOrder(ctx context.Context, req shop.OrderRequest) (string, error) {
	if err := requireUser(req.UserID); err != nil {
		return "", err
	}
	if len(req.Items) == 0 {
		return "", shop.NewValidationError("items", shop.ErrEmptyCart)
	}
	req = req.WithDefaults()

	id, err := call(ctx, s, "create order", func(ctx context.Context, b Backend) (string, error) {
		id, err := b.CreateOrder(ctx, req)
		if err == nil && id == "" {
			err = errors.New("backend returned no order id")
		}
		return id, err
	})
	if err != nil {
		return "", persistErr("create order", err)
	}
	return id, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return shop.NewAuthError(shop.ErrNotAuthenticated)
	}
	return nil
}
