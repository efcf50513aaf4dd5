package clients

import (
	"context"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/shop"
)

type AuthClient struct{ c *Client }

func NewAuthClient(c *Client) *AuthClient { return &AuthClient{c: c} }

type authResponse struct {
	Token string        `json:"token"`
	User  shop.AuthUser `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (ac *AuthClient) Login(ctx context.Context, email, password string) (*shop.AuthUser, error) {
	var resp authResponse
	if err := ac.c.doJSON(ctx, http.MethodPost, "/auth/login", callOpts{}, loginRequest{Email: email, Password: password}, &resp); err != nil {
		if shop.IsAuthError(err) {
			return nil, shop.NewAuthError(shop.ErrInvalidCredentials)
		}
		return nil, err
	}
	return ac.accept(ctx, resp)
}

func (ac *AuthClient) Register(ctx context.Context, data shop.SignUpData) (*shop.AuthUser, error) {
	var resp authResponse
	if err := ac.c.doJSON(ctx, http.MethodPost, "/auth/register", callOpts{}, data, &resp); err != nil {
		return nil, err
	}
	return ac.accept(ctx, resp)
}

func (ac *AuthClient) accept(ctx context.Context, resp authResponse) (*shop.AuthUser, error) {
	if resp.Token == "" || resp.User.ID == "" {
		return nil, errors.New("auth response missing token or user")
	}
	if err := ac.c.storeToken(ctx, resp.Token); err != nil {
		return nil, err
	}
	u := resp.User
	return &u, nil
}

// Logout ends the primary session. The local token is dropped even when the call fails.
func (ac *AuthClient) Logout(ctx context.Context) error {
	if _, err := ac.c.bearer(ctx); err != nil {
		// nothing to end upstream
		return ac.c.dropToken(ctx)
	}
	err := ac.c.doJSON(ctx, http.MethodPost, "/auth/logout", callOpts{authenticated: true}, nil, nil)
	if derr := ac.c.dropToken(ctx); derr != nil && err == nil {
		err = derr
	}
	return err
}

func (ac *AuthClient) Me(ctx context.Context) (*shop.AuthUser, error) {
	var u shop.AuthUser
	if err := ac.c.doJSON(ctx, http.MethodGet, "/auth/me", callOpts{authenticated: true}, nil, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, errors.New("me response missing user id")
	}
	return &u, nil
}
