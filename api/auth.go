package api

import (
	"context"

	"campus_market/model"
)

// AuthAPI 认证接口
type AuthAPI struct {
	client *Client
}

// NewAuthAPI 创建认证接口
func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

// Login POST /auth/login
func (a *AuthAPI) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := a.client.Post(ctx, "/auth/login", req, &resp)
	return resp, err
}

// Register POST /auth/register
func (a *AuthAPI) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	var resp model.AuthResponse
	err := a.client.Post(ctx, "/auth/register", req, &resp)
	return resp, err
}

// Profile GET /auth/profile
func (a *AuthAPI) Profile(ctx context.Context) (model.Profile, error) {
	var resp model.Profile
	err := a.client.Get(ctx, "/auth/profile", nil, &resp)
	return resp, err
}
