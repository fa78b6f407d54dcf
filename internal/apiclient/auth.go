package apiclient

import (
	"context"
	"net/http"
)

// Tokens 对应 /auth/login 与 /auth/refresh 的响应。
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/register", credentials{Username: username, Password: password}, nil)
}

// Login 成功后客户端自动使用新的访问令牌。
func (c *Client) Login(ctx context.Context, username, password string) (*Tokens, error) {
	var tokens Tokens
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentials{Username: username, Password: password}, &tokens); err != nil {
		return nil, err
	}
	c.SetToken(tokens.AccessToken)
	return &tokens, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var tokens Tokens
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &tokens); err != nil {
		return nil, err
	}
	c.SetToken(tokens.AccessToken)
	return &tokens, nil
}
