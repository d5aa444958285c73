// Package client implements a client for verifying session tokens against a
// remote identity provider.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/imellon/go-investa/internal/config"
	"github.com/rs/zerolog"
)

// Client defines attributes of a struct available to its methods.
type Client struct {
	client       *resty.Client
	serverConfig *config.ServerConfig
	log          *zerolog.Logger
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UID  string `json:"uid"`
	Role string `json:"role"`
}

// InitClient initializes a resty client.
func InitClient(serverConfig *config.ServerConfig, log *zerolog.Logger) *Client {
	identityClient := resty.New()
	log.Info().Msg("identity provider client initialized")
	return &Client{client: identityClient, serverConfig: serverConfig, log: log}
}

// Verify submits a session token to the identity provider and returns the
// identity claims it resolves to.
func (c *Client) Verify(ctx context.Context, token string) (string, string, error) {
	var claims verifyResponse
	response, err := c.client.R().
		SetContext(ctx).
		SetBody(verifyRequest{Token: token}).
		SetResult(&claims).
		Post(c.serverConfig.IdentityAddress + "/api/identity/verify")
	if err != nil {
		c.log.Err(err).Msg("token verification against identity provider failed")
		return "", "", err
	}
	if response.StatusCode() != http.StatusOK {
		return "", "", fmt.Errorf("identity provider rejected token: status %d", response.StatusCode())
	}
	return claims.UID, claims.Role, nil
}
