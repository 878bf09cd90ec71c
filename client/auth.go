/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/models"
)

type loginResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Login exchanges credentials for a session. Store it with NewContext.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := c.send(ctx, http.MethodPost, "/login", nil, models.LoginJson{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode == http.StatusOK {
		return nil, errors.Wrap(err, "decode login response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: body.Message}
	}
	if body.Token == "" {
		return nil, errors.New("login response carries no token")
	}

	return ParseSession(body.Token)
}

// Logout revokes the session token server side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// Me returns the profile of the session user.
func (c *Client) Me(ctx context.Context) (*models.Me, error) {
	var me models.Me
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}
