/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/nethesis/client-portal/models"
)

// IssueToken signs a token carrying the same claims the login handler
// issues for user.
func IssueToken(t *testing.T, secret string, user *models.UserAuthorizations, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	token := jwtv4.NewWithClaims(jwtv4.SigningMethodHS256, jwtv4.MapClaims{
		"id":         strconv.FormatInt(user.UserID, 10),
		"name":       user.Name,
		"email":      user.Email,
		"profile":    user.Profile,
		"company_id": user.CompanyID,
		"orig_iat":   now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// Perform runs a JSON request against handler. An empty token sends no
// Authorization header.
func Perform(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeJWTPart decodes a JWT base64url part
func DecodeJWTPart(part string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(part)
	if err != nil {
		decoded, err = base64.URLEncoding.DecodeString(part)
	}
	return decoded, err
}
