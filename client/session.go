/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package client

import (
	"context"
	"strconv"
	"time"

	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/models"
)

// Session is the authenticated identity a request runs as. Token is sent
// verbatim in the Authorization header.
type Session struct {
	Token     string
	UserID    int64
	Name      string
	Email     string
	Profile   string
	CompanyID int64
	ExpiresAt time.Time
}

type sessionKey struct{}

// ParseSession reads the identity claims of a login token. The signature is
// not verified, the server does that on every request.
func ParseSession(token string) (*Session, error) {
	claims := jwtv4.MapClaims{}
	if _, _, err := jwtv4.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "parse session token")
	}

	session := &Session{Token: token}
	if id, ok := claims["id"].(string); ok {
		session.UserID, _ = strconv.ParseInt(id, 10, 64)
	}
	if session.UserID == 0 {
		return nil, errors.New("session token carries no user id")
	}
	session.Name, _ = claims["name"].(string)
	session.Email, _ = claims["email"].(string)
	session.Profile, _ = claims["profile"].(string)
	if companyID, ok := claims["company_id"].(float64); ok {
		session.CompanyID = int64(companyID)
	}
	if exp, ok := claims["exp"].(float64); ok {
		session.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return session, nil
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Profile == models.ProfileAdmin
}

// Expired reports whether the token is past its expiry at now. A token
// without expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// NewContext returns a copy of ctx carrying session.
func NewContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by NewContext.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	return session, ok && session != nil
}
