/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/nethesis/client-portal/models"
)

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty hash never
// matches, accounts created without a password cannot log in.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func hashPasswordValue(values map[string]interface{}, insert bool) error {
	raw, ok := values["password"]
	if !ok {
		return nil
	}

	password, _ := raw.(string)
	if password == "" {
		// an empty password on update keeps the current one
		if insert {
			values["password"] = ""
		} else {
			delete(values, "password")
		}
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	values["password"] = hash
	return nil
}

func credentialsQuery(d dialect, where string) string {
	cols := make([]string, 0, 8)
	for _, col := range []string{"id", "name", "email", "password", "active", "company_id", "profile_id"} {
		cols = append(cols, "u."+d.quote(col))
	}
	cols = append(cols, "p."+d.quote("name")+" AS profile_name")

	return d.rebind("SELECT " + strings.Join(cols, ", ") +
		" FROM " + d.quote("users") + " u JOIN " + d.quote("profiles") + " p ON p." + d.quote("id") + " = u." + d.quote("profile_id") +
		" WHERE " + where)
}

// GetCredentials loads the login view of the user with the given e-mail.
func GetCredentials(ctx context.Context, email string) (*models.Credentials, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	query := credentialsQuery(d, "LOWER(u."+d.quote("email")+") = ?")

	var creds models.Credentials
	if err := database.GetContext(ctx, &creds, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load credentials")
	}
	return &creds, nil
}

// GetMe returns the profile of user id with its company, if any.
func GetMe(ctx context.Context, id int64) (*models.Me, error) {
	database, d, err := conn()
	if err != nil {
		return nil, err
	}

	query := credentialsQuery(d, "u."+d.quote("id")+" = ?")

	var creds models.Credentials
	if err := database.GetContext(ctx, &creds, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "load user")
	}

	me := &models.Me{
		ID:          creds.ID,
		Name:        creds.Name,
		Email:       creds.Email,
		ProfileID:   creds.ProfileID,
		ProfileName: creds.ProfileName,
	}

	if creds.CompanyID != nil {
		var company models.Company
		err := database.GetContext(ctx, &company, d.rebind("SELECT "+d.quote("id")+", "+d.quote("name")+", "+d.quote("logo")+
			" FROM "+d.quote("companies")+" WHERE "+d.quote("id")+" = ?"), *creds.CompanyID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrap(err, "load company")
		}
		if err == nil {
			me.Company = &company
		}
	}

	return me, nil
}
