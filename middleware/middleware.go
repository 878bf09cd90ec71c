/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	jwtv4 "github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/nethesis/client-portal/configuration"
	"github.com/nethesis/client-portal/logs"
	"github.com/nethesis/client-portal/models"
	"github.com/nethesis/client-portal/store"
)

const TokenTimeout = time.Hour * 24 * 14 // 2 weeks

const loginUserKey = "login_user"

var jwtMiddleware *jwt.GinJWTMiddleware
var identityKey = "id"

// test seams
var (
	getCredentialsFunc = store.GetCredentials
	saveSessionsFunc   = store.SaveSessions
)

func InstanceJWT() *jwt.GinJWTMiddleware {
	if jwtMiddleware == nil {
		jwtMiddleware = InitJWT()
	}
	return jwtMiddleware
}

// ResetJWT drops the cached middleware, the next InstanceJWT call rebuilds it
// with the current secret.
func ResetJWT() {
	jwtMiddleware = nil
}

func InitJWT() *jwt.GinJWTMiddleware {
	// define jwt middleware
	authMiddleware, errDefine := jwt.New(&jwt.GinJWTMiddleware{
		Realm:       "portal",
		Key:         []byte(configuration.Config.Secret_jwt),
		Timeout:     TokenTimeout,
		MaxRefresh:  TokenTimeout,
		IdentityKey: identityKey,
		Authenticator: func(c *gin.Context) (interface{}, error) {
			// check login credentials exists
			var loginVals models.LoginJson
			if err := c.ShouldBindJSON(&loginVals); err != nil || loginVals.Email == "" || loginVals.Password == "" {
				return nil, jwt.ErrMissingLoginValues
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			creds, err := getCredentialsFunc(ctx, loginVals.Email)
			if err != nil {
				if !errors.Is(err, store.ErrNotFound) {
					logs.Log("[ERROR][AUTH] Failed to load credentials: " + err.Error())
				}
				logs.Log("[WARNING][AUTH] Login failed for " + loginVals.Email)
				return nil, jwt.ErrFailedAuthentication
			}

			if !creds.Active || !store.CheckPassword(creds.PasswordHash, loginVals.Password) {
				logs.Log("[WARNING][AUTH] Login failed for " + loginVals.Email)
				return nil, jwt.ErrFailedAuthentication
			}

			user := &models.UserAuthorizations{
				UserID:  creds.ID,
				Name:    creds.Name,
				Email:   creds.Email,
				Profile: creds.ProfileName,
			}
			if creds.CompanyID != nil {
				user.CompanyID = *creds.CompanyID
			}

			// read back by LoginResponse to register the session
			c.Set(loginUserKey, user)

			logs.Log("[INFO][AUTH] User " + creds.Email + " logged in")
			return user, nil
		},
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*models.UserAuthorizations); ok {
				return jwt.MapClaims{
					identityKey:  strconv.FormatInt(user.UserID, 10),
					"name":       user.Name,
					"email":      user.Email,
					"profile":    user.Profile,
					"company_id": user.CompanyID,
				}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			return userFromClaims(jwt.ExtractClaims(c))
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			user, ok := data.(*models.UserAuthorizations)
			if !ok || user.UserID == 0 {
				return false
			}

			// the token must belong to an active session
			token := jwt.GetToken(c)
			if !store.HasToken(strconv.FormatInt(user.UserID, 10), token) {
				logs.Log("[WARNING][AUTH] Rejected token without session for user " + strconv.FormatInt(user.UserID, 10))
				return false
			}
			return true
		},
		LoginResponse: func(c *gin.Context, code int, token string, t time.Time) {
			if value, ok := c.Get(loginUserKey); ok {
				if user, ok := value.(*models.UserAuthorizations); ok {
					store.AddToken(strconv.FormatInt(user.UserID, 10), token)
					if err := saveSessionsFunc(); err != nil {
						logs.Log("[ERROR][AUTH] Failed to persist sessions: " + err.Error())
					}
				}
			}
			c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "expire": t, "token": token})
		},
		LogoutResponse: func(c *gin.Context, code int) {
			token, err := InstanceJWT().ParseToken(c)
			if err == nil && token.Valid {
				if claims, ok := token.Claims.(jwtv4.MapClaims); ok {
					if userID, ok := claims[identityKey].(string); ok {
						store.RemoveToken(userID, token.Raw)
						if err := saveSessionsFunc(); err != nil {
							logs.Log("[ERROR][AUTH] Failed to persist sessions: " + err.Error())
						}
						logs.Log("[INFO][AUTH] User " + userID + " logged out")
					}
				}
			}
			c.JSON(http.StatusOK, gin.H{"code": http.StatusOK})
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, structs.Map(models.StatusUnauthorized{
				Code:    code,
				Message: message,
				Data:    nil,
			}))
		},
		TokenLookup:   "header: Authorization, query: jwt",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})

	// check middleware errors
	if errDefine != nil {
		logs.Log("[CRITICAL][AUTH] Middleware definition error: " + errDefine.Error())
	}

	// init middleware
	if errInit := authMiddleware.MiddlewareInit(); errInit != nil {
		logs.Log("[CRITICAL][AUTH] Middleware initialization error: " + errInit.Error())
	}

	return authMiddleware
}

func userFromClaims(claims jwt.MapClaims) *models.UserAuthorizations {
	user := &models.UserAuthorizations{}

	if id, ok := claims[identityKey].(string); ok {
		user.UserID, _ = strconv.ParseInt(id, 10, 64)
	}
	user.Name, _ = claims["name"].(string)
	user.Email, _ = claims["email"].(string)
	user.Profile, _ = claims["profile"].(string)
	if companyID, ok := claims["company_id"].(float64); ok {
		user.CompanyID = int64(companyID)
	}

	return user
}

// CurrentUser returns the identity set by the JWT middleware, nil when the
// request is not authenticated.
func CurrentUser(c *gin.Context) *models.UserAuthorizations {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.UserAuthorizations)
	return user
}

// NormalizeAuthorization accepts a bare token in the Authorization header by
// adding the Bearer scheme the JWT middleware expects.
func NormalizeAuthorization() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header != "" && !strings.Contains(header, " ") {
			c.Request.Header.Set("Authorization", "Bearer "+header)
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin profile.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if !user.IsAdmin() {
			who := "anonymous"
			if user != nil {
				who = user.Email
			}
			logs.Log("[WARNING][AUTHZ] " + who + " denied on " + c.Request.Method + " " + c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, structs.Map(models.StatusForbidden{
				Code:    http.StatusForbidden,
				Message: "admin profile required",
				Data:    nil,
			}))
			return
		}
		c.Next()
	}
}
