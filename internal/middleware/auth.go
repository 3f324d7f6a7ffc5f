package middleware

import (
	"context"
	"strings"

	"github.com/questforge/backend/pkg/errorx"
	"github.com/questforge/backend/pkg/router"
	"github.com/questforge/backend/pkg/xcontext"
)

// AuthVerifier resolves the caller identity before any handler runs.
type AuthVerifier struct {
	useAccessToken bool
}

func NewAuthVerifier() *AuthVerifier {
	return &AuthVerifier{}
}

func (v *AuthVerifier) WithAccessToken() *AuthVerifier {
	v.useAccessToken = true
	return v
}

func (v *AuthVerifier) Middleware() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		if v.useAccessToken {
			token := accessToken(ctx)
			if token == "" {
				return nil, errorx.New(errorx.Unauthenticated, "You need to authenticate before")
			}

			info, err := xcontext.TokenEngine(ctx).Verify(token)
			if err != nil {
				xcontext.Logger(ctx).Debugf("Cannot verify access token: %v", err)
				return nil, errorx.New(errorx.Unauthenticated, "Invalid access token")
			}

			return xcontext.WithRequestUserID(ctx, info.ID), nil
		}

		return ctx, nil
	}
}

func accessToken(ctx context.Context) string {
	req := xcontext.HTTPRequest(ctx)
	if req == nil {
		return ""
	}

	authorization := req.Header.Get("Authorization")
	if auth, token, found := strings.Cut(authorization, " "); found {
		if auth == "Bearer" {
			return token
		}
		return ""
	}

	cookie, err := req.Cookie(xcontext.Configs(ctx).Auth.AccessToken.Name)
	if err != nil || cookie == nil {
		return ""
	}

	return cookie.Value
}
