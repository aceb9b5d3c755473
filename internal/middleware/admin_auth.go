package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"growly/internal/config"
	"growly/internal/pkg/jwt"
	"growly/internal/pkg/logger"
	"growly/internal/pkg/response"
)

// ErrUnauthorized is returned by every AdminPolicy that rejects a token.
var ErrUnauthorized = errors.New("unauthorized")

const queryTokenParam = "token"

// ContextKeyAdmin holds the authenticated admin subject, if any.
const ContextKeyAdmin = "admin_subject"

// AdminPolicy decides whether a bearer token grants admin access. token is
// empty when the request carried none.
type AdminPolicy interface {
	Authorize(token string) (subject string, err error)
}

// AdminPolicyFunc adapts a function to AdminPolicy.
type AdminPolicyFunc func(token string) (string, error)

func (f AdminPolicyFunc) Authorize(token string) (string, error) {
	return f(token)
}

// AlwaysAllow lets every request through.
func AlwaysAllow() AdminPolicy {
	return AdminPolicyFunc(func(string) (string, error) {
		return "anonymous", nil
	})
}

type tokenCheck struct {
	secret []byte
	hash   []byte
}

// TokenCheck compares the token with a shared secret. When hash is set it
// must be a bcrypt hash of the secret and secret is ignored.
func TokenCheck(secret, hash string) AdminPolicy {
	return &tokenCheck{secret: []byte(secret), hash: []byte(hash)}
}

func (p *tokenCheck) Authorize(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	if len(p.hash) > 0 {
		if bcrypt.CompareHashAndPassword(p.hash, []byte(token)) != nil {
			return "", ErrUnauthorized
		}
		return "token", nil
	}
	if len(p.secret) == 0 || subtle.ConstantTimeCompare(p.secret, []byte(token)) != 1 {
		return "", ErrUnauthorized
	}
	return "token", nil
}

type signedTokenCheck struct {
	jwt *jwt.Service
}

// SignedTokenCheck accepts HS256 tokens carrying the admin role.
func SignedTokenCheck(svc *jwt.Service) AdminPolicy {
	return &signedTokenCheck{jwt: svc}
}

func (p *signedTokenCheck) Authorize(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	claims, err := p.jwt.ValidateToken(token)
	if err != nil || claims.Role != jwt.RoleAdmin {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

// AnyOf grants access when at least one policy does. With no policies it
// rejects everything.
func AnyOf(policies ...AdminPolicy) AdminPolicy {
	return AdminPolicyFunc(func(token string) (string, error) {
		for _, p := range policies {
			if subject, err := p.Authorize(token); err == nil {
				return subject, nil
			}
		}
		return "", ErrUnauthorized
	})
}

// AllowAnonymous lets requests without a token through and checks the rest
// with inner.
func AllowAnonymous(inner AdminPolicy) AdminPolicy {
	return AdminPolicyFunc(func(token string) (string, error) {
		if token == "" {
			return "anonymous", nil
		}
		return inner.Authorize(token)
	})
}

// PolicyFromConfig builds the admin policy from the configured secrets.
func PolicyFromConfig(cfg config.AdminConfig) AdminPolicy {
	var policies []AdminPolicy
	if cfg.Token != "" || cfg.TokenBcrypt != "" {
		policies = append(policies, TokenCheck(cfg.Token, cfg.TokenBcrypt))
	}
	if cfg.JWTSecret != "" {
		policies = append(policies, SignedTokenCheck(jwt.New(cfg.JWTSecret, cfg.JWTTTL)))
	}

	if len(policies) == 0 && cfg.AllowAnonymous {
		return AlwaysAllow()
	}

	var policy AdminPolicy
	if len(policies) == 1 {
		policy = policies[0]
	} else {
		policy = AnyOf(policies...)
	}
	if cfg.AllowAnonymous {
		policy = AllowAnonymous(policy)
	}
	return policy
}

// AdminAuth guards admin routes with policy. Browsers cannot set headers on
// websocket upgrades, so ?token= is accepted for upgrade requests only.
func AdminAuth(policy AdminPolicy, log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			log.Warn("admin auth failed", "reason", "invalid_auth_format", "request_id", RequestIDFrom(c))
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must be 'Bearer <token>'")
			return
		}

		subject, err := policy.Authorize(token)
		if err != nil {
			log.Warn("admin auth failed", "reason", "rejected", "path", c.Request.URL.Path, "request_id", RequestIDFrom(c))
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Admin authentication required")
			return
		}

		c.Set(ContextKeyAdmin, subject)
		c.Next()
	}
}

// bearerToken returns the request token, or "" when there is none. ok is
// false for a malformed Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			return strings.TrimSpace(c.Query(queryTokenParam)), true
		}
		return "", true
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
