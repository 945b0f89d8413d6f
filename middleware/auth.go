package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store"
)

const (
	userIDKey  = "userId"
	sessionKey = "session"
)

// Verifier turns a bearer token into the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, raw string) (session.Session, error)
}

// JWTVerifier accepts HS256 development tokens.
type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Verify(_ context.Context, raw string) (session.Session, error) {
	return services.ParseAccessToken(v.Secret, raw)
}

// FirebaseVerifier accepts Firebase ID tokens.
type FirebaseVerifier struct {
	Client *auth.Client
}

func (v FirebaseVerifier) Verify(ctx context.Context, raw string) (session.Session, error) {
	token, err := v.Client.VerifyIDToken(ctx, raw)
	if err != nil {
		return session.Session{}, err
	}
	return sessionFromClaims(token.UID, token.Claims), nil
}

func sessionFromClaims(uid string, claims map[string]interface{}) session.Session {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return session.Session{
		UID:         uid,
		Email:       str("email"),
		DisplayName: str("name"),
		PhotoURL:    str("picture"),
	}
}

// AccessTokenMiddleware authenticates the bearer token and stores the
// session, enriched from the users collection, on the request context.
func AccessTokenMiddleware(v Verifier, users store.Users, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Request.Header.Get("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is missing"})
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			return
		}

		sess, err := v.Verify(c.Request.Context(), raw)
		if err != nil || !sess.Valid() {
			log.Debug().Err(err).Msg("Token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is expired or invalid"})
			return
		}

		if users != nil {
			profile, err := users.Get(c.Request.Context(), sess.UID)
			switch {
			case err == nil:
				sess = merge(sess, profile)
			case errors.Is(err, model.ErrNotFound):
			default:
				log.Warn().Err(err).Str("userID", sess.UID).Msg("Failed to load user profile")
			}
		}

		c.Set(userIDKey, sess.UID)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// merge prefers the stored profile over token claims.
func merge(sess session.Session, p model.UserProfile) session.Session {
	if p.DisplayName != "" {
		sess.DisplayName = p.DisplayName
	}
	if p.Email != "" {
		sess.Email = p.Email
	}
	if p.PhotoURL != "" {
		sess.PhotoURL = p.PhotoURL
	}
	return sess
}

// SessionFrom returns the session set by AccessTokenMiddleware.
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok && sess.Valid()
}
