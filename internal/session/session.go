// Package session carries the caller's identity across requests in a signed
// cookie. The cookie value is a JWT whose only custom claim is the user ID;
// resolution is a pure function of the token and the current credential
// store snapshot.
package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"tinylink/internal/logger"
	"tinylink/internal/models"
)

type userKeeper interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, bool, error)
}

// Manager issues, clears, and resolves session cookies.
type Manager struct {
	// db is the interface to the user data storage.
	db userKeeper

	// cookieName is the name of the cookie used to store the JWT.
	cookieName string

	// signingSecretKey is the key used to sign JWTs.
	signingSecretKey []byte
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds a user-specific identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key under which the resolved user ID is stored.
// The value is the empty string for anonymous callers.
const UserIDKey ContextKey = "userID"

// New creates a Manager with the given user data access layer, cookie name,
// and JWT signing secret.
func New(db userKeeper, cookieName string, signingSecretKey []byte) *Manager {
	return &Manager{
		db:               db,
		cookieName:       cookieName,
		signingSecretKey: signingSecretKey,
	}
}

// Establish signs a session token for userID and sets it as the session cookie.
func (m *Manager) Establish(response http.ResponseWriter, userID string) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: userID})

	tokenString, err := token.SignedString(m.signingSecretKey)
	if err != nil {
		return err
	}

	http.SetCookie(
		response,
		&http.Cookie{
			Name:     m.cookieName,
			Value:    tokenString,
			Path:     "/",
			HttpOnly: true,
		},
	)

	return nil
}

// Clear expires the session cookie. It never fails.
func (m *Manager) Clear(response http.ResponseWriter) {
	http.SetCookie(
		response,
		&http.Cookie{
			Name:     m.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		},
	)
}

// ResolveUser is an HTTP middleware that resolves the caller's identity from
// the session cookie and stores it in the request context. A missing or
// invalid token, or a token whose user ID no longer exists in the credential
// store, resolves to anonymous; resolution itself never rejects a request.
func (m *Manager) ResolveUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := m.resolve(request)
		if err != nil {
			logger.Log.Debugln("Error resolving the session cookie: ", zap.Error(err))
			response.WriteHeader(http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserID returns the identity resolved by ResolveUser, or the empty string
// for anonymous callers.
func UserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}

	return userID
}

func (m *Manager) resolve(request *http.Request) (string, error) {
	cookie, err := request.Cookie(m.cookieName)
	if err != nil {
		return "", nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		cookie.Value,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return "", nil
	}

	// The store never deletes users, but a cookie signed for a previous
	// process lifetime can reference an ID that no longer exists.
	_, found, err := m.db.GetUserByID(request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}

	return claims.UserID, nil
}
