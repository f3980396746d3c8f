package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/prostay/apiserver/types"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the identity attached by RequireAuth or
// OptionalAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(Identity)
	if !ok || identity.ID < 1 {
		return Identity{}, false
	}
	return identity, true
}

// SetCookie attaches the credential to the response as an HttpOnly cookie.
func (a *Authenticator) SetCookie(w http.ResponseWriter, credential Credential) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.name,
		Value:    credential.Token,
		Path:     "/",
		Domain:   a.cookie.domain,
		Expires:  credential.ExpiresAt,
		MaxAge:   int(credential.ExpiresAt.Sub(a.now()).Seconds()),
		HttpOnly: true,
		Secure:   a.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Revoke instructs the client to drop its credential cookie. The token
// itself stays valid until it expires.
func (a *Authenticator) Revoke(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cookie.name,
		Value:    "",
		Path:     "/",
		Domain:   a.cookie.domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookie.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest reads the credential cookie, falling back to an
// Authorization bearer header.
func (a *Authenticator) TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(a.cookie.name); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidOrExpiredToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Authenticate resolves the identity of r.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	raw, err := a.TokenFromRequest(r)
	if err != nil {
		return Identity{}, err
	}
	return a.Verify(raw)
}

// RequireAuth rejects requests without a valid credential: 401 when none is
// presented, 403 when it is invalid or expired.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.Authenticate(r)
		if err != nil {
			a.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireRole authenticates the request and requires exactly role.
func (a *Authenticator) RequireRole(role types.Role) func(http.Handler) http.Handler {
	return a.RequireAnyRole(role)
}

// RequireAnyRole authenticates the request and requires one of roles.
func (a *Authenticator) RequireAnyRole(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := IdentityFromContext(r.Context())
			if err := a.AuthorizeAny(identity, roles...); err != nil {
				a.reject(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// OptionalAuth attaches the identity when a valid credential is present and
// otherwise passes the request through untouched.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, err := a.Authenticate(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

// OnReject registers fn to observe every request the middleware rejects.
// It must be called before the Authenticator serves requests.
func (a *Authenticator) OnReject(fn func(r *http.Request, err error)) {
	a.onReject = fn
}

func (a *Authenticator) reject(w http.ResponseWriter, r *http.Request, err error) {
	if a.onReject != nil {
		a.onReject(r, err)
	}
	writeError(w, err)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(errorResponse{Error: Reason(err)})
}
