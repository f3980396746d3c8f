// Package auth issues and verifies the signed session credential and gates
// requests by role.
//
// A credential is an HS256 JWT carrying the user's id, name, email, photo and
// role. It is never stored server-side: it is valid while its signature
// matches the configured secret and its expiry has not passed.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL   = 24 * time.Hour
	DefaultCookieName = "token"
)

// UserFinder looks up login candidates by exact email. It returns
// store.ErrNotFound when no user matches.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// PasswordComparer reports whether plain matches the stored hash.
type PasswordComparer func(hash, plain string) bool

// BcryptComparer compares with bcrypt in constant time.
func BcryptComparer(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Config holds the read-only settings of an Authenticator.
type Config struct {
	Secret       string
	TokenTTL     time.Duration
	CookieName   string
	CookieSecure bool
	CookieDomain string
}

// Claims is the payload of a session credential.
type Claims struct {
	UserID int    `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Photo  string `json:"photo,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Credential is a freshly issued token and the user it was issued for.
type Credential struct {
	Token     string
	ExpiresAt time.Time
	User      types.User
}

// Identity is the decoded caller of a request.
type Identity struct {
	ID    int
	Role  types.Role
	Name  string
	Email string
	Photo string
}

// Authenticator issues, verifies and authorizes session credentials.
type Authenticator struct {
	users   UserFinder
	compare PasswordComparer
	secret  []byte
	ttl     time.Duration
	cookie  cookieConfig
	now     func() time.Time

	onReject func(r *http.Request, err error)
}

type cookieConfig struct {
	name   string
	secure bool
	domain string
}

// New constructs an Authenticator. The secret must not be empty.
func New(users UserFinder, cfg Config) (*Authenticator, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = DefaultCookieName
	}
	return &Authenticator{
		users:   users,
		compare: BcryptComparer,
		secret:  []byte(secret),
		ttl:     ttl,
		cookie: cookieConfig{
			name:   name,
			secure: cfg.CookieSecure,
			domain: cfg.CookieDomain,
		},
		now: time.Now,
	}, nil
}

// Issue checks email and password against the user store and signs a
// credential for the matching user.
func (a *Authenticator) Issue(ctx context.Context, email, password string) (Credential, error) {
	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Credential{}, ErrNotFound
		}
		return Credential{}, fmt.Errorf("%w: find user: %v", ErrUpstream, err)
	}

	if !a.compare(user.PasswordHash, password) {
		return Credential{}, ErrInvalidCredentials
	}

	return a.Sign(user)
}

// Sign creates a credential for user without checking a password. It is
// used right after registration.
func (a *Authenticator) Sign(user types.User) (Credential, error) {
	now := a.now()
	expiresAt := now.Add(a.ttl)
	claims := Claims{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Photo:  user.Photo,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: sign token: %v", ErrUpstream, err)
	}

	return Credential{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Verify checks the signature and expiry of raw and returns the identity it
// carries.
func (a *Authenticator) Verify(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidOrExpiredToken, err)
	}
	if !token.Valid || claims.UserID < 1 {
		return Identity{}, ErrInvalidOrExpiredToken
	}

	role, err := types.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidOrExpiredToken, err)
	}

	return Identity{
		ID:    claims.UserID,
		Role:  role,
		Name:  claims.Name,
		Email: claims.Email,
		Photo: claims.Photo,
	}, nil
}

// Authorize succeeds iff the identity holds exactly the required role.
func (a *Authenticator) Authorize(identity Identity, required types.Role) error {
	if identity.Role != required {
		return ErrForbidden
	}
	return nil
}

// AuthorizeAny succeeds iff the identity holds one of roles.
func (a *Authenticator) AuthorizeAny(identity Identity, roles ...types.Role) error {
	for _, role := range roles {
		if a.Authorize(identity, role) == nil {
			return nil
		}
	}
	return ErrForbidden
}

// TTL returns the lifetime of issued credentials.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}
