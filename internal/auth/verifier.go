// Package auth turns bearer tokens into user ids.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/crisjonblvx/facultyflow/internal/config"
	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Roles that may change a course's grading setup.
const (
	RoleEducator = "educator"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller. LMSUserID is zero when no LMS
// account is linked.
type Identity struct {
	UserID    string
	Name      string
	Roles     []string
	LMSUserID int64
}

// HasRole reports whether the caller holds any of roles.
func (i *Identity) HasRole(roles ...string) bool {
	for _, have := range i.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// TokenVerifier validates a raw token and returns who it belongs to.
type TokenVerifier interface {
	Verify(token string) (*Identity, error)
}

// NewVerifier picks the verifier named by AUTH_PROVIDER.
func NewVerifier(cfg *config.Config) (TokenVerifier, error) {
	switch strings.ToLower(cfg.Auth.Provider) {
	case "", "jwt":
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET is required for jwt auth")
		}
		return NewJWTVerifier(cfg.JWTSecret), nil
	case "casdoor":
		return NewCasdoorVerifier(cfg.Auth), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
}

// ===== HMAC JWT =====

type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Claims are the fields read from an HMAC-signed token.
type Claims struct {
	Name      string   `json:"name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	LMSUserID int64    `json:"lms_user_id,omitempty"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) Verify(raw string) (*Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidToken)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &Identity{
		UserID:    claims.Subject,
		Name:      claims.Name,
		Roles:     claims.Roles,
		LMSUserID: claims.LMSUserID,
	}, nil
}

// Sign issues a token for subject. Used by tests and local tooling.
func (v *JWTVerifier) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// ===== CASDOOR =====

type CasdoorVerifier struct {
	client *casdoorsdk.Client
}

func NewCasdoorVerifier(cfg config.AuthConfig) *CasdoorVerifier {
	return &CasdoorVerifier{
		client: casdoorsdk.NewClient(
			cfg.CasdoorEndpoint,
			cfg.CasdoorClientID,
			cfg.CasdoorClientSecret,
			cfg.CasdoorCertificate,
			cfg.CasdoorOrganization,
			cfg.CasdoorApplication,
		),
	}
}

func (v *CasdoorVerifier) Verify(raw string) (*Identity, error) {
	claims, err := v.client.ParseJwtToken(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromCasdoor(claims)
}

// lmsUserProperty is the Casdoor user property holding the LMS account id.
const lmsUserProperty = "lms_user_id"

func identityFromCasdoor(claims *casdoorsdk.Claims) (*Identity, error) {
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidToken)
	}

	userID := claims.User.Id
	if userID == "" {
		userID = claims.RegisteredClaims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user id", ErrInvalidToken)
	}

	identity := &Identity{UserID: userID, Name: claims.User.Name}
	for _, role := range claims.User.Roles {
		if role != nil && role.Name != "" {
			identity.Roles = append(identity.Roles, role.Name)
		}
	}
	if claims.User.IsAdmin {
		identity.Roles = append(identity.Roles, RoleAdmin)
	}
	if raw := claims.User.Properties[lmsUserProperty]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad %s %q", ErrInvalidToken, lmsUserProperty, raw)
		}
		identity.LMSUserID = id
	}
	return identity, nil
}
