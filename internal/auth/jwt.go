// Package auth turns a handshake token into a connection identity.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/farmrelay/internal/domain"
	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Options controls signing and verification.
type Options struct {
	Secret []byte
	Alg    string // HS256/HS384/HS512, default HS256
}

type Verifier struct {
	opts   Options
	method jwtlib.SigningMethod
}

func NewVerifier(opts Options) (*Verifier, error) {
	if len(opts.Secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return nil, err
	}
	return &Verifier{opts: opts, method: method}, nil
}

// Verify checks the signature and standard time claims, then classifies the
// token: a hostId claim makes a Host, anything else is a User.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, fmt.Errorf("%w: empty", ErrInvalidToken)
	}
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		return v.opts.Secret, nil
	}, jwtlib.WithValidMethods([]string{v.method.Alg()}))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	return IdentityFromClaims(claims)
}

func IdentityFromClaims(claims jwtlib.MapClaims) (domain.Identity, error) {
	if raw, ok := claims["hostId"]; ok && raw != nil {
		ident, err := domain.NewHostIdentity(claimString(raw))
		if err != nil {
			return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return ident, nil
	}
	return domain.NewUserIdentity(claimString(claims["id"]), claimString(claims["email"])), nil
}

// claimString accepts numeric ids as well as strings.
func claimString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// HostClaims and UserClaims build the payloads the relay understands.
func HostClaims(hostID string) jwtlib.MapClaims {
	return jwtlib.MapClaims{"hostId": hostID}
}

func UserClaims(id, email string) jwtlib.MapClaims {
	return jwtlib.MapClaims{"id": id, "email": email}
}

// Sign issues a token for claims. ttl <= 0 issues a token without expiry.
func Sign(opts Options, claims jwtlib.MapClaims, ttl time.Duration) (string, error) {
	method, err := signingMethod(opts.Alg)
	if err != nil {
		return "", err
	}
	now := time.Now()
	out := jwtlib.MapClaims{"iat": now.Unix()}
	for k, v := range claims {
		out[k] = v
	}
	if ttl > 0 {
		out["exp"] = now.Add(ttl).Unix()
	}
	return jwtlib.NewWithClaims(method, out).SignedString(opts.Secret)
}

func signingMethod(alg string) (jwtlib.SigningMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(alg)) {
	case "", "HS256":
		return jwtlib.SigningMethodHS256, nil
	case "HS384":
		return jwtlib.SigningMethodHS384, nil
	case "HS512":
		return jwtlib.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported alg: %s (use HS256/HS384/HS512)", alg)
	}
}
