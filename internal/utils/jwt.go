package utils // package utils provides helpers for tokens, verification codes and phone numbers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// Roles carried in the "role" claim.  A PENDING token proves that a mobile
// number passed SMS verification but has no user yet; it is only accepted
// by the signup endpoint.
const (
	RoleUser    = "USER"
	RolePending = "PENDING"
)

// AccessToken represents a signed JWT along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Claims is the decoded form of a token issued by this service.
type Claims struct {
	UserID uint64
	Role   string
	Mobile string
}

// NewAccessToken builds and signs an HS256 JWT for an enrolled user.  The
// subject is the user ID.
func NewAccessToken(secret string, userID uint64, ttlMin int) (AccessToken, error) {
	return sign(secret, jwt.MapClaims{
		"sub":  fmt.Sprint(userID),
		"role": RoleUser,
	}, ttlMin)
}

// NewOnboardingToken builds a PENDING token for a verified mobile number
// that is not registered yet.
func NewOnboardingToken(secret, mobile string, ttlMin int) (AccessToken, error) {
	return sign(secret, jwt.MapClaims{
		"sub":    "0",
		"role":   RolePending,
		"mobile": mobile,
	}, ttlMin)
}

func sign(secret string, claims jwt.MapClaims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims["exp"] = exp.Unix()
	claims["iat"] = now.Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 token signed with secret and decodes its
// claims.
func ParseToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	var c Claims
	sub, _ := mc.GetSubject()
	if _, err := fmt.Sscan(sub, &c.UserID); err != nil {
		return Claims{}, ErrInvalidToken
	}
	c.Role, _ = mc["role"].(string)
	c.Mobile, _ = mc["mobile"].(string)
	if c.Role == "" || (c.Role == RoleUser && c.UserID == 0) {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}
