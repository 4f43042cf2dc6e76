package jwt

import (
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ParseEdDSA validates the signature against the issuer's key, checks iss
// and validates exp/nbf with a small tolerance. Claims come back as a map.
func ParseEdDSA(token string, i *Issuer) (map[string]any, error) {
	tok, err := jwtv5.Parse(token, i.Keyfunc(),
		jwtv5.WithValidMethods([]string{"EdDSA"}),
		jwtv5.WithLeeway(30*time.Second),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if i.Iss != "" {
		if iss, _ := claims["iss"].(string); iss != i.Iss {
			return nil, ErrInvalidIssuer
		}
	}
	return claims, nil
}
