// Package session holds the authenticated kitchen session the dashboard
// runs under: the bearer token issued by the auth service and the
// restaurant the token is scoped to. Token issuance and verification
// belong to the server; the daemon only reads the restaurant claim.
package session

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

type Session struct {
	token        string
	restaurantID int64
}

// New builds a session from the configured bearer token. The restaurant
// id is taken from the token's claims when present, otherwise from
// fallbackRestaurantID (for opaque tokens).
func New(token string, fallbackRestaurantID int64) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("empty bearer token")
	}

	restaurantID := restaurantIDFromToken(token)
	if restaurantID == 0 {
		restaurantID = fallbackRestaurantID
	}
	if restaurantID == 0 {
		return nil, fmt.Errorf("restaurant id missing from token and config")
	}

	return &Session{token: token, restaurantID: restaurantID}, nil
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) RestaurantID() int64 {
	return s.restaurantID
}

// restaurantIDFromToken extracts the restaurantId claim without
// verifying the signature. The server rejects tampered tokens on every
// request; the daemon only needs the claim for room scoping and event
// filtering.
func restaurantIDFromToken(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	return coerceID(claims["restaurantId"])
}

// JSON numbers decode as float64, but tokens minted by other stacks have
// carried the claim as int or string too.
func coerceID(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return id
	}
	return 0
}
