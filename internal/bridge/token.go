package bridge

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const streamTokenType = "media_stream"

var errInvalidStreamToken = errors.New("invalid stream token")

// MintStreamToken signs a short-lived token binding a media-stream websocket
// to one call. It travels in the stream URL of the call-setup document, so
// the provider presents it back on the websocket handshake.
func MintStreamToken(callID uuid.UUID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  callID.String(),
		"type": streamTokenType,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(secret))
}

// ParseStreamToken validates a stream token and returns the call ID it was
// minted for.
func ParseStreamToken(rawToken, secret string) (uuid.UUID, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errInvalidStreamToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errInvalidStreamToken
	}
	if tokenType, _ := claims["type"].(string); tokenType != streamTokenType {
		return uuid.Nil, errInvalidStreamToken
	}

	callIDRaw, _ := claims["sub"].(string)
	callID, err := uuid.Parse(callIDRaw)
	if err != nil {
		return uuid.Nil, errInvalidStreamToken
	}
	return callID, nil
}
