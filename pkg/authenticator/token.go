package authenticator

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type TokenEngine[T any] interface {
	Generate(sub string, obj T, expiration time.Duration) (string, error)
	Verify(token string) (T, error)
}

type claims struct {
	jwt.RegisteredClaims
	Data json.RawMessage `json:"data"`
}

type jwtEngine[T any] struct {
	secret string
}

func NewTokenEngine[T any](secret string) TokenEngine[T] {
	return &jwtEngine[T]{secret: secret}
}

func (e *jwtEngine[T]) Generate(sub string, obj T, expiration time.Duration) (string, error) {
	data, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
		Data: data,
	})

	return t.SignedString([]byte(e.secret))
}

func (e *jwtEngine[T]) Verify(token string) (T, error) {
	var obj T
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}

		return []byte(e.secret), nil
	})
	if err != nil {
		return obj, err
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return obj, errors.New("invalid token")
	}

	if err := json.Unmarshal(c.Data, &obj); err != nil {
		return obj, err
	}

	return obj, nil
}
