package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidJWT = errors.New("invalid token")
	ErrPublicKey  = errors.New("invalid public key")
)

// TokenClaims is the identity handed to the engine by the upstream auth service.
type TokenClaims struct {
	Appid      string            `json:"aid"`
	User       string            `json:"u"` // 上游平台的用户唯一标识
	Fields     map[string]string `json:"f,omitempty"`
	ExpireTime int64             `json:"exp"`
	NotBefore  int64             `json:"nbf"`
}

func NewTokenClaims(appid, userID string, expireTime int64) TokenClaims {
	return TokenClaims{
		Appid:      appid,
		User:       userID,
		Fields:     map[string]string{},
		ExpireTime: expireTime,
		NotBefore:  time.Now().Unix() - 1,
	}
}

func (t TokenClaims) GetUser() string {
	return t.User
}

func (t TokenClaims) Field(key string) string {
	if t.Fields == nil {
		return ""
	}
	return t.Fields[key]
}

// Valid implements jwt.Claims.
func (t TokenClaims) Valid() error {
	now := time.Now().Unix()
	if t.User == "" {
		return fmt.Errorf("empty subject, %w", ErrInvalidJWT)
	}
	if t.ExpireTime != 0 && t.ExpireTime < now {
		return fmt.Errorf("expired token, %w", ErrInvalidJWT)
	}
	if t.NotBefore > now {
		return fmt.Errorf("token not active, %w", ErrInvalidJWT)
	}
	return nil
}

func GenerateJWT(info TokenClaims, signBytes []byte) (string, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(signBytes)
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, info).SignedString(privateKey)
}

// VerifyToken checks the RS256 signature against key (PEM public key) and the time window.
func VerifyToken(tokenString string, key []byte) (*TokenClaims, error) {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(key)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrPublicKey)
	}

	claims := &TokenClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v, %w", token.Header["alg"], ErrInvalidJWT)
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err.Error(), ErrInvalidJWT)
	}
	return claims, nil
}
