// Package jwt 校验外部身份系统签发的 Access Token
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessSubject = "access_token"

var (
	ErrNotAccessToken = errors.New("token is not an access token")
	ErrNotInitialized = errors.New("jwt secret not initialized")
)

var (
	secret      []byte
	accessValid time.Duration
)

// Init 设置签名密钥与 Access Token 有效期（分钟）
func Init(signingSecret string, accessExpiryMinutes int) {
	secret = []byte(signingSecret)
	accessValid = time.Duration(accessExpiryMinutes) * time.Minute
}

// Claims 身份声明，UserID 即投递层使用的用户标识
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken 签发 Access Token
// 正式环境由身份系统签发，这里供本地联调和测试使用
func GenerateAccessToken(userID string) (string, error) {
	if len(secret) == 0 {
		return "", ErrNotInitialized
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessValid)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "social_relay",
			Subject:   accessSubject,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAccessToken 校验签名、有效期和 Subject，返回声明
func ParseAccessToken(tokenString string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNotInitialized
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims.Subject != accessSubject {
		return nil, ErrNotAccessToken
	}
	if claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
