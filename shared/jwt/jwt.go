package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/voiceweave/voiceweave/shared/domain"
	internal_errors "github.com/voiceweave/voiceweave/shared/errors"
	"github.com/voiceweave/voiceweave/shared/logger"
)

type JwtService interface {
	NewToken(user domain.User) (string, error)
	DecodeToken(jwtStr string) (*jwt.Token, error)
}

type Jwt struct {
	secretKey string
	ttl       time.Duration
}

func New(secretKey string, ttl time.Duration) JwtService {
	return &Jwt{secretKey, ttl}
}

// NewToken issues an identity token. The identity provider is external; this exists for
// tooling and tests that need to mint tokens the API accepts.
func (j *Jwt) NewToken(user domain.User) (string, error) {
	claims := jwt.MapClaims{
		"uid":   user.Id,
		"name":  user.DisplayName,
		"email": user.Email,
		"exp":   time.Now().Add(j.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		logger.Log.Error("failed to sign token", "error", err)
		return "", errors.New("Can't create token")
	}

	return tokenString, nil
}

func (j *Jwt) DecodeToken(jwtStr string) (*jwt.Token, error) {
	token, err := jwt.Parse(jwtStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(j.secretKey), nil
	})
	if err != nil {
		logger.Log.Debug("token rejected", "error", err)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &internal_errors.ErrorWithStatusCode{Message: "Access token expired", StatusCode: http.StatusUnauthorized}
		}
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid token signature", StatusCode: http.StatusUnauthorized}
	}

	if !token.Valid {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "Invalid access token", StatusCode: http.StatusUnauthorized}
	}

	return token, nil
}

// UserFromToken reads the identity claims of a decoded token.
func UserFromToken(token *jwt.Token) (domain.User, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.User{}, errors.New("invalid claims")
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return domain.User{}, errors.New("invalid claims: uid")
	}
	// name and email are optional
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	return domain.User{Id: uid, DisplayName: name, Email: email}, nil
}
