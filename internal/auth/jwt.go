// Package auth выдаёт и проверяет JWT-токены для административных
// эндпоинтов статусного API.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Секрет подписи; в production задаётся через переменную окружения
var jwtSecret []byte

// Секрет из окружения; пустой, если оператор его не задал
var adminSecret = os.Getenv("ARENA_ADMIN_SECRET")

func init() {
	if env := os.Getenv("ARENA_ADMIN_SECRET"); env != "" {
		jwtSecret = []byte(env)
		return
	}

	// Случайный секрет на время жизни процесса
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		// Fallback только для разработки
		jwtSecret = []byte("development-secret-key-change-in-production")
	}
}

// Claims — полезная нагрузка административного токена
type Claims struct {
	Operator string `json:"operator"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// CheckAdminSecret сверяет присланный секрет с ARENA_ADMIN_SECRET.
// Если секрет не задан в окружении, выдача токенов закрыта.
func CheckAdminSecret(secret string) bool {
	if adminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(adminSecret)) == 1
}

// GenerateAdminToken создаёт токен оператора для админских эндпоинтов
func GenerateAdminToken(operator string) (string, error) {
	claims := &Claims{
		Operator: operator,
		IsAdmin:  true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "arena-sync",
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ValidateAdminToken проверяет токен и возвращает имя оператора
func ValidateAdminToken(tokenString string) (operator string, ok bool) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Проверяем метод подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})

	if err != nil || !token.Valid || !claims.IsAdmin {
		return "", false
	}

	return claims.Operator, true
}
