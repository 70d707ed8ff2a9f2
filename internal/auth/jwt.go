package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/logging"
)

const issuer = "mmo-sim"

var (
	ErrInvalidToken = errors.New("недействительный токен")
	ErrWeakSecret   = errors.New("секрет должен быть не короче 32 байт")
)

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

func init() {
	jwtSecret = make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		jwtSecret = []byte("development-secret-key-change-in-production")
	}
}

// Claims - поля токена
type Claims struct {
	UserID   uint64 `json:"player_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Configure применяет секцию auth конфигурации.
// Пустой секрет оставляет случайный ключ процесса: токены живут до перезапуска.
func Configure(cfg config.AuthConfig) error {
	if cfg.JWTSecret == "" {
		logging.Warn("auth: jwt_secret не задан, используется случайный ключ")
		return nil
	}
	return SetJWTSecret(cfg.JWTSecret)
}

// GenerateJWT выдает токен пользователю на ttl (0 - сутки)
func GenerateJWT(user *User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ParseJWT проверяет подпись и срок токена
func ParseJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", token.Header["alg"])
		}
		return secret(), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateJWT - короткая форма ParseJWT для проверок доступа
func ValidateJWT(tokenString string) (userID uint64, isValid bool, isAdmin bool) {
	claims, err := ParseJWT(tokenString)
	if err != nil {
		return 0, false, false
	}
	return claims.UserID, true, claims.IsAdmin
}

// GenerateSecureSecret генерирует секрет в base64
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// SetJWTSecret устанавливает секрет в base64
func SetJWTSecret(encoded string) error {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("секрет не в base64: %w", err)
	}
	if len(decoded) < 32 {
		return ErrWeakSecret
	}
	secretMu.Lock()
	jwtSecret = decoded
	secretMu.Unlock()
	return nil
}

func secret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}
