package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"medscan/models"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
	minPasswordLen  = 6
)

var (
	errUserExists         = errors.New("user already exists")
	errInvalidCredentials = errors.New("invalid credentials")
)

// RegisterUser creates an operator account with the operator role.
func RegisterUser(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username required")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password too short (min %d)", minPasswordLen)
	}
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return errUserExists
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	role, err := models.RoleByName(db, models.RoleOperator)
	if err != nil {
		return fmt.Errorf("operator role missing: %w", err)
	}
	user := models.User{Username: username, HashedPassword: hashedPassword, RoleID: &role.ID}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return errUserExists
		}
		return err
	}
	return nil
}

// Authenticate checks a username/password pair and returns the user with its
// role preloaded.
func Authenticate(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	if err := db.Preload("Role").Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, errInvalidCredentials
	}
	return user, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}

func signAccessToken(username, role string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

func hashRefreshToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// createAndStoreRefreshToken stores the hash of a fresh random token and
// returns the raw token.
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	rt := models.RefreshToken{UserID: userID, TokenHash: hashRefreshToken(token), ExpiresAt: time.Now().Add(refreshTokenTTL)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", hashRefreshToken(token)).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}
