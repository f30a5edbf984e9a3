package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpiry        = 7 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

// Auth handles account registration, login and token validation. The
// room core never sees it; connections arrive with a verified identity.
type Auth struct {
	db        *DB
	jwtSecret []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			logger.Warnw("could not persist JWT secret", "err", err)
		}
	}
	return secret
}

// Register creates a new account and returns its id and a signed token.
func (a *Auth) Register(email, username, password string) (string, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if !strings.Contains(email, "@") {
		return "", "", fmt.Errorf("invalid email address")
	}
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return "", "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	if exists, err := a.db.EmailExists(email); err != nil {
		return "", "", fmt.Errorf("database error")
	} else if exists {
		return "", "", fmt.Errorf("email already registered")
	}
	if exists, err := a.db.UsernameExists(username); err != nil {
		return "", "", fmt.Errorf("database error")
	} else if exists {
		return "", "", fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}

	id, err := a.db.CreateUser(email, username, string(hash))
	if err != nil {
		return "", "", fmt.Errorf("failed to create account")
	}

	token, err := a.generateToken(id, username)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

// Login authenticates by email and returns the user id and a signed token.
func (a *Auth) Login(email, password, ip string) (string, string, error) {
	if !a.checkRate(ip) {
		return "", "", fmt.Errorf("too many login attempts, try again later")
	}

	user, err := a.db.GetUserByEmail(strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return "", "", fmt.Errorf("database error")
	}
	if user == nil || user.PassHash == "" {
		return "", "", fmt.Errorf("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		return "", "", fmt.Errorf("invalid email or password")
	}

	token, err := a.generateToken(user.ID, user.Username)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}
	return user.ID, token, nil
}

// ValidateToken validates a JWT and returns (userID, username, error)
func (a *Auth) ValidateToken(tokenStr string) (string, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}
	uid, ok := claims["uid"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}
	return uid, username, nil
}

func (a *Auth) generateToken(userID, username string) (string, error) {
	claims := jwt.MapClaims{
		"uid": userID,
		"usr": username,
		"exp": time.Now().Add(jwtExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
