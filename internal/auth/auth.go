// Package auth provides the session endpoints: signup, login, password
// reset, Google sign-in, and token verification. Accounts live in memory
// for the session's lifetime; the pipeline itself only consumes the
// resulting bearer token for request attribution.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL      = time.Hour
	resetTokenTTL = time.Hour

	maxBodyBytes = 1 << 20
)

var (
	errInvalidCredentials = errors.New("invalid email or password")
	errEmailTaken         = errors.New("an account with this email already exists")
)

// User is one stored account. PasswordHash is empty for Google-only
// accounts.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	GoogleID     string
	CreatedAt    time.Time
}

type resetToken struct {
	userID    string
	expiresAt time.Time
}

// Service owns the account store and signs session tokens.
type Service struct {
	mu     sync.RWMutex
	users  map[string]*User // keyed by lower-cased email
	resets map[string]resetToken

	secret []byte
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(secret string, log zerolog.Logger) *Service {
	return &Service{
		users:  make(map[string]*User),
		resets: make(map[string]resetToken),
		secret: []byte(secret),
		now:    time.Now,
		log:    log,
	}
}

// ---------- core operations ----------

func (s *Service) Signup(email, password, name string) (*User, string, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", errors.New("a valid email is required")
	}
	if len(password) < 8 {
		return nil, "", errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return nil, "", errEmailTaken
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	s.users[email] = u

	token, err := s.signToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) Login(email, password string) (*User, string, error) {
	s.mu.RLock()
	u, ok := s.users[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok || len(u.PasswordHash) == 0 {
		return nil, "", errInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, "", errInvalidCredentials
	}
	token, err := s.signToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// ForgotPassword mints a one-hour reset token. The token is returned to
// the caller for delivery; an unknown email returns empty without error
// so the endpoint does not confirm account existence.
func (s *Service) ForgotPassword(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return ""
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	token := hex.EncodeToString(buf)
	s.resets[token] = resetToken{userID: u.ID, expiresAt: s.now().Add(resetTokenTTL)}
	return token
}

func (s *Service) ResetPassword(token, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.resets[token]
	if !ok || s.now().After(rt.expiresAt) {
		delete(s.resets, token)
		return errors.New("reset token is invalid or expired")
	}
	delete(s.resets, token)

	for _, u := range s.users {
		if u.ID == rt.userID {
			hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			u.PasswordHash = hash
			return nil
		}
	}
	return errors.New("account no longer exists")
}

// GoogleLogin finds or creates the account for an externally verified
// Google identity and issues a session token.
func (s *Service) GoogleLogin(email, name, googleID string) (*User, string, error) {
	email = normalizeEmail(email)
	if email == "" || googleID == "" {
		return nil, "", errors.New("google identity incomplete")
	}

	s.mu.Lock()
	u, ok := s.users[email]
	if !ok {
		u = &User{
			ID:        uuid.NewString(),
			Email:     email,
			Name:      name,
			GoogleID:  googleID,
			CreatedAt: s.now(),
		}
		s.users[email] = u
	} else if u.GoogleID == "" {
		u.GoogleID = googleID
	}
	s.mu.Unlock()

	token, err := s.signToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// VerifyToken validates a session token and returns its account.
func (s *Service) VerifyToken(tokenString string) (*User, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New("token is invalid or expired")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("token is invalid or expired")
	}
	email, _ := claims["email"].(string)

	s.mu.RLock()
	u, found := s.users[normalizeEmail(email)]
	s.mu.RUnlock()
	if !found {
		return nil, errors.New("account no longer exists")
	}
	return u, nil
}

func (s *Service) signToken(u *User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---------- HTTP handlers ----------

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Service) HandleSignup(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody[credentialsBody](r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	u, token, err := s.Signup(body.Email, body.Password, body.Name)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errEmailTaken) {
			status = http.StatusConflict
		}
		writeErr(w, status, "signup_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse(u, token))
}

func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody[credentialsBody](r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	u, token, err := s.Login(body.Email, body.Password)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(u, token))
}

func (s *Service) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody[credentialsBody](r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	token := s.ForgotPassword(body.Email)
	if token != "" {
		s.log.Info().Str("email", normalizeEmail(body.Email)).Msg("password reset token issued")
	}
	// Same response either way: the endpoint must not leak which emails
	// have accounts.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "If that account exists, a reset link has been sent.",
	})
}

func (s *Service) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody[struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}](r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.ResetPassword(body.Token, body.NewPassword); err != nil {
		writeErr(w, http.StatusBadRequest, "reset_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Service) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := parseBody[struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		GoogleID string `json:"googleId"`
	}](r)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	u, token, err := s.GoogleLogin(body.Email, body.Name, body.GoogleID)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(u, token))
}

func (s *Service) HandleVerifyToken(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
		return
	}
	u, err := s.VerifyToken(token)
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    publicUser(u),
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func sessionResponse(u *User, token string) map[string]any {
	return map[string]any{
		"success": true,
		"token":   token,
		"user":    publicUser(u),
	}
}

func publicUser(u *User) map[string]any {
	return map[string]any{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
	}
}

func parseBody[T any](r *http.Request) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid request body")
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
