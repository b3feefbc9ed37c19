package mockapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

type credentials struct {
	email string
	hash  []byte
}

func newCredentials(email, password string) (credentials, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return credentials{}, err
	}
	return credentials{email: strings.ToLower(email), hash: hash}, nil
}

func (c credentials) check(email, password string) bool {
	if !strings.EqualFold(strings.TrimSpace(email), c.email) {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}

// claims is the bearer token payload.
type claims struct {
	Email string `json:"email"`
	jwtlib.RegisteredClaims
}

func (s *Server) issueToken(email string) (string, error) {
	now := s.now()
	c := claims{
		Email: email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "paydesk-mockapi",
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(s.signingKey())
}

func (s *Server) parseToken(token string) (*claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return s.signingKey(), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return c, nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		c, err := s.parseToken(strings.TrimSpace(token))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
	})
}

func (s *Server) signingKey() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret
}

// RevokeAll invalidates every issued token by rotating the signing secret.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rotated := make([]byte, 0, len(s.secret)+32)
	rotated = append(rotated, s.secret...)
	s.secret = append(rotated, []byte(time.Now().String())...)
}
