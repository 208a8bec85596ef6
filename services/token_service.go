package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

// RevocationList remembers signed-out tokens until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type sessionClaims struct {
	UserID   string `json:"userID"`
	Username string `json:"username,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
type TokenService struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationList
	now     func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, revoked RevocationList) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
}

// Issue signs a token for identity.
func (s *TokenService) Issue(identity *models.Identity) (string, error) {
	if identity == nil || identity.UserID == "" {
		return "", errors.ErrInvalidInput.WithDetails("identity required")
	}
	now := s.now()
	claims := sessionClaims{
		UserID:   identity.UserID,
		Username: identity.Username,
		Provider: string(identity.Provider),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "JWT_ERROR", "Failed to generate token", http.StatusInternalServerError)
	}
	return tokenString, nil
}

func (s *TokenService) parse(tokenString string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAPIError("INVALID_TOKEN", "Unexpected signing method", http.StatusUnauthorized)
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return claims, err
	}
	if !token.Valid || claims.UserID == "" {
		return claims, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// Verify checks the signature, expiry and revocation of tokenString.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*models.Identity, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, errors.ErrUnauthorized.WithCause(err)
	}
	if s.revoked != nil && claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, errors.ErrUnavailable.WithCause(err)
		}
		if revoked {
			return nil, errors.ErrUnauthorized.WithDetails("token revoked")
		}
	}
	provider := models.ProviderKind(claims.Provider)
	if provider == "" {
		provider = models.ProviderToken
	}
	return &models.Identity{UserID: claims.UserID, Username: claims.Username, Provider: provider}, nil
}

// Revoke puts tokenString on the revocation list for the rest of its
// lifetime. Expired tokens need no revocation.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if stderrors.Is(err, jwt.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return errors.ErrInvalidInput.WithCause(err)
	}
	if s.revoked == nil || claims.ID == "" {
		return nil
	}
	ttl := s.ttl
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, ttl); err != nil {
		return errors.ErrUnavailable.WithCause(err)
	}
	return nil
}

// RedisRevocationList stores revoked token ids as expiring keys.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return r.client.Set(ctx, "revoked:"+tokenID, 1, ttl).Err()
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
