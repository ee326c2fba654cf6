package jwt

import (
	"errors"
	"slices"
	"time"

	customErrors "github.com/peitalin/dt-auth-service/internal/domain/user/errors"
	domainjwt "github.com/peitalin/dt-auth-service/internal/domain/user/jwt"
	"github.com/peitalin/dt-auth-service/internal/infra/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HMACTokenService signs session tokens with a process-wide HS256 secret.
type HMACTokenService struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	leeway   time.Duration
	now      func() time.Time
}

var _ domainjwt.TokenService = (*HMACTokenService)(nil)

func NewTokenService(cfg *config.Config) (*HMACTokenService, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, customErrors.NewInvalidArgument("empty jwt secret")
	}
	if cfg.SessionTTL <= 0 {
		return nil, customErrors.NewInvalidArgument("session ttl must be positive")
	}
	return &HMACTokenService{
		secret:   []byte(cfg.JWTSecret),
		ttl:      cfg.SessionTTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   30 * time.Second,
		now:      time.Now,
	}, nil
}

func (s *HMACTokenService) TTL() time.Duration { return s.ttl }

func (s *HMACTokenService) Issue(userID uuid.UUID, email string) (string, domainjwt.SessionClaims, error) {
	now := s.now()
	claims := domainjwt.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		UserID: userID.String(),
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domainjwt.SessionClaims{}, customErrors.WrapInternal(err, "sign session token")
	}
	return signed, claims, nil
}

func (s *HMACTokenService) Verify(raw string) (string, error) {
	claims, err := s.Decode(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *HMACTokenService) Decode(raw string) (domainjwt.SessionClaims, error) {
	if raw == "" {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(raw, &domainjwt.SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, customErrors.ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return domainjwt.SessionClaims{}, customErrors.ErrExpiredToken
	}
	if err != nil || !token.Valid {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*domainjwt.SessionClaims)
	if !ok {
		return domainjwt.SessionClaims{}, customErrors.WrapInternal(
			errors.New("claims not SessionClaims"), "Decode",
		)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}
	if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}
	if _, err := claims.UID(); err != nil {
		return domainjwt.SessionClaims{}, customErrors.ErrInvalidToken
	}

	return *claims, nil
}
