package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/storage"
)

// authServiceImpl is the identity adapter. The rest of the engine only
// ever sees the resolved Principal it produces; credentials never cross
// the service boundary.
type authServiceImpl struct {
	logger            zerolog.Logger
	store             storage.Store
	jwtIssuer         string
	jwtSigningKey     []byte
	jwtAccessTokenTTL time.Duration
}

func NewAuthService(
	logger zerolog.Logger,
	store storage.Store,
	jwtIssuer string,
	jwtSigningKey []byte,
	jwtAccessTokenTTL time.Duration,
) AuthService {
	return &authServiceImpl{
		logger:            logger,
		store:             store,
		jwtIssuer:         jwtIssuer,
		jwtSigningKey:     jwtSigningKey,
		jwtAccessTokenTTL: jwtAccessTokenTTL,
	}
}

func (s *authServiceImpl) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if params.Email == "" || params.Password == "" || params.Name == "" {
		return nil, newValidationError("email, name and password are required")
	}

	hash, err := argon2id.CreateHash(params.Password, argon2id.DefaultParams)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to hash password")
		return nil, err
	}

	principalUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate user uuid")
		return nil, err
	}

	now := time.Now()
	principal := &models.Principal{
		ID:        principalUUID.String(),
		Email:     params.Email,
		Name:      params.Name,
		Password:  hash,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.CreatePrincipal(ctx, principal)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			s.logger.Error().
				Str("email", principal.Email).
				Msg("user with this email already exists")
			return nil, ErrEmailTaken
		}
		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}
	s.logger.Debug().
		Str("user_id", principal.ID).
		Msg("inserted user")

	result, err := s.authResult(principal)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", principal.ID).
		Msg("registered user")
	return result, nil
}

func (s *authServiceImpl) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	principal, err := s.store.GetPrincipalByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().
				Str("email", params.Email).
				Msg("user not found")
			return nil, ErrPrincipalNotFound
		}
		s.logger.Error().
			Err(err).
			Str("email", params.Email).
			Msg("failed to select user by email")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}

	match, err := argon2id.ComparePasswordAndHash(params.Password, principal.Password)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to compare password")
		return nil, err
	} else if !match {
		s.logger.Error().Msg("passwords do not match")
		return nil, ErrPasswordMismatch
	}

	result, err := s.authResult(principal)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("user_id", principal.ID).
		Msg("logged in user")
	return result, nil
}

func (s *authServiceImpl) ParseAccessToken(tokenString string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSigningKey, nil
	},
		jwt.WithIssuer(s.jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse token claims")
	}
	return claims, nil
}

func (s *authServiceImpl) authResult(principal *models.Principal) (*AuthResult, error) {
	now := time.Now()
	expiresAt := now.Add(s.jwtAccessTokenTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    s.jwtIssuer,
		Subject:   principal.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.jwtSigningKey)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to sign access token")
		return nil, err
	}

	return &AuthResult{
		Principal:            principal,
		AccessToken:          signed,
		AccessTokenExpiresAt: expiresAt,
	}, nil
}
