package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/taskshare/taskshare/internal/models"
	"github.com/taskshare/taskshare/internal/storage"
)

const (
	searchResultLimit    = 10
	minSearchQueryLength = 2
)

type principalServiceImpl struct {
	logger zerolog.Logger
	store  storage.Store
}

func NewPrincipalService(logger zerolog.Logger, store storage.Store) PrincipalService {
	return &principalServiceImpl{
		logger: logger,
		store:  store,
	}
}

func (s *principalServiceImpl) GetByID(ctx context.Context, id string) (*models.Principal, error) {
	principal, err := s.store.GetPrincipalByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		s.logger.Error().
			Err(err).
			Str("user_id", id).
			Msg("failed to get principal")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}
	return principal, nil
}

func (s *principalServiceImpl) Search(ctx context.Context, requesterID, query string) ([]models.PrincipalSummary, error) {
	// Short queries would leak the whole catalog one page at a time.
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSearchQueryLength {
		return []models.PrincipalSummary{}, nil
	}

	principals, err := s.store.SearchPrincipals(ctx, requesterID, query, searchResultLimit)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("query", query).
			Msg("failed to search principals")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}

	summaries := make([]models.PrincipalSummary, 0, len(principals))
	for _, principal := range principals {
		summaries = append(summaries, principal.Summary())
	}
	s.logger.Debug().
		Int("count", len(summaries)).
		Msg("searched principals")
	return summaries, nil
}

func (s *principalServiceImpl) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.Principal, error) {
	principal, err := s.GetByID(ctx, params.ActorID)
	if err != nil {
		return nil, err
	}

	if params.Name == nil && params.AvatarURL == nil {
		return nil, newValidationError("no valid fields to update")
	}
	if params.Name != nil {
		if *params.Name == "" {
			return nil, newValidationError("name is required")
		}
		principal.Name = *params.Name
	}
	if params.AvatarURL != nil {
		principal.AvatarURL = *params.AvatarURL
	}
	principal.UpdatedAt = time.Now()

	err = s.store.UpdatePrincipalProfile(ctx, principal)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", principal.ID).
			Msg("failed to update profile")
		return nil, mapStorageError(err, ErrPrincipalNotFound)
	}

	s.logger.Info().
		Str("user_id", principal.ID).
		Msg("updated profile")
	return principal, nil
}
