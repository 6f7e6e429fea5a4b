package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// CharacterService reads the character list
type CharacterService struct {
	client Requester
	logger zerolog.Logger
}

// NewCharacterService creates a new character service
func NewCharacterService(client Requester, logger zerolog.Logger) *CharacterService {
	return &CharacterService{client: client, logger: logger}
}

// All fetches every character
func (s *CharacterService) All(ctx context.Context) Result[[]Character] {
	var characters []Character
	if err := s.client.Get(ctx, "/api/characters", &characters); err != nil {
		s.logger.Error().Err(err).Msg("Failed to get characters")
		return Fail[[]Character](MsgCharactersUnavailable)
	}
	if characters == nil {
		characters = []Character{}
	}

	s.logger.Debug().Msgf("Retrieved %d characters", len(characters))
	return Ok(characters)
}
