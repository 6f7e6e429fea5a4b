package catalog

import (
	"context"

	"github.com/rs/zerolog"
)

// ManufacturerService reads the manufacturer list
type ManufacturerService struct {
	client Requester
	logger zerolog.Logger
}

// NewManufacturerService creates a new manufacturer service
func NewManufacturerService(client Requester, logger zerolog.Logger) *ManufacturerService {
	return &ManufacturerService{client: client, logger: logger}
}

// All fetches every manufacturer
func (s *ManufacturerService) All(ctx context.Context) Result[[]Manufacturer] {
	var manufacturers []Manufacturer
	if err := s.client.Get(ctx, "/api/manufacturers", &manufacturers); err != nil {
		s.logger.Error().Err(err).Msg("Failed to get manufacturers")
		return Fail[[]Manufacturer](MsgManufacturersUnavailable)
	}
	if manufacturers == nil {
		manufacturers = []Manufacturer{}
	}

	s.logger.Debug().Msgf("Retrieved %d manufacturers", len(manufacturers))
	return Ok(manufacturers)
}
