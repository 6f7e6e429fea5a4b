package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// DefaultPageLimit is the listing page size when none is given
const DefaultPageLimit = 8

const figuresEndpoint = "/api/figures"

// ErrSealed is logged when a write targets a figure already known to be sealed
var ErrSealed = errors.New("figure is sealed")

// inputValidator is shared by every service; validator caches struct metadata per instance
var inputValidator = validator.New(validator.WithRequiredStructEnabled())

// FigureService maps figure endpoints onto typed results
type FigureService struct {
	client   Requester
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewFigureService creates a new figure service
func NewFigureService(client Requester, logger zerolog.Logger) *FigureService {
	return &FigureService{
		client:   client,
		validate: inputValidator,
		logger:   logger,
	}
}

// Paginated fetches one page of figure cards.
// HasMore is true while the requested page is before the last reported page.
func (s *FigureService) Paginated(ctx context.Context, q PageQuery) Result[FigurePage] {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}

	endpoint := fmt.Sprintf("%s?page=%d&pageSize=%d", figuresEndpoint, q.Page, q.Limit)

	var resp figurePageResponse
	if err := s.client.Get(ctx, endpoint, &resp); err != nil {
		s.logger.Error().Err(err).Int("page", q.Page).Int("limit", q.Limit).Msg("Failed to get figures")
		return Fail[FigurePage](MsgFiguresUnavailable)
	}

	figures := make([]FigureCard, 0, len(resp.Items))
	for _, item := range resp.Items {
		figures = append(figures, item.toCard())
	}

	s.logger.Debug().
		Int("page", q.Page).
		Int("count", len(figures)).
		Int("total_pages", resp.TotalPages).
		Msg("Retrieved figure page")

	return Ok(FigurePage{
		Figures: figures,
		Pagination: Pagination{
			CurrentPage: resp.PageNumber,
			HasMore:     q.Page < resp.TotalPages,
			TotalCount:  resp.TotalCount,
			TotalPages:  resp.TotalPages,
		},
	})
}

// ByID fetches a single figure
func (s *FigureService) ByID(ctx context.Context, id string) Result[FigureDetails] {
	if id == "" {
		return Fail[FigureDetails](MsgFigureNotFound)
	}

	var figure FigureDetails
	if err := s.client.Get(ctx, joinPath(figuresEndpoint, id), &figure); err != nil {
		s.logger.Error().Err(err).Str("figure_id", id).Msg("Failed to get figure")
		return Fail[FigureDetails](MsgFigureNotFound)
	}
	return Ok(figure)
}

// Types fetches the figure type catalog
func (s *FigureService) Types(ctx context.Context) Result[[]FigureType] {
	var types []FigureType
	if err := s.client.Get(ctx, joinPath(figuresEndpoint, "types"), &types); err != nil {
		s.logger.Error().Err(err).Msg("Failed to get figure types")
		return Fail[[]FigureType](MsgTypesUnavailable)
	}
	if types == nil {
		types = []FigureType{}
	}
	return Ok(types)
}

// Create validates the input and creates a figure. An empty status defaults to Available.
func (s *FigureService) Create(ctx context.Context, in CreateFigureInput) Result[FigureDetails] {
	if in.Status == "" {
		in.Status = StatusAvailable
	}
	if err := s.validate.Struct(in); err != nil {
		s.logger.Warn().Err(err).Msg("Rejected invalid figure")
		return Fail[FigureDetails](MsgInvalidFigure)
	}
	if in.Dimensions.Empty() {
		in.Dimensions = nil
	}

	var figure FigureDetails
	if err := s.client.Post(ctx, figuresEndpoint, in, &figure); err != nil {
		s.logger.Error().Err(err).Str("name", in.Name).Msg("Failed to create figure")
		return Fail[FigureDetails](MsgCreateFailed)
	}

	s.logger.Info().Str("figure_id", figure.ID).Str("name", figure.Name).Msg("Created figure")
	return Ok(figure)
}

// Update applies a partial update to the figure with the given id
func (s *FigureService) Update(ctx context.Context, id string, in UpdateFigureInput) Result[FigureDetails] {
	if id == "" {
		return Fail[FigureDetails](MsgUpdateFailed)
	}
	if err := s.validate.Struct(in); err != nil {
		s.logger.Warn().Err(err).Str("figure_id", id).Msg("Rejected invalid figure update")
		return Fail[FigureDetails](MsgUpdateFailed)
	}
	if in.Dimensions.Empty() {
		in.Dimensions = nil
	}

	var figure FigureDetails
	if err := s.client.Put(ctx, joinPath(figuresEndpoint, id), in, &figure); err != nil {
		s.logger.Error().Err(err).Str("figure_id", id).Msg("Failed to update figure")
		return Fail[FigureDetails](MsgUpdateFailed)
	}

	s.logger.Info().Str("figure_id", id).Msg("Updated figure")
	return Ok(figure)
}

// UpdateLoaded updates a figure the caller has already loaded.
// Sealed figures are refused without contacting the backend.
func (s *FigureService) UpdateLoaded(ctx context.Context, current FigureDetails, in UpdateFigureInput) Result[FigureDetails] {
	if current.IsSealed {
		s.logger.Warn().Err(ErrSealed).Str("figure_id", current.ID).Msg("Refusing to update figure")
		return Fail[FigureDetails](MsgFigureSealed)
	}
	return s.Update(ctx, current.ID, in)
}

// Seal marks a figure as sealed. The backend answers with 204 or an ignored body.
func (s *FigureService) Seal(ctx context.Context, id string) Result[Unit] {
	if id == "" {
		return Fail[Unit](MsgSealFailed)
	}
	if err := s.client.Post(ctx, joinPath(figuresEndpoint, id, "seal"), struct{}{}, nil); err != nil {
		s.logger.Error().Err(err).Str("figure_id", id).Msg("Failed to seal figure")
		return Fail[Unit](MsgSealFailed)
	}

	s.logger.Info().Str("figure_id", id).Msg("Sealed figure")
	return Ok(Unit{})
}

// SealLoaded seals a figure the caller has already loaded, refusing one that is sealed
func (s *FigureService) SealLoaded(ctx context.Context, current FigureDetails) Result[Unit] {
	if current.IsSealed {
		s.logger.Warn().Err(ErrSealed).Str("figure_id", current.ID).Msg("Refusing to seal figure twice")
		return Fail[Unit](MsgFigureSealed)
	}
	return s.Seal(ctx, current.ID)
}
