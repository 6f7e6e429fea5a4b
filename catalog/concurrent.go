package catalog

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Services bundles the domain services sharing one requester
type Services struct {
	Figures       *FigureService
	Characters    *CharacterService
	Manufacturers *ManufacturerService
	logger        zerolog.Logger
}

// NewServices creates every service on top of the given requester
func NewServices(client Requester, logger zerolog.Logger) *Services {
	return &Services{
		Figures:       NewFigureService(client, logger),
		Characters:    NewCharacterService(client, logger),
		Manufacturers: NewManufacturerService(client, logger),
		logger:        logger,
	}
}

// FormOptions is the reference data the create and edit forms offer
type FormOptions struct {
	Characters    []Character
	Manufacturers []Manufacturer
	Types         []FigureType
}

// FigurePageData is everything the figure detail page renders
type FigurePageData struct {
	Figure FigureDetails
	FormOptions
}

// LoadFormOptions fetches characters, manufacturers and figure types concurrently.
// It fails when any of the three fails.
func (s *Services) LoadFormOptions(ctx context.Context) Result[FormOptions] {
	var (
		characters    Result[[]Character]
		manufacturers Result[[]Manufacturer]
		types         Result[[]FigureType]
	)

	var g errgroup.Group
	g.Go(func() error {
		characters = s.Characters.All(ctx)
		return nil
	})
	g.Go(func() error {
		manufacturers = s.Manufacturers.All(ctx)
		return nil
	})
	g.Go(func() error {
		types = s.Figures.Types(ctx)
		return nil
	})
	_ = g.Wait()

	if !characters.OK() || !manufacturers.OK() || !types.OK() {
		s.logger.Warn().
			Bool("characters", characters.OK()).
			Bool("manufacturers", manufacturers.OK()).
			Bool("types", types.OK()).
			Msg("Form options incomplete")
		return Fail[FormOptions](MsgFormOptionsUnavailable)
	}

	return Ok(FormOptions{
		Characters:    characters.Data,
		Manufacturers: manufacturers.Data,
		Types:         types.Data,
	})
}

// LoadFigurePage fetches a figure and the form options concurrently.
// A missing figure wins over missing options.
func (s *Services) LoadFigurePage(ctx context.Context, id string) Result[FigurePageData] {
	var (
		figure  Result[FigureDetails]
		options Result[FormOptions]
	)

	var g errgroup.Group
	g.Go(func() error {
		figure = s.Figures.ByID(ctx, id)
		return nil
	})
	g.Go(func() error {
		options = s.LoadFormOptions(ctx)
		return nil
	})
	_ = g.Wait()

	if !figure.OK() {
		return Fail[FigurePageData](figure.Message)
	}
	if !options.OK() {
		return Fail[FigurePageData](options.Message)
	}

	return Ok(FigurePageData{Figure: figure.Data, FormOptions: options.Data})
}
