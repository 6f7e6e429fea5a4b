package catalog

import (
	"context"
	"net/url"
	"strings"
)

// Requester is the subset of the API client the services need
type Requester interface {
	Get(ctx context.Context, endpoint string, out any) error
	Post(ctx context.Context, endpoint string, body, out any) error
	Put(ctx context.Context, endpoint string, body, out any) error
}

// FigureFormatter renders catalog data for console output
type FigureFormatter interface {
	FormatFigureList(page FigurePage, options FormatOptions) string
	FormatFigureDetails(figure FigureDetails) string
	FormatFigureTypes(types []FigureType) string
	FormatCharacters(characters []Character) string
	FormatManufacturers(manufacturers []Manufacturer) string
}

// FormatOptions contains options for formatting output
type FormatOptions struct {
	ShowSealed bool
	ShowImages bool
}

// joinPath builds an endpoint like /api/figures/{id}/seal from escaped segments
func joinPath(base string, segments ...string) string {
	var sb strings.Builder
	sb.WriteString(base)
	for _, s := range segments {
		sb.WriteByte('/')
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}
