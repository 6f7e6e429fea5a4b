// Package catalog maps the figure backend onto typed results for the presentation layer.
package catalog

import (
	"fmt"
)

// Status is the lifecycle state of a figure
type Status string

const (
	StatusPreorder  Status = "Preorder"
	StatusAvailable Status = "Available"
	StatusArchived  Status = "Archived"
)

// Statuses lists every valid status in display order
var Statuses = []Status{StatusPreorder, StatusAvailable, StatusArchived}

// ParseStatus converts a raw string into a Status
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("invalid figure status %q", s)
	}
	return status, nil
}

// Valid checks if the status is one of the known values
func (s Status) Valid() bool {
	switch s {
	case StatusPreorder, StatusAvailable, StatusArchived:
		return true
	}
	return false
}

// PlaceholderImageURL replaces a missing image on figure cards
const PlaceholderImageURL = "https://via.placeholder.com/300x400.png?text=No+Image"

// Dimensions are physical measurements in centimetres. Each one may be missing.
type Dimensions struct {
	HeightCm *float64 `json:"heightCm,omitempty"`
	WidthCm  *float64 `json:"widthCm,omitempty"`
	LengthCm *float64 `json:"lengthCm,omitempty"`
}

// Empty reports whether no measurement is set
func (d *Dimensions) Empty() bool {
	return d == nil || (d.HeightCm == nil && d.WidthCm == nil && d.LengthCm == nil)
}

// FigureCard is the listing view of a figure
type FigureCard struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ImageURL         string `json:"imageUrl"`
	ManufacturerName string `json:"manufacturerName"`
	IsSealed         bool   `json:"isSealed"`
	Status           Status `json:"status"`
}

// FigureDetails is the full view of a single figure
type FigureDetails struct {
	ID               string      `json:"id" validate:"required"`
	Name             string      `json:"name" validate:"required"`
	CharacterName    string      `json:"characterName"`
	ManufacturerName string      `json:"manufacturerName"`
	Description      *string     `json:"description"`
	FigureType       string      `json:"figureType"`
	IsSealed         bool        `json:"isSealed"`
	Dimensions       *Dimensions `json:"dimensions"`
	Status           Status      `json:"status" validate:"oneof=Preorder Available Archived"`
	Weight           *float64    `json:"weight"`
	ImageURL         *string     `json:"imageUrl"`
	ScaleRatio       *string     `json:"scaleRatio"`
}

// FigureType is a catalog value describing the kind of figure
type FigureType struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Character is read-only reference data
type Character struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	FranchiseName string `json:"franchiseName"`
}

// Manufacturer is read-only reference data
type Manufacturer struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// CreateFigureInput is the payload for a new figure
type CreateFigureInput struct {
	Name           string      `json:"name" validate:"required"`
	CharacterID    string      `json:"characterId" validate:"required"`
	ManufacturerID string      `json:"manufacturerId" validate:"required"`
	Description    string      `json:"description,omitempty"`
	Status         Status      `json:"status" validate:"oneof=Preorder Available Archived"`
	FigureType     string      `json:"figureType"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Weight         *float64    `json:"weight,omitempty"`
	ImageURL       string      `json:"imageUrl,omitempty"`
	ScaleRatio     string      `json:"scaleRatio,omitempty"`
}

// UpdateFigureInput is a partial update. Nil fields are left unchanged.
type UpdateFigureInput struct {
	Name           *string     `json:"name,omitempty" validate:"omitempty,min=1"`
	CharacterID    *string     `json:"characterId,omitempty"`
	ManufacturerID *string     `json:"manufacturerId,omitempty"`
	Description    *string     `json:"description,omitempty"`
	Status         *Status     `json:"status,omitempty" validate:"omitempty,oneof=Preorder Available Archived"`
	FigureType     *string     `json:"figureType,omitempty"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	Weight         *float64    `json:"weight,omitempty"`
	ImageURL       *string     `json:"imageUrl,omitempty"`
	ScaleRatio     *string     `json:"scaleRatio,omitempty"`
}

// PageQuery selects a page of the figure listing
type PageQuery struct {
	Page  int
	Limit int
}

// Pagination describes where a page sits in the listing
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	HasMore     bool `json:"hasMore"`
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
}

// FigurePage is one page of figure cards
type FigurePage struct {
	Figures    []FigureCard `json:"figures"`
	Pagination Pagination   `json:"pagination"`
}

// figureItem is a listing entry as the backend sends it
type figureItem struct {
	ID               string  `json:"id" validate:"required"`
	Name             string  `json:"name" validate:"required"`
	ManufacturerName string  `json:"manufacturerName"`
	Status           Status  `json:"status" validate:"oneof=Preorder Available Archived"`
	ImageURL         *string `json:"imageUrl"`
	IsSealed         *bool   `json:"isSealed"`
}

// figurePageResponse is the backend's paginated listing envelope
type figurePageResponse struct {
	Items      []figureItem `json:"items" validate:"required,dive"`
	PageNumber int          `json:"pageNumber"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
	TotalCount int          `json:"totalCount"`
}

func (i figureItem) toCard() FigureCard {
	card := FigureCard{
		ID:               i.ID,
		Name:             i.Name,
		ManufacturerName: i.ManufacturerName,
		Status:           i.Status,
		ImageURL:         PlaceholderImageURL,
	}
	// only a missing image gets the placeholder, an empty string is kept
	if i.ImageURL != nil {
		card.ImageURL = *i.ImageURL
	}
	if i.IsSealed != nil {
		card.IsSealed = *i.IsSealed
	}
	return card
}
