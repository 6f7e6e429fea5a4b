package web

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/s0up4200/figureshelf/catalog"
)

// FieldErrors maps a form field name to a message
type FieldErrors map[string]string

// figureFields are the inputs the create and edit forms share.
// Numbers arrive as text so an empty input stays unset.
type figureFields struct {
	Description string `form:"description"`
	Status      string `form:"status" binding:"omitempty,oneof=Preorder Available Archived"`
	FigureType  string `form:"figureType"`
	HeightCm    string `form:"heightCm" binding:"omitempty,numeric"`
	WidthCm     string `form:"widthCm" binding:"omitempty,numeric"`
	LengthCm    string `form:"lengthCm" binding:"omitempty,numeric"`
	Weight      string `form:"weight" binding:"omitempty,numeric"`
	ImageURL    string `form:"imageUrl" binding:"omitempty,url"`
	ScaleRatio  string `form:"scaleRatio"`
}

func (f figureFields) dimensions() *catalog.Dimensions {
	d := &catalog.Dimensions{
		HeightCm: optionalFloat(f.HeightCm),
		WidthCm:  optionalFloat(f.WidthCm),
		LengthCm: optionalFloat(f.LengthCm),
	}
	if d.Empty() {
		return nil
	}
	return d
}

// createForm is the new figure form
type createForm struct {
	Name           string `form:"name" binding:"required"`
	CharacterID    string `form:"characterId" binding:"required"`
	ManufacturerID string `form:"manufacturerId" binding:"required"`
	figureFields
}

func (f createForm) input() catalog.CreateFigureInput {
	return catalog.CreateFigureInput{
		Name:           strings.TrimSpace(f.Name),
		CharacterID:    f.CharacterID,
		ManufacturerID: f.ManufacturerID,
		Description:    strings.TrimSpace(f.Description),
		Status:         catalog.Status(f.Status),
		FigureType:     f.FigureType,
		Dimensions:     f.dimensions(),
		Weight:         optionalFloat(f.Weight),
		ImageURL:       strings.TrimSpace(f.ImageURL),
		ScaleRatio:     strings.TrimSpace(f.ScaleRatio),
	}
}

// editForm is the figure edit form. Character and manufacturer are fixed after creation.
type editForm struct {
	Name string `form:"name" binding:"required"`
	figureFields
}

// input maps the form onto a partial update. Empty optional inputs leave the field unchanged.
func (f editForm) input() catalog.UpdateFigureInput {
	in := catalog.UpdateFigureInput{
		Name:        optionalString(f.Name),
		Description: optionalString(f.Description),
		FigureType:  optionalString(f.FigureType),
		Dimensions:  f.dimensions(),
		Weight:      optionalFloat(f.Weight),
		ImageURL:    optionalString(f.ImageURL),
		ScaleRatio:  optionalString(f.ScaleRatio),
	}
	if f.Status != "" {
		status := catalog.Status(f.Status)
		in.Status = &status
	}
	return in
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// fromBindError converts a bind or validation error into per-field messages keyed by form tag
func fromBindError(err error, dst any) FieldErrors {
	out := FieldErrors{}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fieldKey(dst, fe.StructField())] = messageForTag(fe.Tag(), fe.Param())
		}
		return out
	}

	out["_"] = "The form data is invalid."
	return out
}

func fieldKey(dst any, structField string) string {
	t := reflect.TypeOf(dst)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return strings.ToLower(structField)
	}

	f, ok := t.FieldByName(structField)
	if !ok {
		return strings.ToLower(structField)
	}
	tag := f.Tag.Get("form")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" || tag == "-" {
		return strings.ToLower(structField)
	}
	return tag
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "This field is required."
	case "numeric":
		return "Enter a number."
	case "url":
		return "Enter a valid URL."
	case "oneof":
		return "Choose one of: " + param + "."
	default:
		return "Invalid value."
	}
}
