package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// ConsoleFormatter provides console output formatting for catalog data
type ConsoleFormatter struct{}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{}
}

// FormatFigureList formats a page of figures for console display.
// Sealed figures are hidden unless options.ShowSealed is set.
func (f *ConsoleFormatter) FormatFigureList(page FigurePage, options FormatOptions) string {
	figures := page.Figures
	if !options.ShowSealed {
		figures = Unsealed(figures)
	}
	if len(figures) == 0 {
		return "No figures found"
	}

	var sb strings.Builder

	sb.WriteString("\nFigure")
	if len(figures) != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, " (%d, page %d of %d):\n\n", len(figures), page.Pagination.CurrentPage, page.Pagination.TotalPages)

	for i, figure := range figures {
		isLast := i == len(figures)-1
		prefix := "├"
		indent := "│   "
		if isLast {
			prefix = "╰"
			indent = "    "
		}

		fmt.Fprintf(&sb, "%s── %s", prefix, figure.Name)
		if figure.IsSealed {
			sb.WriteString(" [SEALED]")
		}
		sb.WriteString("\n")

		fmt.Fprintf(&sb, "%sID: %s\n", indent, figure.ID)
		fmt.Fprintf(&sb, "%sManufacturer: %s | Status: %s\n", indent, figure.ManufacturerName, figure.Status)
		if options.ShowImages {
			fmt.Fprintf(&sb, "%sImage: %s\n", indent, figure.ImageURL)
		}

		if !isLast {
			sb.WriteString("│\n")
		}
	}

	if page.Pagination.HasMore {
		fmt.Fprintf(&sb, "\nMore figures available (%d total)\n", page.Pagination.TotalCount)
	}

	sb.WriteString("\n")
	return sb.String()
}

// FormatFigureDetails formats a single figure
func (f *ConsoleFormatter) FormatFigureDetails(figure FigureDetails) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\n%s", figure.Name)
	if figure.IsSealed {
		sb.WriteString(" [SEALED]")
	}
	sb.WriteString("\n")

	rows := [][2]string{
		{"ID", figure.ID},
		{"Character", figure.CharacterName},
		{"Manufacturer", figure.ManufacturerName},
		{"Type", figure.FigureType},
		{"Status", string(figure.Status)},
	}
	if figure.ScaleRatio != nil && *figure.ScaleRatio != "" {
		rows = append(rows, [2]string{"Scale", *figure.ScaleRatio})
	}
	if figure.Weight != nil {
		rows = append(rows, [2]string{"Weight", formatNumber(*figure.Weight) + " g"})
	}
	if dims := FormatDimensions(figure.Dimensions); dims != "" {
		rows = append(rows, [2]string{"Dimensions", dims})
	}
	if figure.ImageURL != nil && *figure.ImageURL != "" {
		rows = append(rows, [2]string{"Image", *figure.ImageURL})
	}
	if figure.Description != nil && *figure.Description != "" {
		rows = append(rows, [2]string{"Description", *figure.Description})
	}

	for i, row := range rows {
		prefix := "├"
		if i == len(rows)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s: %s\n", prefix, row[0], row[1])
	}

	return sb.String()
}

// FormatFigureTypes formats the figure type catalog
func (f *ConsoleFormatter) FormatFigureTypes(types []FigureType) string {
	if len(types) == 0 {
		return "No figure types found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nFigure types (%d):\n\n", len(types))
	for i, t := range types {
		prefix := "├"
		if i == len(types)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s", prefix, t.Name)
		if t.Description != "" {
			fmt.Fprintf(&sb, ": %s", t.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatCharacters formats the character list
func (f *ConsoleFormatter) FormatCharacters(characters []Character) string {
	if len(characters) == 0 {
		return "No characters found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nCharacters (%d):\n\n", len(characters))
	for i, c := range characters {
		prefix := "├"
		if i == len(characters)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s (%s) [%s]\n", prefix, c.Name, c.FranchiseName, c.ID)
	}
	return sb.String()
}

// FormatManufacturers formats the manufacturer list
func (f *ConsoleFormatter) FormatManufacturers(manufacturers []Manufacturer) string {
	if len(manufacturers) == 0 {
		return "No manufacturers found"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\nManufacturers (%d):\n\n", len(manufacturers))
	for i, m := range manufacturers {
		prefix := "├"
		if i == len(manufacturers)-1 {
			prefix = "╰"
		}
		fmt.Fprintf(&sb, "%s── %s [%s]\n", prefix, m.Name, m.ID)
	}
	return sb.String()
}

// FormatDimensions renders the set measurements as "H 24 x W 10 cm".
// It returns an empty string when nothing is set.
func FormatDimensions(d *Dimensions) string {
	if d.Empty() {
		return ""
	}

	var parts []string
	if d.HeightCm != nil {
		parts = append(parts, "H "+formatNumber(*d.HeightCm))
	}
	if d.WidthCm != nil {
		parts = append(parts, "W "+formatNumber(*d.WidthCm))
	}
	if d.LengthCm != nil {
		parts = append(parts, "L "+formatNumber(*d.LengthCm))
	}
	return strings.Join(parts, " x ") + " cm"
}

// Unsealed returns the figures that are not sealed
func Unsealed(figures []FigureCard) []FigureCard {
	out := make([]FigureCard, 0, len(figures))
	for _, fig := range figures {
		if !fig.IsSealed {
			out = append(out, fig)
		}
	}
	return out
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
