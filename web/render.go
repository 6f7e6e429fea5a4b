package web

import (
	"embed"
	"html/template"
	"net/url"
	"strconv"

	"github.com/s0up4200/figureshelf/catalog"
)

//go:embed templates/*.html
var templateFS embed.FS

// DetailPlaceholderImageURL replaces a missing image on the detail page
const DetailPlaceholderImageURL = "https://via.placeholder.com/600x800.png?text=No+Image"

// parseTemplates builds the page templates. Images are routed through /img only when thumbs fetches their host.
func parseTemplates(thumbs *Thumbnailer) (*template.Template, error) {
	funcs := template.FuncMap{
		"thumb": func(src string, width int) string {
			if thumbs == nil || src == catalog.PlaceholderImageURL || src == DetailPlaceholderImageURL || !thumbs.Allows(src) {
				return src
			}
			q := url.Values{}
			q.Set("src", src)
			q.Set("w", strconv.Itoa(width))
			return "/img?" + q.Encode()
		},
		"dims": catalog.FormatDimensions,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"number": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', -1, 64)
		},
		"form":  newFormView,
		"blank": func() catalog.FigureDetails { return catalog.FigureDetails{} },
		"detailImage": func(f catalog.FigureDetails) string {
			if f.ImageURL == nil || *f.ImageURL == "" {
				return DetailPlaceholderImageURL
			}
			return *f.ImageURL
		},
	}

	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// formView feeds the shared figure form fields
type formView struct {
	Figure   catalog.FigureDetails
	Types    []catalog.FigureType
	Statuses []catalog.Status
}

// newFormView prefills the fields from figure. A new figure starts as Available.
func newFormView(figure catalog.FigureDetails, types []catalog.FigureType) formView {
	if figure.Status == "" {
		figure.Status = catalog.StatusAvailable
	}
	return formView{Figure: figure, Types: types, Statuses: catalog.Statuses}
}
