package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/feed"
	"github.com/s0up4200/figureshelf/filter"
)

const (
	// HeaderHasMore tells the scroll script whether another page exists
	HeaderHasMore = "X-Has-More"
	// HeaderItemCount is the number of cards the backend returned, before search narrowing
	HeaderItemCount = "X-Item-Count"
)

type indexPage struct {
	Title      string
	Figures    []catalog.FigureCard
	HasMore    bool
	NextPage   int
	Query      string
	Preset     string
	Presets    []string
	ShowSealed bool
	// Options is nil when the create form cannot be offered
	Options  *catalog.FormOptions
	Statuses []catalog.Status
	Message  string
}

type detailPage struct {
	Title    string
	Figure   catalog.FigureDetails
	Options  catalog.FormOptions
	Editable bool
	Statuses []catalog.Status
}

type messagePage struct {
	Title   string
	Message string
	Fields  FieldErrors
	Back    string
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// index renders page one of the collection and the create form
func (s *Server) index(c *gin.Context) {
	svc, creds := s.services(c)

	var (
		page    catalog.Result[catalog.FigurePage]
		options catalog.Result[catalog.FormOptions]
	)
	// loads report failure through their results, nothing cancels the sibling
	var g errgroup.Group
	ctx := c.Request.Context()
	g.Go(func() error {
		page = svc.Figures.Paginated(ctx, catalog.PageQuery{Page: 1, Limit: s.pageSize})
		return nil
	})
	g.Go(func() error {
		options = svc.LoadFormOptions(ctx)
		return nil
	})
	_ = g.Wait()

	creds.WriteCookies(c, s.secureCookies)

	vm := indexPage{
		Title:      "Figures",
		NextPage:   feed.FirstCursor,
		Query:      strings.TrimSpace(c.Query("q")),
		Preset:     c.Query("filter"),
		Presets:    s.filters.ListFilters(),
		ShowSealed: c.Query("sealed") == "1",
		Statuses:   catalog.Statuses,
	}
	if options.OK() {
		vm.Options = &options.Data
	}

	if !page.OK() {
		vm.Message = page.Message
		c.HTML(http.StatusBadGateway, "index.html", vm)
		return
	}

	vm.Figures = s.narrow(c, vm.Query, vm.Preset, page.Data.Figures)
	vm.HasMore = page.Data.Pagination.HasMore
	c.HTML(http.StatusOK, "index.html", vm)
}

// moreFigures answers the scroll script with one page of cards.
// A failed load leaves the client state untouched, so no paging headers are sent.
func (s *Server) moreFigures(c *gin.Context) {
	pageNum, err := strconv.Atoi(c.Query("page"))
	if err != nil || pageNum < 1 {
		c.String(http.StatusBadRequest, "invalid page")
		return
	}

	svc, creds := s.services(c)
	result := svc.Figures.Paginated(c.Request.Context(), catalog.PageQuery{Page: pageNum, Limit: s.pageSize})
	creds.WriteCookies(c, s.secureCookies)

	if !result.OK() {
		c.String(http.StatusBadGateway, result.Message)
		return
	}

	c.Header(HeaderHasMore, strconv.FormatBool(result.Data.Pagination.HasMore))
	c.Header(HeaderItemCount, strconv.Itoa(len(result.Data.Figures)))
	c.HTML(http.StatusOK, "cards.html", s.narrow(c, strings.TrimSpace(c.Query("q")), c.Query("filter"), result.Data.Figures))
}

// narrow applies the named preset and the search query. A broken filter leaves the cards as they are.
func (s *Server) narrow(c *gin.Context, query, preset string, cards []catalog.FigureCard) []catalog.FigureCard {
	ctx := c.Request.Context()
	logger := requestLogger(c)

	if preset != "" {
		matched, err := s.filters.EvaluateFilter(ctx, preset, cards)
		if err != nil {
			logger.Warn().Err(err).Str("filter", preset).Msg("Ignoring filter preset")
		} else {
			cards = matched
		}
	}

	if query == "" {
		return cards
	}
	matched, err := s.filters.Apply(ctx, filter.SearchExpression(query), cards)
	if err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("Ignoring search query")
		return cards
	}
	return matched
}

// showFigure renders the detail page. It fails as a whole when any of its loads fails.
func (s *Server) showFigure(c *gin.Context) {
	svc, creds := s.services(c)
	result := svc.LoadFigurePage(c.Request.Context(), c.Param("id"))
	creds.WriteCookies(c, s.secureCookies)

	if !result.OK() {
		status := http.StatusBadGateway
		if result.Message == catalog.MsgFigureNotFound {
			status = http.StatusNotFound
		}
		c.HTML(status, "message.html", messagePage{Title: "Figure", Message: result.Message, Back: "/"})
		return
	}

	figure := result.Data.Figure
	c.HTML(http.StatusOK, "detail.html", detailPage{
		Title:    figure.Name,
		Figure:   figure,
		Options:  result.Data.FormOptions,
		Editable: !figure.IsSealed,
		Statuses: catalog.Statuses,
	})
}

func (s *Server) createFigure(c *gin.Context) {
	var form createForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusUnprocessableEntity, "message.html", messagePage{
			Title:   "New figure",
			Message: catalog.MsgInvalidFigure,
			Fields:  fromBindError(err, &form),
			Back:    "/",
		})
		return
	}

	svc, creds := s.services(c)
	result := svc.Figures.Create(c.Request.Context(), form.input())
	creds.WriteCookies(c, s.secureCookies)

	if !result.OK() {
		status := http.StatusBadGateway
		if result.Message == catalog.MsgInvalidFigure {
			status = http.StatusUnprocessableEntity
		}
		c.HTML(status, "message.html", messagePage{Title: "New figure", Message: result.Message, Back: "/"})
		return
	}

	c.Redirect(http.StatusSeeOther, figurePath(result.Data.ID))
}

func (s *Server) updateFigure(c *gin.Context) {
	id := c.Param("id")

	var form editForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusUnprocessableEntity, "message.html", messagePage{
			Title:   "Edit figure",
			Message: catalog.MsgUpdateFailed,
			Fields:  fromBindError(err, &form),
			Back:    figurePath(id),
		})
		return
	}

	svc, creds := s.services(c)
	result := withLoaded(c.Request.Context(), svc, id, func(ctx context.Context, current catalog.FigureDetails) string {
		updated := svc.Figures.UpdateLoaded(ctx, current, form.input())
		return updated.Message
	})
	creds.WriteCookies(c, s.secureCookies)

	if result != "" {
		c.HTML(actionStatus(result), "message.html", messagePage{Title: "Edit figure", Message: result, Back: figurePath(id)})
		return
	}
	c.Redirect(http.StatusSeeOther, figurePath(id))
}

func (s *Server) sealFigure(c *gin.Context) {
	id := c.Param("id")

	svc, creds := s.services(c)
	result := withLoaded(c.Request.Context(), svc, id, func(ctx context.Context, current catalog.FigureDetails) string {
		return svc.Figures.SealLoaded(ctx, current).Message
	})
	creds.WriteCookies(c, s.secureCookies)

	if result != "" {
		c.HTML(actionStatus(result), "message.html", messagePage{Title: "Seal figure", Message: result, Back: figurePath(id)})
		return
	}
	c.Redirect(http.StatusSeeOther, figurePath(id))
}

// withLoaded loads the figure and runs action on it. It returns the failure message, or "" on success.
func withLoaded(ctx context.Context, svc *catalog.Services, id string, action func(context.Context, catalog.FigureDetails) string) string {
	current := svc.Figures.ByID(ctx, id)
	if !current.OK() {
		return current.Message
	}
	return action(ctx, current.Data)
}

func actionStatus(message string) int {
	switch message {
	case catalog.MsgFigureNotFound:
		return http.StatusNotFound
	case catalog.MsgFigureSealed:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) thumbnail(c *gin.Context) {
	width := s.thumbs.Width(c.Query("w"))
	data, err := s.thumbs.Thumbnail(c.Request.Context(), c.Query("src"), width)
	if err != nil {
		_ = c.Error(err)
		status := http.StatusBadGateway
		if errors.Is(err, ErrInvalidSource) || errors.Is(err, ErrSourceNotAllowed) {
			status = http.StatusBadRequest
		}
		c.Status(status)
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/jpeg", data)
}

func figurePath(id string) string {
	return "/figures/" + url.PathEscape(id)
}
