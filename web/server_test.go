package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/figureshelf/apiclient"
	"github.com/s0up4200/figureshelf/catalog"
	"github.com/s0up4200/figureshelf/filter"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type recordedRequest struct {
	Method      string
	Path        string
	Auth        string
	InternalKey string
	Body        map[string]any
}

// fakeBackend serves the figure REST api from fixed JSON documents
type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	// pages maps a page number to a listing envelope
	pages map[string]string
	// figures maps an id to a details document
	figures map[string]string
	// fail answers these paths with 500
	fail map[string]bool
	// validToken, when set, is the only bearer token user requests are accepted with
	validToken   string
	refreshCalls atomic.Int32
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		pages: map[string]string{
			"1": `{"items": [
				{"id": "a", "name": "Rem", "manufacturerName": "Good Smile", "status": "Available"},
				{"id": "b", "name": "Asuka", "manufacturerName": "Alter", "status": "Preorder", "isSealed": true}
			], "pageNumber": 1, "pageSize": 8, "totalPages": 3, "totalCount": 20}`,
			"2": `{"items": [
				{"id": "c", "name": "Saber", "manufacturerName": "Max Factory", "status": "Archived"},
				{"id": "d", "name": "Miku", "manufacturerName": "Good Smile", "status": "Preorder"}
			], "pageNumber": 2, "pageSize": 8, "totalPages": 3, "totalCount": 20}`,
			"3": `{"items": [], "pageNumber": 3, "pageSize": 8, "totalPages": 3, "totalCount": 20}`,
		},
		figures: map[string]string{
			"a": `{"id": "a", "name": "Rem", "characterName": "Rem", "manufacturerName": "Good Smile",
				"description": "Maid outfit", "figureType": "Scale", "isSealed": false, "status": "Available",
				"dimensions": {"heightCm": 23}, "weight": 450, "imageUrl": null, "scaleRatio": "1/7"}`,
			"b": `{"id": "b", "name": "Asuka", "characterName": "Asuka", "manufacturerName": "Alter",
				"description": null, "figureType": "Scale", "isSealed": true, "status": "Preorder",
				"dimensions": null, "weight": null, "imageUrl": "https://img.example/asuka.png", "scaleRatio": null}`,
		},
		fail: map[string]bool{},
	}
}

func (b *fakeBackend) recorded(method, path string) []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedRequest
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		Auth:        r.Header.Get("Authorization"),
		InternalKey: r.Header.Get(apiclient.HeaderInternalAPIKey),
	}
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			_ = json.Unmarshal(data, &rec.Body)
		}
	}
	b.mu.Lock()
	b.requests = append(b.requests, rec)
	b.mu.Unlock()

	if r.URL.Path == apiclient.RefreshEndpoint {
		b.refreshCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: apiclient.AccessTokenName, Value: "new"})
		respondJSON(w, http.StatusOK, `{"refreshToken": "rotated"}`)
		return
	}
	if b.validToken != "" && rec.Auth != "" && rec.Auth != "Bearer "+b.validToken {
		respondJSON(w, http.StatusUnauthorized, `{"error": "expired"}`)
		return
	}
	if b.fail[r.URL.Path] {
		respondJSON(w, http.StatusInternalServerError, `{"error": "boom"}`)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/")
	switch {
	case path == "figures" && r.Method == http.MethodGet:
		page, ok := b.pages[r.URL.Query().Get("page")]
		if !ok {
			respondJSON(w, http.StatusNotFound, `{}`)
			return
		}
		respondJSON(w, http.StatusOK, page)
	case path == "figures" && r.Method == http.MethodPost:
		respondJSON(w, http.StatusCreated, `{"id": "new-1", "name": "Created", "status": "Available"}`)
	case path == "figures/types":
		respondJSON(w, http.StatusOK, `[{"name": "Scale", "description": "Scale figure"}, {"name": "Nendoroid", "description": ""}]`)
	case path == "characters":
		respondJSON(w, http.StatusOK, `[{"id": "ch-1", "name": "Rem", "franchiseName": "Re:Zero"}]`)
	case path == "manufacturers":
		respondJSON(w, http.StatusOK, `[{"id": "m-1", "name": "Good Smile"}]`)
	case strings.HasSuffix(path, "/seal"):
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(path, "figures/"):
		id := strings.TrimPrefix(path, "figures/")
		doc, ok := b.figures[id]
		if !ok {
			respondJSON(w, http.StatusNotFound, `{"error": "not found"}`)
			return
		}
		respondJSON(w, http.StatusOK, doc)
	default:
		respondJSON(w, http.StatusNotFound, `{}`)
	}
}

func respondJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestServer(t *testing.T, backend *fakeBackend, mutate ...func(*Options)) *Server {
	t.Helper()
	api := httptest.NewServer(backend)
	t.Cleanup(api.Close)

	client, err := apiclient.NewClient(apiclient.Endpoints{Origin: api.URL, ProxyURL: api.URL}, "internal", zerolog.Nop())
	require.NoError(t, err)

	opts := Options{Client: client, Logger: zerolog.Nop()}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServer(Options{})
	assert.ErrorIs(t, err, ErrNoClient)

	client, err := apiclient.NewClient(apiclient.Endpoints{}, "", zerolog.Nop())
	require.NoError(t, err)
	_, err = NewServer(Options{Client: client.ForUser(apiclient.NewMemoryCredentials("k", "a", "r"))})
	assert.ErrorIs(t, err, ErrClientScope)
}

func TestHealthAndRequestID(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	rec := do(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "rid-123")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "rid-123", rec.Header().Get(HeaderRequestID))
}

func TestIndex(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Rem")
	assert.Contains(t, body, `data-sealed="true"`)
	assert.Contains(t, body, "hide-sealed", "sealed figures start hidden")
	assert.Contains(t, body, "Add figure")
	assert.Contains(t, body, "ch-1")
	assert.Contains(t, body, `<option value="Available" selected>`, "create form defaults to Available")

	calls := backend.recorded(http.MethodGet, "/api/figures")
	require.Len(t, calls, 1)
	assert.Equal(t, "internal", calls[0].InternalKey)
	assert.Empty(t, calls[0].Auth)
}

func TestIndex_ShowSealedToggle(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	rec := do(srv, http.MethodGet, "/?sealed=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="grid"`)
	assert.Contains(t, rec.Body.String(), "checked")
}

func TestIndex_CreateFormNeedsAllOptions(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["/api/manufacturers"] = true
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rem")
	assert.NotContains(t, rec.Body.String(), "Add figure")
}

func TestIndex_FiguresUnavailable(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["/api/figures"] = true
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), catalog.MsgFiguresUnavailable)
}

func TestMoreFigures(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		hasMore   string
		itemCount string
		contains  []string
		excludes  []string
	}{
		{
			name:      "next page",
			target:    "/figures/more?page=2",
			status:    http.StatusOK,
			hasMore:   "true",
			itemCount: "2",
			contains:  []string{"Saber", "Miku"},
		},
		{
			name:      "empty last page",
			target:    "/figures/more?page=3",
			status:    http.StatusOK,
			hasMore:   "false",
			itemCount: "0",
		},
		{
			name:      "search narrows cards but not the count",
			target:    "/figures/more?page=2&q=status:Preorder",
			status:    http.StatusOK,
			hasMore:   "true",
			itemCount: "2",
			contains:  []string{"Miku"},
			excludes:  []string{"Saber"},
		},
		{
			name:   "invalid page",
			target: "/figures/more?page=zero",
			status: http.StatusBadRequest,
		},
		{
			name:     "backend failure",
			target:   "/figures/more?page=9",
			status:   http.StatusBadGateway,
			contains: []string{catalog.MsgFiguresUnavailable},
		},
	}

	srv := newTestServer(t, newFakeBackend())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.hasMore, rec.Header().Get(HeaderHasMore))
			assert.Equal(t, tt.itemCount, rec.Header().Get(HeaderItemCount))
			for _, s := range tt.contains {
				assert.Contains(t, rec.Body.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, rec.Body.String(), s)
			}
		})
	}
}

func TestMoreFigures_Preset(t *testing.T) {
	filters := filter.NewManager()
	require.NoError(t, filters.RegisterFilter("gsc", `madeBy("Good Smile")`))
	srv := newTestServer(t, newFakeBackend(), func(o *Options) { o.Filters = filters })

	rec := do(srv, http.MethodGet, "/figures/more?page=2&filter=gsc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Miku")
	assert.NotContains(t, rec.Body.String(), "Saber")

	rec = do(srv, http.MethodGet, "/figures/more?page=2&filter=unknown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Saber", "unknown preset leaves the cards unfiltered")
}

func TestShowFigure(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	t.Run("editable figure", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/figures/a", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Maid outfit")
		assert.Contains(t, body, "H 23 cm")
		// html/template escapes the + in attribute values
		assert.Contains(t, body, `src="https://via.placeholder.com/600x800.png?text=No&#43;Image"`)
		assert.Contains(t, body, `action="/figures/a/seal"`)
		assert.Contains(t, body, "Edit")
	})

	t.Run("sealed figure hides actions", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/figures/b", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Asuka")
		assert.NotContains(t, body, "/figures/b/seal")
		assert.NotContains(t, body, "<summary>Edit</summary>")
	})

	t.Run("missing figure", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/figures/zzz", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), catalog.MsgFigureNotFound)
	})
}

func TestShowFigure_OptionsFailureFailsPage(t *testing.T) {
	backend := newFakeBackend()
	backend.fail["/api/figures/types"] = true
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodGet, "/figures/a", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), catalog.MsgFormOptionsUnavailable)
}

func TestCreateFigure(t *testing.T) {
	t.Run("valid form", func(t *testing.T) {
		backend := newFakeBackend()
		srv := newTestServer(t, backend)

		rec := do(srv, http.MethodPost, "/figures", url.Values{
			"name":           {"Created"},
			"characterId":    {"ch-1"},
			"manufacturerId": {"m-1"},
			"figureType":     {"Scale"},
			"heightCm":       {""},
			"weight":         {"120.5"},
		})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/figures/new-1", rec.Header().Get("Location"))

		calls := backend.recorded(http.MethodPost, "/api/figures")
		require.Len(t, calls, 1)
		assert.Equal(t, "Created", calls[0].Body["name"])
		assert.Equal(t, "Available", calls[0].Body["status"])
		assert.Equal(t, 120.5, calls[0].Body["weight"])
		assert.NotContains(t, calls[0].Body, "dimensions")
	})

	t.Run("missing required fields", func(t *testing.T) {
		backend := newFakeBackend()
		srv := newTestServer(t, backend)

		rec := do(srv, http.MethodPost, "/figures", url.Values{"name": {"Only name"}, "weight": {"heavy"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "characterId")
		assert.Contains(t, body, "manufacturerId")
		assert.Contains(t, body, "weight")
		assert.Empty(t, backend.recorded(http.MethodPost, "/api/figures"))
	})
}

func TestUpdateFigure(t *testing.T) {
	t.Run("unsealed figure", func(t *testing.T) {
		backend := newFakeBackend()
		srv := newTestServer(t, backend)

		rec := do(srv, http.MethodPost, "/figures/a", url.Values{"name": {"Rem (Maid)"}, "status": {"Archived"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/figures/a", rec.Header().Get("Location"))

		calls := backend.recorded(http.MethodPut, "/api/figures/a")
		require.Len(t, calls, 1)
		assert.Equal(t, "Rem (Maid)", calls[0].Body["name"])
		assert.Equal(t, "Archived", calls[0].Body["status"])
		assert.NotContains(t, calls[0].Body, "description")
	})

	t.Run("sealed figure is refused", func(t *testing.T) {
		backend := newFakeBackend()
		srv := newTestServer(t, backend)

		rec := do(srv, http.MethodPost, "/figures/b", url.Values{"name": {"Asuka"}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), catalog.MsgFigureSealed)
		assert.Empty(t, backend.recorded(http.MethodPut, "/api/figures/b"))
	})

	t.Run("invalid status", func(t *testing.T) {
		srv := newTestServer(t, newFakeBackend())
		rec := do(srv, http.MethodPost, "/figures/a", url.Values{"name": {"Rem"}, "status": {"Lost"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "status")
	})
}

func TestSealFigure(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodPost, "/figures/a/seal", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, backend.recorded(http.MethodPost, "/api/figures/a/seal"), 1)

	rec = do(srv, http.MethodPost, "/figures/b/seal", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, backend.recorded(http.MethodPost, "/api/figures/b/seal"))

	rec = do(srv, http.MethodPost, "/figures/zzz/seal", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCookieCredentialsRefresh(t *testing.T) {
	backend := newFakeBackend()
	backend.validToken = "new"
	srv := newTestServer(t, backend)

	rec := do(srv, http.MethodGet, "/figures/more?page=2", nil,
		&http.Cookie{Name: apiclient.AccessTokenName, Value: "old"},
		&http.Cookie{Name: apiclient.RefreshTokenName, Value: "r1"},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), backend.refreshCalls.Load())

	calls := backend.recorded(http.MethodGet, "/api/figures")
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer old", calls[0].Auth)
	assert.Equal(t, "Bearer new", calls[1].Auth)
	assert.Empty(t, calls[1].InternalKey)

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
		assert.True(t, c.HttpOnly)
	}
	assert.Equal(t, "new", cookies[apiclient.AccessTokenName])
	assert.Equal(t, "rotated", cookies[apiclient.RefreshTokenName])
}

func TestCookieCredentials_UnchangedTokensAreNotRewritten(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	rec := do(srv, http.MethodGet, "/figures/more?page=2", nil,
		&http.Cookie{Name: apiclient.AccessTokenName, Value: "valid"},
	)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestBackendProxy(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	// ReverseProxy needs a CloseNotifier, which only a real server's writer provides
	front := httptest.NewServer(srv.Handler())
	t.Cleanup(front.Close)

	resp, err := http.Get(front.URL + "/api/characters")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Re:Zero")

	calls := backend.recorded(http.MethodGet, "/api/characters")
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].InternalKey, "the proxy forwards browser requests unchanged")
}

func TestRecoveryKeepsServing(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	srv.engine.GET("/panic", func(c *gin.Context) { panic(fmt.Sprintf("boom %d", 1)) })

	rec := do(srv, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
