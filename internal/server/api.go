package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lotas/readlater/internal/applog"
	"github.com/lotas/readlater/internal/pages"
	"github.com/lotas/readlater/internal/types"
	"github.com/lotas/readlater/internal/views"
)

// ServiceName identifies this process in health responses.
const ServiceName = "readlater"

// NoticeHeader carries the user-facing outcome of a share request.
const NoticeHeader = "X-Readlater-Notice"

// TagSuggester asks the model for tags and reports failures.
type TagSuggester interface {
	AITags(ctx context.Context, key, title, rawURL, excerpt string) ([]string, error)
}

// Deps is what the HTTP handlers need.
type Deps struct {
	Pages     *pages.Service
	Tags      TagSuggester
	ServerKey func() string // Gemini key for /api/generate-tags
	Bridge    *Bridge       // nil leaves /ws unmounted
	StaleDays int
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors)

	if d.Bridge != nil {
		r.Handle("/ws", d.Bridge.Handler())
	}
	r.Get("/share", share(d))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health(d))
		r.HandleFunc("/generate-tags", generateTags(d))
		r.Get("/pages", listPages(d))
		r.Post("/pages", createPage(d))
		r.Post("/pages/{id}/toggle-read", toggleRead(d))
		r.Delete("/pages/{id}", deletePage(d))
		r.Get("/views/{kind}", groupView(d))
		r.Get("/stats", stats(d))
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("http.encode", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Notice  string `json:"notice,omitempty"`
}

func health(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"message":   "ReadLater is alive! 🎉",
			"timestamp": d.now().Format(time.RFC3339),
			"service":   ServiceName,
		})
	}
}

type generateTagsRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func generateTags(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
			return
		}
		var req generateTagsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
			return
		}
		if req.Title == "" && req.URL == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Title or URL is required"})
			return
		}
		key := ""
		if d.ServerKey != nil {
			key = d.ServerKey()
		}
		if key == "" || d.Tags == nil {
			applog.Error("http.generate_tags", errors.New("server gemini key not set"))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "API key not configured"})
			return
		}
		tags, err := d.Tags.AITags(r.Context(), key, req.Title, req.URL, "")
		if err != nil {
			applog.Error("http.generate_tags", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to generate tags", Message: err.Error()})
			return
		}
		if tags == nil {
			tags = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"tags": tags})
	}
}

type pageJSON struct {
	types.Page
	TimeAgo string `json:"timeAgo"`
}

type listResponse struct {
	Pages []pageJSON  `json:"pages"`
	Stats types.Stats `json:"stats"`
}

func listPages(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab, ok := types.ParseTab(r.URL.Query().Get("tab"))
		if r.URL.Query().Get("tab") != "" && (!ok || (tab != types.TabAll && tab != types.TabUnread)) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tab must be all or unread"})
			return
		}
		all := d.Pages.Store.Get()
		now := d.now()
		list := views.ForTab(all, tab, r.URL.Query().Get("q"))
		resp := listResponse{Pages: make([]pageJSON, len(list)), Stats: views.ComputeStats(all, d.StaleDays, now)}
		for i, p := range list {
			resp.Pages[i] = pageJSON{Page: p, TimeAgo: views.TimeAgo(p.SavedAt, now)}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type createRequest struct {
	Text    string `json:"text"`
	Title   string `json:"title"`
	Note    string `json:"note"`
	Favicon string `json:"favicon"`
}

func createPage(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
			return
		}
		p, err := d.Pages.Save(r.Context(), pages.SaveInput{Text: req.Text, Title: req.Title, Note: req.Note, Favicon: req.Favicon})
		if err != nil {
			writeJSON(w, saveStatus(err), errorResponse{Error: err.Error(), Notice: pages.Notice(err)})
			return
		}
		writeJSON(w, http.StatusCreated, pageJSON{Page: p, TimeAgo: views.TimeAgo(p.SavedAt, d.now())})
	}
}

func saveStatus(err error) int {
	switch {
	case errors.Is(err, pages.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, pages.ErrValidation), errors.Is(err, pages.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, pages.ErrNotFound):
		return http.StatusNotFound
	default:
		applog.Error("http.save", err)
		return http.StatusInternalServerError
	}
}

func toggleRead(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		read, err := d.Pages.ToggleRead(r.Context(), id)
		if err != nil {
			writeJSON(w, saveStatus(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": read})
	}
}

func deletePage(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Pages.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeJSON(w, saveStatus(err), errorResponse{Error: err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func groupView(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := d.Pages.Store.Get()
		switch chi.URLParam(r, "kind") {
		case "sites":
			writeJSON(w, http.StatusOK, nonNil(views.Sites(list)))
		case "tags":
			writeJSON(w, http.StatusOK, nonNil(views.Tags(list)))
		case "sns":
			writeJSON(w, http.StatusOK, nonNil(views.SNS(list)))
		default:
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown view"})
		}
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func stats(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, views.ComputeStats(d.Pages.Store.Get(), d.StaleDays, d.now()))
	}
}
