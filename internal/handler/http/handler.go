package http

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"skin-detect/internal/domain"
	"skin-detect/internal/service"
)

const sessionCookie = "session_id"

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"jpegSrc": func(b64 string) template.URL { return template.URL("data:image/jpeg;base64," + b64) },
	"pngSrc":  func(b64 string) template.URL { return template.URL("data:image/png;base64," + b64) },
	"dataURL": func(uri string) template.URL { return template.URL(uri) },
}).ParseFS(templateFS, "templates/*.html"))

// Handler serves the UI application mounted at /app.
type Handler struct {
	sessions  *service.SessionStore
	logger    *slog.Logger
	maxUpload int64
	mode      string
}

// NewHandler builds the UI handlers over a session store.
func NewHandler(sessions *service.SessionStore, maxUpload int64, mode string, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		logger:    logger,
		maxUpload: maxUpload,
		mode:      mode,
	}
}

// Routes is the UI application, mounted under /app.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.PageHandler)
	r.Get("/tab/{tab}", h.TabHandler)
	r.Get("/info/{section}", h.InfoHandler)
	r.Post("/detection", h.DetectionHandler)
	return r
}

// PageHandler renders the current state of the caller's page session. While
// a submission is outstanding the page refreshes itself.
func (h *Handler) PageHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "page", sess.Snapshot()); err != nil {
		h.logger.Error("render page", "session", sess.ID(), "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	render.HTML(w, r, buf.String())
}

// TabHandler handles GET /app/tab/{tab}.
func (h *Handler) TabHandler(w http.ResponseWriter, r *http.Request) {
	tab, err := domain.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	h.session(w, r).SetTab(tab)
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// InfoHandler handles GET /app/info/{section} and opens the Information tab.
func (h *Handler) InfoHandler(w http.ResponseWriter, r *http.Request) {
	section, err := domain.ParseInfoTab(chi.URLParam(r, "section"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	sess := h.session(w, r)
	sess.SetTab(domain.TabInformation)
	sess.SetInfoTab(section)
	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// DetectionHandler handles POST /app/detection: it applies the enhancement
// checkbox, takes a newly chosen file and, for action=analyze, starts a
// submission and redirects without waiting for it.
func (h *Handler) DetectionHandler(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	sess.SetEnhancement(r.FormValue("use_enhancement") == "true")

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		http.Error(w, "Failed to read upload", http.StatusBadRequest)
		return
	default:
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, "Failed to read file", http.StatusInternalServerError)
			return
		}
		sess.SelectFile(domain.SelectedImage{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	if r.FormValue("action") == "analyze" {
		// The submission outlives the browser request so the page can show
		// the loading state; only Close on the session discards its outcome.
		if err := sess.SubmitAsync(context.WithoutCancel(r.Context())); errors.Is(err, domain.ErrSubmissionInFlight) {
			h.logger.Info("duplicate submission ignored", "session", sess.ID())
		}
	}

	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

// HealthHandler reports liveness, the build mode and the live session count.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"mode":     h.mode,
		"sessions": h.sessions.Len(),
	})
}

// session returns the caller's page session, starting a new one when the
// cookie is missing or expired.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *service.Session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := h.sessions.Get(c.Value); ok {
			return sess
		}
	}

	sess := h.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID(),
		Path:     "/app",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}
