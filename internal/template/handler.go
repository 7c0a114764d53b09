package template

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler exposes template management over HTTP.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, log: log}
}

// Router mounts the template API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/templates", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Post("/render", h.render)
		r.Get("/{code}", h.get)
		r.Put("/{code}", h.update)
		r.Delete("/{code}", h.delete)
	})
	return r
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

type listMeta struct {
	Total       int  `json:"total"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var params CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.svc.Create(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, ErrCodeExists):
			h.respondError(w, r, http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidParams):
			h.respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.serverError(w, r, err)
		}
		return
	}

	h.respond(w, http.StatusCreated, response{Success: true, Data: t, Message: "template created"})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	language := r.URL.Query().Get("language")

	t, err := h.svc.Get(r.Context(), code, language)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, response{Success: true, Data: t})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var params UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.svc.Update(r.Context(), chi.URLParam(r, "code"), params)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, response{Success: true, Data: t, Message: "template updated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, response{Success: true, Message: "template deleted"})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	filter := ListFilter{
		Page:             page,
		Limit:            limit,
		Language:         q.Get("language"),
		NotificationType: q.Get("notification_type"),
	}

	templates, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	totalPages := (total + filter.Limit - 1) / filter.Limit

	h.respond(w, http.StatusOK, response{
		Success: true,
		Data:    templates,
		Meta: listMeta{
			Total:       total,
			Limit:       filter.Limit,
			Page:        filter.Page,
			TotalPages:  totalPages,
			HasNext:     filter.Page < totalPages,
			HasPrevious: filter.Page > 1,
		},
	})
}

type renderRequest struct {
	Code      string            `json:"template_code"`
	Language  string            `json:"language"`
	Variables map[string]string `json:"variables"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	rendered, err := h.svc.Render(r.Context(), req.Code, req.Language, req.Variables)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.respondError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrMissingVariables):
			h.respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.serverError(w, r, err)
		}
		return
	}

	h.respond(w, http.StatusOK, response{Success: true, Data: rendered, Message: "template rendered"})
}

func (h *Handler) respond(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	h.respond(w, code, response{Success: false, Message: msg})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.ErrorContext(r.Context(), "template request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	h.respond(w, http.StatusInternalServerError, response{Success: false, Message: "internal error"})
}
