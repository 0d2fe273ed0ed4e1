// Package server exposes the image-selection pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"slideimage/internal/cache"
	"slideimage/internal/slide"
)

const serviceName = "slideimage"

// Pipeline is the application surface the handlers need.
type Pipeline interface {
	ProcessSlide(ctx context.Context, input slide.Input) (slide.Result, error)
	ExtractKeywords(ctx context.Context, in slide.Input) (slide.Intent, error)
	CachedImage(id string) (cache.Image, error)
}

type Router struct {
	router  *mux.Router
	service Pipeline
	version string
}

func NewRouter(service Pipeline, version string) *Router {
	r := mux.NewRouter()
	router := &Router{router: r, service: service, version: version}

	r.HandleFunc("/", router.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/generate-image", router.generateImageHandler).Methods(http.MethodPost)
	r.HandleFunc("/generate-image-simple", router.generateImageSimpleHandler).Methods(http.MethodGet)
	r.HandleFunc("/extract-keywords", router.extractKeywordsHandler).Methods(http.MethodPost)
	r.HandleFunc("/generated/{id}", router.generatedImageHandler).Methods(http.MethodGet)

	return router
}

func (router *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router.router.ServeHTTP(w, r)
}

func (router *Router) healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": serviceName,
		"status":  "ok",
		"version": router.version,
	})
}

func (router *Router) generateImageHandler(w http.ResponseWriter, r *http.Request) {
	var input slide.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if msg, ok := validate(input); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	router.process(w, r, input)
}

// generateImageSimpleHandler accepts the same request as query
// parameters, with comma-separated lists, for quick manual testing.
func (router *Router) generateImageSimpleHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := slide.Input{
		Title:    q.Get("title"),
		Keywords: splitList(q.Get("keywords")),
		Style:    slide.Style(q.Get("style")),
		Mode:     slide.ImageMode(q.Get("image_mode")),
		AIModel:  slide.Model(q.Get("ai_model")),
	}
	for _, text := range splitList(q.Get("bullets")) {
		input.Bullets = append(input.Bullets, slide.Bullet{Text: text})
	}
	if primary, secondary := q.Get("primary_color"), q.Get("secondary_color"); primary != "" || secondary != "" {
		input.Colors = &slide.Colors{Primary: primary, Secondary: secondary}
	}
	if msg, ok := validate(input); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	router.process(w, r, input)
}

func (router *Router) process(w http.ResponseWriter, r *http.Request, input slide.Input) {
	result, err := router.service.ProcessSlide(r.Context(), input)
	if err != nil {
		slog.Error("slide processing failed", "title", input.Title, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (router *Router) extractKeywordsHandler(w http.ResponseWriter, r *http.Request) {
	var input slide.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if msg, ok := validate(input); !ok {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	intent, err := router.service.ExtractKeywords(r.Context(), input)
	if err != nil {
		slog.Error("keyword extraction failed", "title", input.Title, "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"detailed": intent,
		"refined":  intent.Refined,
	})
}

func (router *Router) generatedImageHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	img, err := router.service.CachedImage(id)
	if errors.Is(err, cache.ErrNotFound) {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("image retrieval failed", "id", id, "error", err)
		http.Error(w, "failed to retrieve image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", img.MediaType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(img.Data)
}

func validate(input slide.Input) (string, bool) {
	if strings.TrimSpace(input.Title) == "" && len(input.Bullets) == 0 && len(input.Keywords) == 0 {
		return "title, bullets or keywords required", false
	}
	if !input.Mode.Valid() {
		return "invalid image_mode: " + string(input.Mode), false
	}
	if !input.AIModel.Valid() {
		return "invalid ai_model: " + string(input.AIModel), false
	}
	return "", true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
