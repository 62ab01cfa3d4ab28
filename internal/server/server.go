// Package server exposes the matching and translation core over HTTP.
//
// Routes:
//
//	GET  /health                 liveness probe
//	POST /api/matches            {profileId} -> MatchResult[]
//	POST /api/translate          {text, targetLanguage, sourceLanguage?} -> translation result
//	GET  /api/languages          language catalog
//	GET  /api/skills             skill catalog
//	POST /api/cache/invalidate   drop cached catalog snapshots
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/in-c0/langtern/internal/catalog"
	apperrors "github.com/in-c0/langtern/internal/errors"
	"github.com/in-c0/langtern/internal/logger"
	"github.com/in-c0/langtern/internal/matching"
	"github.com/in-c0/langtern/internal/translation"
)

const maxBodyBytes = 1 << 20

// SourceHeader reports which path produced a match response.
const SourceHeader = "X-Match-Source"

type Matcher interface {
	FindMatches(ctx context.Context, profileID string) *matching.Outcome
}

type Translator interface {
	Translate(ctx context.Context, text string, settings translation.Settings) translation.Result
}

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Handler struct {
	matcher     Matcher
	translator  Translator
	reference   catalog.Store
	invalidator Invalidator
	defaults    translation.Settings
	logger      *zap.Logger
	version     string
}

type Deps struct {
	Matcher    Matcher
	Translator Translator
	Reference  catalog.Store
	// Invalidator is nil when catalog caching is disabled.
	Invalidator Invalidator
	// Translation holds the server-wide defaults; requests override the languages.
	Translation translation.Settings
	Logger      *zap.Logger
	Version     string
}

func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{
		matcher:     d.Matcher,
		translator:  d.Translator,
		reference:   d.Reference,
		invalidator: d.Invalidator,
		defaults:    d.Translation,
		logger:      d.Logger,
		version:     d.Version,
	}
}

// Routes returns the mux wrapped in request-id and access-log middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /api/matches", h.findMatches)
	mux.HandleFunc("POST /api/translate", h.translate)
	mux.HandleFunc("GET /api/languages", h.languages)
	mux.HandleFunc("GET /api/skills", h.skills)
	mux.HandleFunc("POST /api/cache/invalidate", h.invalidateCache)

	return requestID(accessLog(h.logger, mux))
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]string{"status": "ok", "version": h.version})
}

type matchRequest struct {
	ProfileID string `json:"profileId"`
}

func (h *Handler) findMatches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.ProfileID = strings.TrimSpace(req.ProfileID)
	if req.ProfileID == "" {
		h.writeError(w, r, apperrors.InvalidInput("profileId is required", nil))
		return
	}

	outcome := h.matcher.FindMatches(r.Context(), req.ProfileID)
	w.Header().Set(SourceHeader, string(outcome.Source))
	jsonOK(w, outcome.Results)
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage"`
	AutoDetect     *bool  `json:"autoDetect"`
}

func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.TargetLanguage) == "" {
		h.writeError(w, r, apperrors.InvalidInput("targetLanguage is required", nil))
		return
	}

	settings := h.defaults
	settings.TargetLanguage = req.TargetLanguage
	if req.SourceLanguage != "" {
		settings.SourceLanguage = req.SourceLanguage
	}
	if req.AutoDetect != nil {
		settings.AutoDetect = *req.AutoDetect
	}

	jsonOK(w, h.translator.Translate(r.Context(), req.Text, settings))
}

func (h *Handler) languages(w http.ResponseWriter, r *http.Request) {
	languages, err := h.reference.ReferenceLanguages(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, languages)
}

func (h *Handler) skills(w http.ResponseWriter, r *http.Request) {
	skills, err := h.reference.ReferenceSkills(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonOK(w, skills)
}

func (h *Handler) invalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.invalidator == nil {
		h.writeError(w, r, apperrors.Unavailable("catalog cache is disabled", nil))
		return
	}
	if err := h.invalidator.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, apperrors.Unavailable("invalidate catalog cache", err))
		return
	}
	jsonOK(w, map[string]string{"status": "invalidated"})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.InvalidInput("invalid JSON body", err)
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	log := h.logger.With(logger.RequestFields(logger.RequestID(r.Context()), "")...)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}

	// internal failures never leak their cause
	msg := http.StatusText(status)
	var domainErr *apperrors.DomainError
	if status != http.StatusInternalServerError && errors.As(err, &domainErr) {
		msg = domainErr.Message
	}
	jsonError(w, msg, status)
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
