// Package http exposes the workflow as a JSON API.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/capability"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/aretw0/switchboard/pkg/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mitchellh/mapstructure"
)

//go:embed openapi.yaml
var rawSpec []byte

// MaxBodyBytes bounds the request body of POST /v1/turns.
const MaxBodyBytes = 64 << 10

var errUnknownSchema = errors.New("schema not found in api document")

// Spec returns the parsed and validated API document.
func Spec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load api document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid api document: %w", err)
	}
	return doc, nil
}

// CapabilityInfo is the public description of a registered capability.
type CapabilityInfo struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Describe lists the capabilities of reg.
func Describe(reg *capability.Registry) []CapabilityInfo {
	caps := reg.List()
	out := make([]CapabilityInfo, 0, len(caps))
	for _, c := range caps {
		info := CapabilityInfo{Name: c.Name(), Description: c.Description()}
		if s := c.Schema(); len(s) > 0 {
			info.Parameters = make(map[string]string, len(s))
			for _, key := range s.Keys() {
				info.Parameters[key] = schema.TypeName(s[key])
			}
		}
		out = append(out, info)
	}
	return out
}

// Server serves turns over HTTP.
type Server struct {
	handler  ports.TurnHandler
	registry *capability.Registry
	metrics  http.Handler
	logger   *slog.Logger
	request  *openapi3.Schema
	limits   runner.Limits
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry enables GET /capabilities.
func WithRegistry(reg *capability.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithMetrics mounts h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLimits bounds the query and user id of POST /v1/turns.
func WithLimits(l runner.Limits) Option {
	return func(s *Server) {
		s.limits = l
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for handler.
func NewServer(handler ports.TurnHandler, opts ...Option) (*Server, error) {
	doc, err := Spec(context.Background())
	if err != nil {
		return nil, err
	}
	ref, ok := doc.Components.Schemas["TurnRequest"]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("%w: TurnRequest", errUnknownSchema)
	}

	s := &Server{handler: handler, request: ref.Value}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.health)
	r.Get("/openapi.yaml", serveSpec)
	r.Post("/v1/turns", s.runTurn)
	if s.registry != nil {
		r.Get("/capabilities", s.listCapabilities)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func serveSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(rawSpec)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(switchboard.Version),
	})
}

func (s *Server) listCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Describe(s.registry))
}

func (s *Server) runTurn(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeTurn(r)
	if err != nil {
		s.logger.Warn("rejected turn request", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reply, err := s.handler.Handle(r.Context(), req)
	if err != nil {
		s.logger.Error("turn failed", "error", err, "turn_id", reply.TurnID)
		if reply.Response == "" {
			reply.Response = switchboard.ErrorResponse
		}
		writeJSON(w, http.StatusInternalServerError, reply)
		return
	}
	if strings.TrimSpace(reply.Response) == "" {
		reply.Response = switchboard.NoResponse
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) decodeTurn(r *http.Request) (domain.TurnRequest, error) {
	var req domain.TurnRequest

	var body map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if err := s.request.VisitJSON(body); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}
	if err := mapstructure.Decode(body, &req); err != nil {
		return req, fmt.Errorf("invalid request: %w", err)
	}

	return s.limits.Clean(req)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
