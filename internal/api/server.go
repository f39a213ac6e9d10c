// Package api provides the RESTful HTTP API server for simplethink.
//
// SYSTEM ARCHITECTURE ROLE:
// This module implements the HTTP interface layer. Every route is a thin
// adapter: it turns the request into a parameter map, runs the named
// command through the CommandExecutor and writes the standard envelope.
//
// KEY RESPONSIBILITIES:
// - Expose templates, pools, profiles, realization, packs and import over HTTP
// - Apply the middleware stack (request id, zap request logging, panic recovery, CORS)
// - Standardize responses as {success, data, message, error, timestamp}
// - Map error codes to HTTP status codes through HTTPErrorHandler
//
// INTEGRATION POINTS:
// - internal/commands/types.go: APIServer.executor executes every operation
// - internal/errors/handlers.go: APIServer.errorHandler maps codes to statuses and error bodies
// - internal/validation/request.go: RequestData() merges query, route params and body
// - internal/api/openapi.go: the route table below doubles as the OpenAPI source
//
// ENDPOINT STRUCTURE:
// - /api/v1/health: System health
// - /api/v1/templates: Template CRUD and ?q= search
// - /api/v1/pools: Saved template pools
// - /api/v1/sessions/{session}/...: Profiles, config, realize, generate, batch, logs
// - /api/v1/packs, /api/v1/import: Vocabulary packs and corpus import
// - /api/docs, /api/openapi.json: Documentation
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/commands"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/validation"
)

// route binds an HTTP method and pattern to a command. Route parameters
// are named after the command parameters they fill.
type route struct {
	Method  string
	Pattern string
	Command string
	Summary string
	// Status overrides 200 on success
	Status int
	// Wrap nests the request body under this parameter, for endpoints
	// whose body is a single object (a profile, a config patch)
	Wrap string
	// Aliases renames query parameters to command parameters
	Aliases map[string]string
}

// routes is the full API surface under /api/v1
var routes = []route{
	{Method: http.MethodGet, Pattern: "/health", Command: "health", Summary: "Service health"},

	{Method: http.MethodGet, Pattern: "/templates", Command: "list-templates", Summary: "List templates, filtered by ?q= or ?expression=",
		Aliases: map[string]string{"q": "query"}},
	{Method: http.MethodPost, Pattern: "/templates", Command: "create-template", Summary: "Create a template from markup or text", Status: http.StatusCreated},
	{Method: http.MethodGet, Pattern: "/templates/{id}", Command: "get-template", Summary: "Get a template with its markup"},
	{Method: http.MethodDelete, Pattern: "/templates/{id}", Command: "delete-template", Summary: "Delete a template"},

	{Method: http.MethodGet, Pattern: "/pools", Command: "list-pools", Summary: "List saved pools"},
	{Method: http.MethodGet, Pattern: "/pools/{name}", Command: "get-pool", Summary: "Get a saved pool"},
	{Method: http.MethodPut, Pattern: "/pools/{name}", Command: "save-pool", Summary: "Create or replace a saved pool"},
	{Method: http.MethodDelete, Pattern: "/pools/{name}", Command: "delete-pool", Summary: "Delete a saved pool"},

	{Method: http.MethodGet, Pattern: "/sessions/{session}/profiles", Command: "list-profiles", Summary: "List a session's profiles"},
	{Method: http.MethodGet, Pattern: "/sessions/{session}/profiles/{id}", Command: "get-profile", Summary: "Get a profile"},
	{Method: http.MethodPut, Pattern: "/sessions/{session}/profiles/{id}", Command: "save-profile", Summary: "Create or replace a profile", Wrap: "profile"},
	{Method: http.MethodDelete, Pattern: "/sessions/{session}/profiles/{id}", Command: "delete-profile", Summary: "Delete a profile"},
	{Method: http.MethodPost, Pattern: "/sessions/{session}/profiles/{id}/activate", Command: "activate-profile", Summary: "Activate a profile"},
	{Method: http.MethodPatch, Pattern: "/sessions/{session}/config", Command: "update-config", Summary: "Patch the active profile", Wrap: "patch"},
	{Method: http.MethodPost, Pattern: "/sessions/{session}/realize", Command: "realize", Summary: "Realize a template"},
	{Method: http.MethodPost, Pattern: "/sessions/{session}/generate", Command: "generate", Summary: "Realize a template drawn from the pool"},
	{Method: http.MethodPost, Pattern: "/sessions/{session}/batch", Command: "batch", Summary: "Generate several distinct texts"},
	{Method: http.MethodGet, Pattern: "/sessions/{session}/logs", Command: "logs", Summary: "Read the strategy log"},
	{Method: http.MethodPut, Pattern: "/sessions/{session}/logs", Command: "set-logging", Summary: "Enable or disable the strategy log"},
	{Method: http.MethodDelete, Pattern: "/sessions/{session}/logs", Command: "clear-logs", Summary: "Clear the strategy log"},

	{Method: http.MethodGet, Pattern: "/packs", Command: "list-packs", Summary: "List installed packs"},
	{Method: http.MethodPost, Pattern: "/packs", Command: "install-pack", Summary: "Install a pack from a directory or git URL", Status: http.StatusCreated},
	{Method: http.MethodDelete, Pattern: "/packs/{name}", Command: "uninstall-pack", Summary: "Uninstall a pack"},

	{Method: http.MethodPost, Pattern: "/import", Command: "import", Summary: "Import a local text corpus"},
	{Method: http.MethodPost, Pattern: "/import/git", Command: "import-git", Summary: "Import a text corpus from git"},
}

// APIServer serves the HTTP API
type APIServer struct {
	service      *service.Service
	executor     *commands.CommandExecutor
	errorHandler *errors.HTTPErrorHandler
	logger       *zap.Logger
	addr         string
	server       *http.Server
}

// NewAPIServer creates a new API server instance listening on addr
func NewAPIServer(svc *service.Service, addr string, logger *zap.Logger) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &APIServer{
		service:      svc,
		executor:     commands.NewCommandExecutor(svc, logger),
		errorHandler: errors.NewHTTPErrorHandler(true, logger),
		logger:       logger.Named("api"),
		addr:         addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler builds the router with the full middleware stack
func (s *APIServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		for _, rt := range routes {
			r.Method(rt.Method, rt.Pattern, s.commandHandler(rt))
		}
	})
	r.Get("/api/docs", s.handleOpenAPI)
	r.Get("/api/openapi.json", s.handleOpenAPISpec)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, errors.NewAppError(errors.ErrCodeNotFound, "Route not found").WithDetails(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, errors.InvalidCommandError(r.Method+" "+r.URL.Path, "method not allowed"))
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *APIServer) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("API server starting",
			zap.String("addr", s.addr),
			zap.String("docs", "http://"+s.addr+"/api/docs"))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	})
	return g.Wait()
}

// Stop gracefully shuts down the server
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("API server stopping")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with status and timing
func (s *APIServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// recoverer turns panics into a 500 envelope
func (s *APIServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				s.writeError(w, errors.InternalError("Internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool                   `json:"success"`
	Data      interface{}            `json:"data,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Error     interface{}            `json:"error,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// commandHandler adapts a route to its command
func (s *APIServer) commandHandler(rt route) http.HandlerFunc {
	pinned := routeParams(rt.Pattern)
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validation.RequestData(r, pinned...)
		if err != nil {
			s.writeError(w, err)
			return
		}
		for from, to := range rt.Aliases {
			if v, ok := params[from]; ok {
				params[to] = v
				delete(params, from)
			}
		}
		if rt.Wrap != "" {
			params = wrapBody(params, rt.Wrap, pinned)
		}

		result, err := s.executor.Execute(r.Context(), rt.Command, params)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if !result.Success {
			if result.Error == nil {
				s.writeError(w, errors.InternalError("Command failed"))
				return
			}
			s.writeError(w, result.Error.AppError())
			return
		}

		status := http.StatusOK
		if rt.Status != 0 {
			status = rt.Status
		}
		s.writeResponse(w, APIResponse{
			Success: true,
			Data:    result.Data,
			Message: result.Message,
			Meta:    result.Meta,
		}, status)
	}
}

// wrapBody moves every non-route parameter under key
func wrapBody(params map[string]interface{}, key string, pinned []string) map[string]interface{} {
	out := make(map[string]interface{}, len(pinned)+1)
	inner := make(map[string]interface{})
	for k, v := range params {
		if contains(pinned, k) {
			out[k] = v
		} else {
			inner[k] = v
		}
	}
	out[key] = inner
	return out
}

// routeParams lists the {param} names of a chi pattern
func routeParams(pattern string) []string {
	var names []string
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '{' {
			continue
		}
		end := i + 1
		for end < len(pattern) && pattern[end] != '}' {
			end++
		}
		names = append(names, pattern[i+1:end])
		i = end
	}
	return names
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

// writeResponse writes a standardized JSON response
func (s *APIServer) writeResponse(w http.ResponseWriter, response APIResponse, statusCode int) {
	response.Timestamp = time.Now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal response", zap.Error(err))
		_ = json.NewEncoder(w).Encode(APIResponse{Success: false, Timestamp: response.Timestamp})
		return
	}
	_, _ = w.Write(jsonData)
}

// writeError writes an error envelope with the status for its code
func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	_ = s.errorHandler.HandleError(err)
	s.writeResponse(w, APIResponse{
		Success: false,
		Error:   s.errorHandler.Body(err),
	}, s.errorHandler.StatusCode(err))
}
