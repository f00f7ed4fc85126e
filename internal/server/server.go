package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ideaforge/internal/config"
	"ideaforge/internal/fallback"
	"ideaforge/internal/models"
	"ideaforge/internal/pipeline"
	"ideaforge/internal/session"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

const exhaustedMessage = "all providers failed, please try again later"

type Server struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	app      *echo.Echo
	address  string
	logger   *slog.Logger
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, p *pipeline.Pipeline, logger *slog.Logger) (*Server, error) {
	if p == nil {
		return nil, errors.New("pipeline must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:      cfg,
		pipeline: p,
		app:      e,
		address:  fmt.Sprintf(":%d", cfg.Server.Port),
		logger:   logger,
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed application, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	s.logger.Info("starting server", "addr", s.address, "providers", len(s.cfg.Providers))

	// Generation may walk the whole provider chain, so the write deadline
	// covers the sum of provider timeouts.
	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout(s.cfg),
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func writeTimeout(cfg config.Config) time.Duration {
	total := 15 * time.Second
	for _, p := range cfg.Providers {
		total += time.Duration(p.TimeoutMS) * time.Millisecond
	}
	return total
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)

	v1 := s.app.Group("/v1")
	v1.POST("/sessions", s.handleCreateSession)
	v1.DELETE("/sessions/:id", s.handleResetSession)
	v1.GET("/sessions/:id/history", s.handleHistory)
	v1.POST("/ideas", s.handleIdeas)
	v1.POST("/translations", s.handleTranslations)
	v1.POST("/briefs", s.handleBriefs)
	v1.GET("/providers/status", s.handleProviderStatus)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	sess := s.pipeline.Sessions().Create()
	return c.JSON(http.StatusCreated, sessionResponse{SessionID: sess.ID()})
}

func (s *Server) handleResetSession(c echo.Context) error {
	sess, err := s.pipeline.Sessions().Reset(c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sessionResponse{SessionID: sess.ID()})
}

func (s *Server) handleHistory(c echo.Context) error {
	sess, err := s.pipeline.Sessions().Get(c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, historyResponse{SessionID: sess.ID(), Entries: sess.History()})
}

func (s *Server) handleIdeas(c echo.Context) error {
	var req ideaRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	res, err := s.pipeline.Generate(c.Request().Context(), req.toModel())
	if err != nil {
		return toHTTPError(err)
	}
	if !res.Validation.Valid {
		return requestError{
			Status:  http.StatusUnprocessableEntity,
			Message: res.Validation.Warning,
			Type:    "validation_failed",
			Details: res,
		}
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleTranslations(c echo.Context) error {
	var req translationRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	language := req.Language
	if language == "" {
		language = s.cfg.Translation.DefaultLanguage
	}

	var (
		text string
		err  error
	)
	if req.Marker != "" {
		text, err = s.pipeline.TranslateSection(ctx, req.Text, req.Marker, language)
	} else {
		text, err = s.pipeline.Translate(ctx, req.Text, language)
	}
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, translationResponse{Text: text, Language: language, Section: req.Marker})
}

func (s *Server) handleBriefs(c echo.Context) error {
	var req briefRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	brief, err := s.pipeline.Brief(req.Text)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, briefResponse{Prompt: brief})
}

func (s *Server) handleProviderStatus(c echo.Context) error {
	results := s.pipeline.Probe(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{"providers": results})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Details any
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Details any    `json:"details,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, reqErr requestError) error {
	var payload errorBody
	payload.Error.Message = reqErr.Message
	payload.Error.Type = reqErr.Type
	payload.Error.Details = reqErr.Details
	return c.JSON(reqErr.Status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, requestError{
			Status:  he.Code,
			Message: fmt.Sprint(he.Message),
			Type:    "invalid_request_error",
		})
		return
	}

	_ = writeError(c, requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	})
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	var paramErr *models.ParamError
	switch {
	case errors.As(err, &paramErr):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: paramErr.Error(),
			Type:    "invalid_request_error",
			Details: paramErr.Problems,
		}
	case errors.Is(err, models.ErrInvalidInput):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    "invalid_request_error",
		}
	case errors.Is(err, session.ErrNotFound):
		return requestError{
			Status:  http.StatusNotFound,
			Message: err.Error(),
			Type:    "not_found_error",
		}
	case errors.Is(err, fallback.ErrAllProvidersExhausted):
		return requestError{
			Status:  http.StatusBadGateway,
			Message: exhaustedMessage,
			Type:    "upstream_error",
			Details: attemptDetails(err),
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return requestError{
			Status:  http.StatusServiceUnavailable,
			Message: "request cancelled before a provider answered",
			Type:    "upstream_error",
		}
	}

	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    "server_error",
	}
}

func attemptDetails(err error) []models.ProviderFailure {
	var exhausted *fallback.ExhaustedError
	if !errors.As(err, &exhausted) {
		return nil
	}
	details := make([]models.ProviderFailure, len(exhausted.Attempts))
	for i, a := range exhausted.Attempts {
		details[i] = models.ProviderFailure{ProviderName: a.Provider, Message: a.Err.Error()}
	}
	return details
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("ideaforge ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET    /health")
	fmt.Println("  POST   /v1/sessions")
	fmt.Println("  DELETE /v1/sessions/:id")
	fmt.Println("  GET    /v1/sessions/:id/history")
	fmt.Println("  POST   /v1/ideas")
	fmt.Println("  POST   /v1/translations")
	fmt.Println("  POST   /v1/briefs")
	fmt.Println("  GET    /v1/providers/status")
	fmt.Printf("Example:\n  curl http://%s:%d/v1/ideas -H 'Content-Type: application/json' -d '{\"sessionId\":\"game_gen_demo\",\"keywords\":\"ronda, warung\",\"platform\":\"2D\",\"timeline\":\"solo-short\",\"category\":\"Horror\"}'\n\n", host, port)
}
