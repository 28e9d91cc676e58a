package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

const (
	maxRequestBytes = 64 * 1024
	shutdownTimeout = 10 * time.Second
)

// analyzer is the part of core.AnalysisService the dashboard drives
type analyzer interface {
	Analyze(ctx context.Context, listing core.Listing) (*core.Analysis, error)
	Ready() error
	LoadCatalog(ctx context.Context) error
	Catalog() []core.CatalogItem
}

// Dashboard serves the analyst web page and its JSON API
type Dashboard struct {
	service        analyzer
	logger         *zap.Logger
	listenAddr     string
	allowedOrigins []string
	server         *http.Server
	listener       net.Listener
}

// analyzeRequest is the JSON body accepted by POST /analyze
type analyzeRequest struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// analyzeResponse is the JSON body returned by POST /analyze
type analyzeResponse struct {
	Result             *core.AnalysisResult `json:"result"`
	Report             string               `json:"report"`
	Notification       *core.Notification   `json:"notification,omitempty"`
	NotificationQueued bool                 `json:"notification_queued"`
	FromCache          bool                 `json:"from_cache"`
}

// errorResponse is the JSON body returned for failures
type errorResponse struct {
	Error      string `json:"error"`
	RawExcerpt string `json:"raw_excerpt,omitempty"`
}

// NewDashboard creates a new dashboard front end
func NewDashboard(service analyzer, logger *zap.Logger, listenAddr string, allowedOrigins []string) *Dashboard {
	return &Dashboard{
		service:        service,
		logger:         logger,
		listenAddr:     listenAddr,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the HTTP routes
func (d *Dashboard) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(d.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", d.handleIndex)
	r.Post("/analyze", d.handleAnalyze)
	r.Get("/health", d.handleHealth)
	r.Post("/catalog/reload", d.handleReload)

	return r
}

// Start starts the dashboard HTTP server
func (d *Dashboard) Start() error {
	ln, err := net.Listen("tcp", d.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.listenAddr, err)
	}
	d.listener = ln
	d.server = &http.Server{
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	d.logger.Info("Dashboard starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("Dashboard server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address once started
func (d *Dashboard) Addr() string {
	if d.listener == nil {
		return d.listenAddr
	}
	return d.listener.Addr().String()
}

// Stop gracefully shuts the dashboard down
func (d *Dashboard) Stop() error {
	if d.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return d.server.Shutdown(ctx)
}

func (d *Dashboard) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		d.logger.Debug("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (d *Dashboard) basePage() pageData {
	data := pageData{CatalogSize: len(d.service.Catalog())}
	if err := d.service.Ready(); err != nil {
		data.ConfigError = core.UserMessage(err)
	}
	return data
}

func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	d.render(w, http.StatusOK, d.basePage())
}

func (d *Dashboard) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	if isJSON(r) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			d.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object with name and price"})
			return
		}
		analysis, err := d.service.Analyze(r.Context(), core.Listing{Name: req.Name, Price: req.Price})
		if err != nil {
			d.writeJSON(w, statusFor(err), errorResponse{
				Error:      core.UserMessage(err),
				RawExcerpt: core.Diagnostic(err),
			})
			return
		}
		d.writeJSON(w, http.StatusOK, analyzeResponse{
			Result:             analysis.Result,
			Report:             analysis.Report.Summary,
			Notification:       analysis.Report.Notification,
			NotificationQueued: analysis.NotificationQueued,
			FromCache:          analysis.Result.FromCache,
		})
		return
	}

	data := d.basePage()
	if err := r.ParseForm(); err != nil {
		data.Error = "The form could not be read."
		d.render(w, http.StatusBadRequest, data)
		return
	}
	data.Name = r.PostFormValue("name")
	data.Price = strings.TrimSpace(r.PostFormValue("price"))

	price, err := strconv.Atoi(data.Price)
	if err != nil {
		data.Error = "Price must be a whole number."
		d.render(w, http.StatusBadRequest, data)
		return
	}

	analysis, err := d.service.Analyze(r.Context(), core.Listing{Name: data.Name, Price: price})
	if err != nil {
		data.Error = core.UserMessage(err)
		data.Diagnostic = core.Diagnostic(err)
		d.render(w, statusFor(err), data)
		return
	}
	data.Analysis = analysis
	d.render(w, http.StatusOK, data)
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":        "ok",
		"catalog_items": len(d.service.Catalog()),
	}
	if err := d.service.Ready(); err != nil {
		status["status"] = "unavailable"
		status["error"] = core.UserMessage(err)
		d.writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	d.writeJSON(w, http.StatusOK, status)
}

func (d *Dashboard) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := d.service.LoadCatalog(r.Context()); err != nil {
		d.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: core.UserMessage(err)})
		return
	}
	d.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "reloaded",
		"catalog_items": len(d.service.Catalog()),
	})
}

func (d *Dashboard) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		d.logger.Error("Failed to render page", zap.Error(err))
	}
}

func (d *Dashboard) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		d.logger.Error("Failed to write response", zap.Error(err))
	}
}

func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// statusClientClosedRequest is the non-standard status used for requests
// the client abandoned
const statusClientClosedRequest = 499

// statusFor maps analysis failures onto HTTP status codes
func statusFor(err error) int {
	var cfgErr *core.ConfigError
	switch {
	case errors.Is(err, core.ErrAnalysisCanceled):
		return statusClientClosedRequest
	case errors.Is(err, core.ErrInvalidListing):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrAnalysisInProgress):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrModelRefused):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
