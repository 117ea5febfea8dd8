package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/splitview/content-service/internal/auth"
	"github.com/splitview/content-service/internal/blob"
	"github.com/splitview/content-service/internal/config"
	"github.com/splitview/content-service/internal/content"
	"github.com/splitview/content-service/internal/fetch"
	"github.com/splitview/content-service/internal/pane"
	"github.com/splitview/content-service/internal/patent"
	"github.com/splitview/content-service/internal/proxy"
	"github.com/splitview/content-service/internal/resolve"
)

var (
	cfg config.Config
	log zerolog.Logger

	requestSem *semaphore.Weighted
	blobs      *blob.Store
	resolver   *resolve.Resolver
	proxySvc   *proxy.Service
	authSvc    *auth.Service

	// Per-pane viewer state
	panes = &sync.Map{}

	// Per-IP rate limiters
	limiters = &sync.Map{}

	metrics = &serverMetrics{}
)

type serverMetrics struct {
	mu            sync.RWMutex
	totalRequests int64
	activeReqs    int64
}

func (m *serverMetrics) incActive() {
	m.mu.Lock()
	m.activeReqs++
	m.totalRequests++
	m.mu.Unlock()
}
func (m *serverMetrics) decActive() {
	m.mu.Lock()
	m.activeReqs--
	m.mu.Unlock()
}
func (m *serverMetrics) get() (total, active int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalRequests, m.activeReqs
}

func main() {
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg = config.Load()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("config file")
		}
		config.Apply(&cfg, fc)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	requestSem = semaphore.NewWeighted(cfg.MaxConcurrentRequests)
	blobs = blob.NewStore()

	client, probes := newFetchClients()

	pdfLinks := &patent.PDFLinkResolver{Client: probes}
	resolver = resolve.New(client, blobs, pdfLinks, cfg.MaxFetchBytes, cfg.MaxDecodeBytes, log)
	proxySvc = &proxy.Service{
		Pages:    client,
		Resolver: pdfLinks,
		MaxBytes: cfg.MaxFetchBytes,
		Log:      log,
	}
	authSvc = auth.NewService(cfg.JWTSecret, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/metrics", withInternalAuth(handleMetrics))

	// Content pipeline
	mux.HandleFunc("/api/resolve",
		withRateLimit(
			withMethod("POST",
				withConcurrencyLimit(handleResolve))))
	mux.HandleFunc("/api/unmount",
		withRateLimit(
			withMethod("POST", handleUnmount)))
	mux.HandleFunc("/api/blob/",
		withMethod("GET", handleBlob))

	// Same-origin relay for framed pages and patent PDFs
	mux.HandleFunc("/api/proxy",
		withRateLimit(
			withMethod("GET",
				withConcurrencyLimit(proxySvc.HandleProxy))))
	mux.HandleFunc("/api/proxy-pdf",
		withRateLimit(
			withMethod("GET",
				withConcurrencyLimit(proxySvc.HandleProxyPDF))))

	// Sessions
	mux.HandleFunc("/api/signup", withRateLimit(withMethod("POST", authSvc.HandleSignup)))
	mux.HandleFunc("/api/login", withRateLimit(withMethod("POST", authSvc.HandleLogin)))
	mux.HandleFunc("/api/forgot-password", withRateLimit(withMethod("POST", authSvc.HandleForgotPassword)))
	mux.HandleFunc("/api/reset-password", withRateLimit(withMethod("POST", authSvc.HandleResetPassword)))
	mux.HandleFunc("/api/google-login", withRateLimit(withMethod("POST", authSvc.HandleGoogleLogin)))
	mux.HandleFunc("/api/verify-token", withRateLimit(authSvc.HandleVerifyToken))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withLogging(withRecovery(mux)),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go housekeeping()

	log.Info().
		Str("addr", srv.Addr).
		Int64("maxConcurrent", cfg.MaxConcurrentRequests).
		Msg("content service listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}

// newFetchClients builds the two upstream clients: pages retry per the
// configured bound, probes issue a single HEAD per candidate so PDF-link
// verification never multiplies attempts across its three stages.
func newFetchClients() (pages, probes *fetch.Client) {
	pages = fetch.New(cfg.FetchTimeout)
	pages.MaxAttempts = cfg.FetchAttempts
	pages.RetryDelay = cfg.FetchDelay

	probes = fetch.New(cfg.FetchTimeout)
	probes.MaxAttempts = 1
	return pages, probes
}

// housekeeping resets the per-IP limiter map, sweeps expired blob handles,
// and logs a liveness line on the cleanup interval.
func housekeeping() {
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		swept := 0
		if cfg.BlobMaxAge > 0 {
			swept = blobs.SweepOlderThan(time.Now().Add(-cfg.BlobMaxAge))
		}

		total, active := metrics.get()
		log.Info().
			Int64("active", active).
			Int64("total", total).
			Int("blobs", blobs.Len()).
			Int("swept", swept).
			Msg("stats")

		limiters = &sync.Map{}
	}
}

// ---------- Handlers ----------

func handleHealth(w http.ResponseWriter, r *http.Request) {
	_, active := metrics.get()
	status := "healthy"
	code := http.StatusOK

	if active >= int64(float64(cfg.MaxConcurrentRequests)*0.9) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"active":  active,
		"version": "1.0.0",
	})
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	total, active := metrics.get()

	nPanes := 0
	panes.Range(func(_, _ any) bool { nPanes++; return true })

	writeJSON(w, http.StatusOK, map[string]any{
		"activeRequests": active,
		"totalRequests":  total,
		"panes":          nPanes,
		"liveBlobs":      blobs.Len(),
	})
}

type resolveBody struct {
	PaneID string `json:"paneId"`
	URL    string `json:"url"`
}

// handleResolve runs one pane request through the pipeline. The body is
// either JSON {paneId, url} or a multipart form with a "file" part and a
// "paneId" field for uploads.
func handleResolve(w http.ResponseWriter, r *http.Request) {
	var (
		paneID   string
		req      content.Request
		issued   bool
		p        *pane.Pane
		isUpload = strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
	)

	if isUpload {
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes); err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", "invalid multipart body")
			return
		}
		paneID = strings.TrimSpace(r.FormValue("paneId"))
		if paneID == "" {
			writeErr(w, http.StatusBadRequest, "validation_failed", "paneId required")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeErr(w, http.StatusBadRequest, "validation_failed", "file part required")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes+1))
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", "reading upload failed")
			return
		}
		if int64(len(data)) > cfg.MaxUploadBytes {
			writeErr(w, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("upload exceeds the %dMB limit", cfg.MaxUploadBytes/(1<<20)))
			return
		}

		p = paneFor(paneID)
		req, issued = p.BeginUpload(header.Filename, data)
	} else {
		body, err := parseJSON[resolveBody](r, cfg.MaxJSONBodyBytes)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
			return
		}
		if strings.TrimSpace(body.PaneID) == "" {
			writeErr(w, http.StatusBadRequest, "validation_failed", "paneId required")
			return
		}
		if strings.TrimSpace(body.URL) == "" {
			writeErr(w, http.StatusBadRequest, "validation_failed", "url required")
			return
		}

		paneID = body.PaneID
		p = paneFor(paneID)
		req, issued = p.Begin(body.URL)
	}

	if !issued {
		// Identical locator; the pane keeps what it already shows.
		writeJSON(w, http.StatusOK, map[string]any{
			"paneId":    paneID,
			"state":     p.State(),
			"content":   p.Content(),
			"debounced": true,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.ResolveTimeout)
	defer cancel()

	c := resolver.Resolve(ctx, p.ID(), req)
	committed := p.Commit(req, c)

	writeJSON(w, http.StatusOK, map[string]any{
		"paneId":    paneID,
		"state":     p.State(),
		"content":   p.Content(),
		"committed": committed,
	})
}

func handleUnmount(w http.ResponseWriter, r *http.Request) {
	body, err := parseJSON[resolveBody](r, cfg.MaxJSONBodyBytes)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}
	if strings.TrimSpace(body.PaneID) == "" {
		writeErr(w, http.StatusBadRequest, "validation_failed", "paneId required")
		return
	}

	if v, ok := panes.LoadAndDelete(body.PaneID); ok {
		v.(*pane.Pane).Unmount()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func handleBlob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/blob/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, http.StatusNotFound, "not_found", "unknown blob")
		return
	}

	entry, ok := blobs.Get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "not_found", "unknown blob")
		return
	}

	ct := entry.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	if entry.FileName != "" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("inline; filename=%q", entry.FileName))
	}
	w.Header().Set("Cache-Control", "private, max-age=0")
	w.Write(entry.Data)
}

func paneFor(id string) *pane.Pane {
	if v, ok := panes.Load(id); ok {
		return v.(*pane.Pane)
	}
	v, _ := panes.LoadOrStore(id, pane.New(id, blobs))
	return v.(*pane.Pane)
}

// ---------- Middleware ----------

func withMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method must be "+method)
			return
		}
		next(w, r)
	}
}

func withInternalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Internal-Auth")
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.InternalSharedSecret)) != 1 {
			writeErr(w, http.StatusUnauthorized, "unauthorized", "Invalid authentication")
			return
		}
		next(w, r)
	}
}

func withConcurrencyLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := requestSem.Acquire(r.Context(), 1); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "capacity", "Service at capacity")
			return
		}
		defer requestSem.Release(1)

		metrics.incActive()
		defer metrics.decActive()

		next(w, r)
	}
}

func withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		limiter := getRateLimiter(ip)

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeErr(w, http.StatusTooManyRequests, "rate_limit", "Rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("panic", err).Str("path", sanitizeLogString(r.URL.Path)).Msg("recovered")
				writeErr(w, http.StatusInternalServerError, "internal_error", "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("path", sanitizeLogString(r.URL.Path)).
			Int("status", ww.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ---------- Helpers ----------

func getRateLimiter(ip string) *rate.Limiter {
	if v, ok := limiters.Load(ip); ok {
		return v.(*rate.Limiter)
	}

	every := cfg.RateLimitEvery
	if every <= 0 {
		every = 600 * time.Millisecond // ~100/min
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 20
	}

	limiter := rate.NewLimiter(rate.Every(every), burst)
	limiters.Store(ip, limiter)
	return limiter
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	return msg
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

func parseJSON[T any](r *http.Request, limit int64) (T, error) {
	var out T
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&out); err != nil {
		return out, err
	}

	// Ensure there's nothing else after the first JSON value
	if err := dec.Decode(new(any)); err != io.EOF {
		if err == nil {
			return out, fmt.Errorf("unexpected trailing data")
		}
		return out, err
	}

	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
