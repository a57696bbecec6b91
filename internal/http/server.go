// Package http is the JSON API over the budgeting services.
package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	applog "envelope/internal/log"
	"envelope/internal/services"
)

type Server struct {
	http.Server
	budgets    *services.BudgetService
	funds      *services.FundService
	increments *services.IncrementService
	copier     *services.CopyService
	txns       *services.TransactionService

	logger      *applog.StructuredLogger
	rateLimiter *rateLimiter
}

// Services bundles the engine's service layer for route wiring.
type Services struct {
	Budgets    *services.BudgetService
	Funds      *services.FundService
	Increments *services.IncrementService
	Copier     *services.CopyService
	Txns       *services.TransactionService
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Services, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		budgets:     svc.Budgets,
		funds:       svc.Funds,
		increments:  svc.Increments,
		copier:      svc.Copier,
		txns:        svc.Txns,
		logger:      applog.NewStructuredLogger(logger.WithComponent(applog.ComponentHTTP)),
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/v1/budgets", s.wrap(s.handleGetBudgets))
	mux.HandleFunc("POST /api/v1/budgets", s.wrap(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budgets/names", s.wrap(s.handleBudgetNames))
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.wrap(s.handleDeleteBudget))
	mux.HandleFunc("POST /api/v1/budgets/apply-increments", s.wrap(s.handleApplyIncrements))
	mux.HandleFunc("POST /api/v1/budgets/copy", s.wrap(s.handleCopyBudgets))

	mux.HandleFunc("GET /api/v1/budgets/funds/{id}", s.wrap(s.handleCalculateFund))
	mux.HandleFunc("POST /api/v1/budgets/funds/{id}/combine", s.wrap(s.handleCombineFunds))
	mux.HandleFunc("POST /api/v1/budgets/funds/{id}/unlink", s.wrap(s.handleUnlinkFund))
	mux.HandleFunc("GET /api/v1/budgets/masters/{id}", s.wrap(s.handleMasterDetails))
	mux.HandleFunc("POST /api/v1/budgets/masters/{id}/months", s.wrap(s.handleAddMonthToMaster))
	mux.HandleFunc("POST /api/v1/budgets/masters/{id}/discontinue", s.wrap(s.handleDiscontinueMaster))
	mux.HandleFunc("GET /api/v1/budgets/masters/orphaned", s.wrap(s.handleOrphanedMasters))

	mux.HandleFunc("POST /api/v1/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("POST /api/v1/transactions/{id}/assign", s.wrap(s.handleAssignTransaction))
	mux.HandleFunc("POST /api/v1/transactions/{id}/type", s.wrap(s.handleMarkTransactionType))
	mux.HandleFunc("POST /api/v1/transactions/{id}/breakdown", s.wrap(s.handleCreateBreakdown))
	mux.HandleFunc("PATCH /api/v1/line-items/{id}", s.wrap(s.handleUpdateLineItem))
	mux.HandleFunc("DELETE /api/v1/line-items/{id}", s.wrap(s.handleDeleteLineItem))

	// Every request gets a context logger stamped with a request id.
	chain := applog.Middleware(logger)(
		applog.RequestIDMiddleware(func(*http.Request) string { return generateRequestID() })(mux))
	s.Server.Handler = chain

	return s
}

// wrap adds request logging, rate limiting on mutations, and security headers.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientIP(r)
		ctx := r.Context()

		s.logger.LogHTTPStart(ctx, r, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			s.logger.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		s.logger.LogHTTPEnd(ctx, r, rw.status, time.Since(start).Milliseconds(), clientIP)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// rateLimiter allows 60 mutating requests per client per minute.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{clients: make(map[string]*clientInfo)}
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists || now.Sub(client.lastRequest) > time.Minute {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		rl.pruneStale(now)
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

// pruneStale drops entries idle for over ten minutes. Called under rl.mu.
func (rl *rateLimiter) pruneStale(now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}
