package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iluma/rivalviews-cli/internal/config"
	"github.com/iluma/rivalviews-cli/internal/ilascore"
	"github.com/iluma/rivalviews-cli/internal/matching"
	"github.com/iluma/rivalviews-cli/internal/model"
	"github.com/iluma/rivalviews-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scoring and matching",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		eng, err := newEngine()
		if err != nil {
			return err
		}

		api := newAPIServer(s, eng, cfg.Matching)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.router(cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	store    store.Store
	engine   *matching.Engine
	matchCfg config.MatchingConfig
}

func newAPIServer(s store.Store, eng *matching.Engine, matchCfg config.MatchingConfig) *apiServer {
	return &apiServer{store: s, engine: eng, matchCfg: matchCfg}
}

func (a *apiServer) router(srvCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := srvCfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	if srvCfg.RatePerSecond > 0 {
		r.Use(rateLimiter(rate.Limit(srvCfg.RatePerSecond), srvCfg.RateBurst))
	}

	r.Get("/health", a.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/score", a.handleScore)
		r.Post("/matches", a.handleMatches)
		r.Get("/businesses", a.handleListBusinesses)
		r.Get("/businesses/{id}", a.handleGetBusiness)
		r.Get("/businesses/{id}/services", a.handleServices)
		r.Get("/businesses/{id}/similar", a.handleSimilar)
	})
	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// rateLimiter applies a shared token bucket across all clients.
func rateLimiter(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scoreRequest struct {
	Subscores ilascore.Subscores     `json:"subscores"`
	Bonus     *ilascore.BonusMetrics `json:"bonus,omitempty"`
}

func (a *apiServer) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := ilascore.ComputeStrict(req.Subscores, req.Bonus); err != nil {
		writeError(w, http.StatusBadRequest, eris.Cause(err).Error())
		return
	}

	writeJSON(w, http.StatusOK, ilascore.ComputeBreakdown(req.Subscores, req.Bonus))
}

type matchRequest struct {
	Criteria model.MatchCriteria `json:"criteria"`
	Limit    int                 `json:"limit,omitempty"`
	Insights bool                `json:"insights,omitempty"`
}

type matchResponse struct {
	Matches  []model.MatchResult   `json:"matches"`
	Insights *model.InsightSummary `json:"insights,omitempty"`
}

func (a *apiServer) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	businesses, err := a.store.ListBusinesses(r.Context(), store.BusinessFilter{Limit: a.matchCfg.MaxResults})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list businesses failed")
		return
	}

	matches := a.engine.FindMatches(businesses, req.Criteria, req.Limit)
	resp := matchResponse{Matches: matches}
	if req.Insights {
		summary := a.engine.Insights(matches, req.Criteria)
		resp.Insights = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *apiServer) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	filter := store.BusinessFilter{Limit: a.matchCfg.MaxResults}
	q := r.URL.Query()
	if v := q.Get("sector"); v != "" {
		filter.Sectors = []string{v}
	}
	if v := q.Get("city"); v != "" {
		filter.Cities = []string{v}
	}
	if v := q.Get("status"); v != "" {
		filter.Status = model.BusinessStatus(v)
	}
	if v := q.Get("min_ila"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_ila must be an integer")
			return
		}
		filter.MinILAScore = n
	}

	businesses, err := a.store.ListBusinesses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list businesses failed")
		return
	}
	if businesses == nil {
		businesses = []model.BusinessRecord{}
	}
	writeJSON(w, http.StatusOK, businesses)
}

func (a *apiServer) handleGetBusiness(w http.ResponseWriter, r *http.Request) {
	b, ok := a.lookupBusiness(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *apiServer) handleServices(w http.ResponseWriter, r *http.Request) {
	b, ok := a.lookupBusiness(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.engine.RecommendService(*b))
}

func (a *apiServer) handleSimilar(w http.ResponseWriter, r *http.Request) {
	b, ok := a.lookupBusiness(w, r)
	if !ok {
		return
	}

	limit := a.matchCfg.SimilarLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	pool, err := a.store.ListBusinesses(r.Context(), store.BusinessFilter{Limit: a.matchCfg.MaxResults})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list businesses failed")
		return
	}

	similar := a.engine.FindSimilar(*b, pool, limit)
	if similar == nil {
		similar = []model.BusinessRecord{}
	}
	writeJSON(w, http.StatusOK, similar)
}

func (a *apiServer) lookupBusiness(w http.ResponseWriter, r *http.Request) (*model.BusinessRecord, bool) {
	id := chi.URLParam(r, "id")
	b, err := a.store.GetBusiness(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("business %s not found", id))
		return nil, false
	}
	return b, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
