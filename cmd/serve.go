package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tapline/happyhour-cli/internal/consensus"
	"github.com/tapline/happyhour-cli/internal/ingest"
	"github.com/tapline/happyhour-cli/internal/model"
	"github.com/tapline/happyhour-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for claim ingestion and analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		engine, err := initEngine()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		api := &apiServer{
			engine:  engine,
			store:   st,
			limiter: rate.NewLimiter(rate.Limit(cfg.Server.IngestRate), cfg.Server.IngestBurst),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine  *consensus.Engine
	store   store.Store
	limiter *rate.Limiter
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/claims", s.handleClaims)
		r.Get("/analyses", s.handleListAnalyses)
		r.Get("/analyses/{id}", s.handleGetAnalysis)
		r.Get("/review", s.handleReviewQueue)
	})
	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeRequest carries one venue's claims for synchronous analysis.
type analyzeRequest struct {
	Venue    model.Venue   `json:"venue"`
	Category string        `json:"category,omitempty"`
	Claims   []model.Claim `json:"claims"`
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Claims) == 0 {
		writeError(w, http.StatusBadRequest, "claims are required")
		return
	}

	// Agents may omit claim_id; assign one here the same way file ingestion
	// does, so supporting/conflicting claim lists always resolve.
	for i := range req.Claims {
		if req.Claims[i].ID == "" {
			req.Claims[i].ID = uuid.NewString()
		}
	}

	category := req.Category
	if category == "" {
		category = req.Venue.Category
	}

	ctx := r.Context()
	a, err := s.store.CreateAnalysis(ctx, req.Venue, category)
	if err != nil {
		zap.L().Error("create analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create analysis failed")
		return
	}
	if err := s.store.SaveClaims(ctx, a.ID, req.Claims); err != nil {
		zap.L().Error("save claims failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save claims failed")
		return
	}

	result, err := s.engine.Compute(req.Claims, category)
	if err != nil {
		_ = s.store.FailAnalysis(ctx, a.ID, err.Error())
		if errors.Is(err, consensus.ErrNoClaims) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Venue.Name != "" {
		result.VenueName = req.Venue.Name
	}

	if err := s.store.SaveResult(ctx, a.ID, result); err != nil {
		zap.L().Error("save result failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save result failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": a.ID,
		"result":      result,
	})
}

// handleClaims ingests a claim stream into a queued analysis without
// computing. Rate limited so a misbehaving agent cannot flood the store.
func (s *apiServer) handleClaims(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "ingest rate exceeded")
		return
	}

	ctx := r.Context()
	venueName := r.URL.Query().Get("venue")
	category := r.URL.Query().Get("category")

	claims, err := ingest.Collect(ctx, r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(claims) == 0 {
		writeError(w, http.StatusBadRequest, "no valid claims in body")
		return
	}

	a, err := s.store.CreateAnalysis(ctx, model.Venue{Name: venueName, Category: category}, category)
	if err != nil {
		zap.L().Error("create analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create analysis failed")
		return
	}
	if err := s.store.SaveClaims(ctx, a.ID, claims); err != nil {
		zap.L().Error("save claims failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "save claims failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"analysis_id": a.ID,
		"claims":      len(claims),
	})
}

func (s *apiServer) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	a, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		zap.L().Error("get analysis failed", zap.String("analysis_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (s *apiServer) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := store.AnalysisFilter{
		Status:      model.AnalysisStatus(q.Get("status")),
		VenueName:   q.Get("venue"),
		NeedsReview: q.Get("needs_review") == "true",
		Limit:       limit,
		Offset:      offset,
	}

	analyses, err := s.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		zap.L().Error("list analyses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list analyses failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

func (s *apiServer) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	queue, err := s.store.ListReviewQueue(r.Context(), limit)
	if err != nil {
		zap.L().Error("review queue failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "review queue failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": queue,
		"count":    len(queue),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
