package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/multifamily-cli/internal/analysis"
	"github.com/sells-group/multifamily-cli/internal/config"
	"github.com/sells-group/multifamily-cli/internal/report"
	"github.com/sells-group/multifamily-cli/internal/schedule"
)

const (
	shutdownTimeout = 10 * time.Second
	maxRequestBody  = 1 << 20
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		repo, err := loadRepository(ctx, cfg)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(repo, cfg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("starting server",
			zap.Int("port", cfg.Server.Port),
			zap.Strings("editions", editionNames(repo)),
		)
		return runServer(ctx, srv)
	},
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

// server holds the state shared by the API handlers.
type server struct {
	repo     *schedule.Repository
	analyzer *analysis.Analyzer
	cfg      *config.Config
	metrics  *apiMetrics
}

// buildRouter wires the API routes and middleware.
func buildRouter(repo *schedule.Repository, c *config.Config) http.Handler {
	s := &server{repo: repo, analyzer: newAnalyzer(repo, c), cfg: c, metrics: newAPIMetrics()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.metrics.middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if c.Server.RateLimit > 0 {
		r.Use(rateLimit(rate.NewLimiter(rate.Limit(c.Server.RateLimit), c.Server.RateBurst)))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/editions", s.handleEditions)
		r.Get("/editions/{edition}/zips/{zip}", s.handleZIP)
	})

	return r
}

// rateLimit rejects requests beyond the limiter's rate with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	p := defaultParams(s.cfg)
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.PostalCode == "" {
		writeError(w, http.StatusBadRequest, "zip is required")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), p)
	if err != nil {
		var ve *analysis.ValidationError
		if errors.As(err, &ve) {
			s.metrics.observeAnalysis("invalid")
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		zap.L().Error("api: analyze failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	status := http.StatusOK
	switch {
	case res.Error != "":
		status = http.StatusUnprocessableEntity
		s.metrics.observeAnalysis("fatal")
	case len(res.Warnings) > 0:
		s.metrics.observeAnalysis("partial")
	default:
		s.metrics.observeAnalysis("ok")
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprint(w, report.Format(res, p))
		return
	}
	writeJSON(w, status, res)
}

type editionResponse struct {
	Edition   schedule.Edition `json:"edition"`
	Title     string           `json:"title"`
	Effective string           `json:"effective"`
	Groups    []schedule.Group `json:"groups"`
	ZIPs      int              `json:"zip_count"`
	Default   bool             `json:"default"`
}

func (s *server) handleEditions(w http.ResponseWriter, _ *http.Request) {
	def := editionOrDefault(s.repo, s.cfg, "")
	out := make([]editionResponse, 0, len(s.repo.Editions()))
	for _, e := range s.repo.Editions() {
		sched, err := s.repo.Schedule(e)
		if err != nil {
			continue
		}
		out = append(out, editionResponse{
			Edition:   e,
			Title:     sched.Title(),
			Effective: sched.Effective().Format("2006-01-02"),
			Groups:    sched.Groups(),
			ZIPs:      len(sched.ZIPs()),
			Default:   e == def,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"editions": out})
}

type zipResponse struct {
	ZIP          string                        `json:"zip"`
	Edition      schedule.Edition              `json:"edition"`
	Group        schedule.RentGroup            `json:"group"`
	GroupLabel   string                        `json:"group_label"`
	Neighborhood string                        `json:"neighborhood"`
	Standards    map[schedule.BedroomClass]int `json:"standards"`
}

func (s *server) handleZIP(w http.ResponseWriter, r *http.Request) {
	edition := schedule.Edition(chi.URLParam(r, "edition"))
	zip := chi.URLParam(r, "zip")

	group, err := s.repo.ResolveGroup(zip, edition)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sched, err := s.repo.Schedule(edition)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	g, _ := sched.Group(group)

	writeJSON(w, http.StatusOK, zipResponse{
		ZIP:          zip,
		Edition:      edition,
		Group:        group,
		GroupLabel:   s.repo.GroupLabel(group, edition),
		Neighborhood: s.repo.NeighborhoodLabel(zip),
		Standards:    g.Ceilings,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func editionNames(repo *schedule.Repository) []string {
	var out []string
	for _, e := range repo.Editions() {
		out = append(out, string(e))
	}
	return out
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
