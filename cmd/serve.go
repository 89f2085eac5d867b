package main

import (
	"context"
	"encoding/json"
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

	"github.com/mapworks/censusmap/internal/geojson"
	"github.com/mapworks/censusmap/internal/pipeline"
	"github.com/mapworks/censusmap/internal/render"
	"github.com/mapworks/censusmap/internal/store"
)

var serveFlags joinFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the joined table over HTTP",
	Long:  "Runs the join pipeline once at startup and serves the result as GeoJSON, a summary endpoint, a chart page, and the run log.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, opts, err := serveFlags.execute(ctx)
		if err != nil {
			return err
		}

		featureJSON, err := geojson.Encode(res.Regions)
		if err != nil {
			return err
		}

		style, err := buildStyle()
		if err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		r := newServeMux(res, opts, featureJSON, style, st)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("dashboard listening", zap.Int("port", cfg.Server.Port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "server shutdown")
			}
			zap.L().Info("dashboard stopped")
			return nil
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "serve")
			}
			return nil
		}
	},
}

// serveSummary is the /api/summary payload.
type serveSummary struct {
	Year         int    `json:"year"`
	ParentRegion string `json:"parent_region,omitempty"`
	GeometryRows int    `json:"geometry_rows"`
	MatchedRows  int    `json:"matched_rows"`
	SkippedCodes int    `json:"skipped_codes"`
	TargetSRID   int    `json:"target_srid,omitempty"`
}

func newServeMux(res *pipeline.Result, opts pipeline.Options, featureJSON []byte, style render.Style, st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/api/regions", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write(featureJSON)
	})

	r.Get("/api/summary", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(serveSummary{
			Year:         opts.Year,
			ParentRegion: opts.ParentRegion,
			GeometryRows: res.GeometryRows,
			MatchedRows:  res.MatchedRows,
			SkippedCodes: res.SkippedCodes,
			TargetSRID:   opts.TargetSRID,
		})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		runs, err := st.Runs(req.Context(), 50)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(runs)
	})

	r.Get("/map", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := render.WriteChart(w, res.Regions, style); err != nil {
			zap.L().Error("chart render failed", zap.Error(err))
		}
	})

	return r
}

func init() {
	serveFlags.register(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
