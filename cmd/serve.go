package main

import (
	"context"
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

	"github.com/sells-group/cvmgrid/internal/model"
	"github.com/sells-group/cvmgrid/internal/pipeline"
	"github.com/sells-group/cvmgrid/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cached grids and their colorbars over HTTP",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return cfg.ValidateServe()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Pipeline, env.Store, cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// artifactDetail is the response body of GET /artifacts/{id}.
type artifactDetail struct {
	Artifact *store.Artifact `json:"artifact"`
	Meta     any             `json:"meta"`
	Colorbar any             `json:"colorbar"`
}

// buildRouter wires the read-only artifact API. st may be nil, in which
// case only /health is useful.
func buildRouter(p *pipeline.Pipeline, st store.Store, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/artifacts", func(r chi.Router) {
		r.Use(requireStore(st))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			filter := store.ArtifactFilter{Kind: q.Get("kind"), Model: q.Get("model")}
			var err error
			if filter.Limit, err = intParam(q.Get("limit")); err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			if filter.Offset, err = intParam(q.Get("offset")); err != nil {
				writeError(w, http.StatusBadRequest, "invalid offset")
				return
			}

			arts, err := st.ListArtifacts(r.Context(), filter)
			if err != nil {
				zap.L().Error("list artifacts", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "list failed")
				return
			}
			if arts == nil {
				arts = []store.Artifact{}
			}
			writeJSON(w, http.StatusOK, arts)
		})

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			a, ok := lookupArtifact(w, r, st)
			if !ok {
				return
			}
			out, err := p.Load(a.Base)
			if err != nil {
				zap.L().Warn("load artifact", zap.String("base", a.Base), zap.Error(err))
				writeError(w, http.StatusUnprocessableEntity, "artifact files unreadable")
				return
			}
			writeJSON(w, http.StatusOK, artifactDetail{Artifact: a, Meta: out.Meta, Colorbar: out.Colorbar})
		})

		r.Get("/{id}/values", func(w http.ResponseWriter, r *http.Request) {
			a, ok := lookupArtifact(w, r, st)
			if !ok {
				return
			}
			out, err := p.Load(a.Base)
			if err != nil {
				zap.L().Warn("load artifact", zap.String("base", a.Base), zap.Error(err))
				writeError(w, http.StatusUnprocessableEntity, "artifact files unreadable")
				return
			}
			rows := make([][]model.Optional, out.Grid.NumY)
			for i := range rows {
				rows[i] = out.Grid.Row(i)
			}
			writeJSON(w, http.StatusOK, rows)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := st.DeleteArtifact(r.Context(), id); err != nil {
				if eris.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusNotFound, "artifact not found")
					return
				}
				zap.L().Error("delete artifact", zap.String("id", id), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "delete failed")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func requireStore(st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if st == nil {
				writeError(w, http.StatusServiceUnavailable, "catalog not configured")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func lookupArtifact(w http.ResponseWriter, r *http.Request, st store.Store) (*store.Artifact, bool) {
	id := chi.URLParam(r, "id")
	a, err := st.GetArtifact(r.Context(), id)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "artifact not found")
			return nil, false
		}
		zap.L().Error("get artifact", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil, false
	}
	return a, true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
