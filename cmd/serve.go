package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
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

	"github.com/medlin-app/medlin/internal/pipeline"
	"github.com/medlin-app/medlin/internal/reshape"
	"github.com/medlin-app/medlin/pkg/insee"
)

var servePort int

// clientHeader identifies the browser tab a query comes from. Only the
// latest query of a client for a given resource is answered.
const clientHeader = "X-Client-ID"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API consumed by the front-end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, cfg, "serve")
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
			Handler:           newRouter(env.Pipeline, cfg.Server.AllowedOrigins),
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

// api serves the pipeline over HTTP.
type api struct {
	pipeline *pipeline.Pipeline
	sessions *pipeline.Sessions
}

func newRouter(p *pipeline.Pipeline, origins []string) http.Handler {
	a := &api{pipeline: p, sessions: pipeline.NewSessions(pipeline.DefaultSessionIdle)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", clientHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats/{topic}", a.stats)
		r.Get("/etablissements", a.establishments)
		r.Get("/boundaries", a.boundaries)
	})
	return r
}

func (a *api) session(r *http.Request) *pipeline.Session {
	return a.sessions.Get(sessionKey(r))
}

// sessionKey scopes a session to one client and one resource, so a query
// only supersedes an earlier query for the same topic or listing.
func sessionKey(r *http.Request) string {
	client := r.Header.Get(clientHeader)
	if client == "" {
		client = r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			client = host
		}
	}
	return client + "|" + r.URL.Path
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	level := insee.Commune
	if raw := r.URL.Query().Get("level"); raw != "" {
		l, err := insee.ParseLevel(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		level = l
	}
	q := pipeline.Query{
		Topic: chi.URLParam(r, "topic"),
		Level: level,
		Codes: splitCodes(r.URL.Query().Get("codes")),
	}
	if _, err := insee.Lookup(q.Topic); err != nil {
		respondError(w, http.StatusNotFound, err)
		return
	}
	if err := insee.ValidateCodes(q.Level, q.Codes); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := pipeline.Run(r.Context(), a.session(r), func(ctx context.Context) (*pipeline.StatsResult, error) {
		return a.pipeline.Stats(ctx, q)
	})
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (a *api) establishments(w http.ResponseWriter, r *http.Request) {
	naf := r.URL.Query().Get("naf")
	communes := splitCodes(r.URL.Query().Get("communes"))
	if err := insee.ValidateNAF(naf); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := insee.ValidateCodes(insee.Commune, communes); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	res, err := pipeline.Run(r.Context(), a.session(r), func(ctx context.Context) (*pipeline.EstablishmentsResult, error) {
		return a.pipeline.Establishments(ctx, naf, communes)
	})
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	respond(w, http.StatusOK, res)
}

func (a *api) boundaries(w http.ResponseWriter, r *http.Request) {
	communes := splitCodes(r.URL.Query().Get("communes"))
	if err := insee.ValidateCodes(insee.Commune, communes); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	fc, missing, err := a.pipeline.Boundaries(r.Context(), communes)
	if err != nil {
		respondError(w, statusOf(err), err)
		return
	}
	if len(missing) > 0 {
		zap.L().Warn("serve: boundaries missing", zap.Strings("codes", missing))
	}
	respond(w, http.StatusOK, fc)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrStale):
		return http.StatusConflict
	case errors.Is(err, reshape.ErrNoData):
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("serve: encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respond(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
