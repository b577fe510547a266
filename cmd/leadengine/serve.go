package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leadengine/internal/artifact"
	"leadengine/internal/events"
	"leadengine/internal/pipeline"
	"leadengine/internal/store"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the event feed and the pipeline trigger over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, appOptions{needLLM: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.cfg.Addr
			}

			srv := newServer(ctx, a)
			httpSrv := &http.Server{Addr: addr, Handler: srv.routes(), ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				log.Printf("leadengine listening on %s", addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
				log.Println("shutting down server...")
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			srv.wait()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from PORT, else :8080)")
	return cmd
}

// server is a thin HTTP adapter over the app. Pipeline runs outlive the
// triggering request and stop when base is cancelled.
type server struct {
	a    *app
	base context.Context
	wg   sync.WaitGroup
}

func newServer(base context.Context, a *app) *server {
	return &server{a: a, base: base}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws/events", events.NewHandler(s.a.bus, s.a.logger))
	mux.HandleFunc("GET /api/leads", s.listLeads)
	mux.HandleFunc("GET /api/leads/{id}", s.getLead)
	mux.HandleFunc("GET /api/leads/{id}/site", s.getSite)
	mux.HandleFunc("POST /api/leads/{id}/pipeline", s.runPipeline)
	return cors(mux)
}

func (s *server) wait() { s.wg.Wait() }

func (s *server) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.a.store.GetLeads(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *server) getLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.a.store.GetLead(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *server) getSite(w http.ResponseWriter, r *http.Request) {
	files, err := s.a.sites.GetSite(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

type runRequest struct {
	Agent string `json:"agent"`
	Stage string `json:"stage"`
}

func (s *server) runPipeline(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}
	var stage pipeline.Stage
	if strings.TrimSpace(req.Stage) != "" {
		st, err := pipeline.ParseStage(req.Stage)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		stage = st
	}
	p, err := s.a.agentByID(req.Agent)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	l, err := s.a.store.GetLead(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if l.Status.IsTerminal() {
		http.Error(w, pipeline.ErrLeadClosed.Error(), http.StatusConflict)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		var err error
		if stage != "" {
			_, _, err = s.a.orch.RunStage(s.base, l, stage, p)
		} else {
			_, _, err = s.a.orch.RunFullPipeline(s.base, l, p)
		}
		if err != nil {
			s.a.logger.Printf("serve: lead %s: %v", l.ID, err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"lead_id": l.ID, "status": "started"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
