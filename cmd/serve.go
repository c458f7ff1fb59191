package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-harvest/internal/harvest"
	"github.com/sells-group/lead-harvest/internal/model"
	"github.com/sells-group/lead-harvest/internal/state"
	"github.com/sells-group/lead-harvest/pkg/airtable"
)

var servePort int

// harvestRunner is the pipeline surface the API triggers.
type harvestRunner interface {
	Start(ctx context.Context, eventID string) error
	SyncCompany(ctx context.Context, companyID string) error
}

// eventSource is the records-store surface the API reads events from.
type eventSource interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	SetToken(token string)
}

// tokenStore persists a user-supplied store credential.
type tokenStore interface {
	Override(ctx context.Context, token string) error
}

// apiServer exposes the harvest state machine to the browser UI.
type apiServer struct {
	// runCtx outlives individual requests; background harvest runs are
	// bound to the server's lifetime, not the triggering request's.
	runCtx    context.Context
	state     *state.Store
	harvester harvestRunner
	records   eventSource
	tokens    tokenStore
}

func (s *apiServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/events/refresh", s.handleRefresh)
		r.Post("/events/{id}/harvest", s.handleHarvest)
		r.Post("/companies/{id}/sync", s.handleSync)
		r.Patch("/companies/{id}", s.handleEditCompany)
		r.Put("/token", s.handleSetToken)
	})

	return r
}

func (s *apiServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	events, err := s.records.ListEvents(r.Context())
	if err != nil {
		s.state.Log(model.LogLevelError, "Failed to load events: "+rootMessage(err))
		writeError(w, storeErrorStatus(err), rootMessage(err))
		return
	}
	s.state.SetEvents(events)
	s.state.Log(model.LogLevelInfo, fmt.Sprintf("Loaded %d events.", len(events)))
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *apiServer) handleHarvest(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	err := s.harvester.Start(s.runCtx, eventID)
	switch {
	case errors.Is(err, harvest.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, harvest.ErrRunActive):
		writeError(w, http.StatusConflict, "a harvest is already running")
	case err != nil:
		writeError(w, http.StatusInternalServerError, rootMessage(err))
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "event": eventID})
	}
}

func (s *apiServer) handleSync(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	err := s.harvester.SyncCompany(r.Context(), companyID)
	switch {
	case errors.Is(err, harvest.ErrCompanyNotFound):
		writeError(w, http.StatusNotFound, "company not found")
	case err != nil:
		writeError(w, storeErrorStatus(err), rootMessage(err))
	default:
		company, _ := s.state.Company(companyID)
		writeJSON(w, http.StatusOK, company)
	}
}

func (s *apiServer) handleEditCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "id")
	var req struct {
		Industry *string `json:"industry"`
		Category *string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, ok := s.state.Company(companyID); !ok {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	s.state.UpdateCompany(companyID, func(c model.Company) model.Company {
		if req.Industry != nil {
			c.Industry = *req.Industry
		}
		if req.Category != nil {
			c.Category = *req.Category
		}
		return c
	})

	company, _ := s.state.Company(companyID)
	writeJSON(w, http.StatusOK, company)
}

func (s *apiServer) handleSetToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := s.tokens.Override(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, rootMessage(err))
		return
	}
	s.records.SetToken(token)
	s.state.Log(model.LogLevelInfo, "Records-store token updated.")

	// Reload immediately so a fixed token shows results without a second
	// round-trip. A failure here still keeps the new token.
	events, err := s.records.ListEvents(r.Context())
	if err != nil {
		s.state.Log(model.LogLevelError, "Failed to load events: "+rootMessage(err))
		writeError(w, storeErrorStatus(err), rootMessage(err))
		return
	}
	s.state.SetEvents(events)
	s.state.Log(model.LogLevelInfo, fmt.Sprintf("Loaded %d events.", len(events)))
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// storeErrorStatus maps typed records-store failures onto the response
// status so the UI can distinguish a bad token from a missing table.
func storeErrorStatus(err error) int {
	var perm *airtable.PermissionError
	var notFound *airtable.NotFoundError
	switch {
	case errors.As(err, &perm):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// rootMessage unwinds eris wrapping to the user-facing cause message.
func rootMessage(err error) string {
	if cause := eris.Cause(err); cause != nil {
		return cause.Error()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser-facing API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Best-effort initial load; a bad token is fixable over the API.
		if err := env.loadEvents(ctx); err != nil {
			env.State.Log(model.LogLevelError, "Failed to load events: "+rootMessage(err))
			zap.L().Warn("initial event load failed", zap.Error(err))
		} else {
			env.State.Log(model.LogLevelInfo, fmt.Sprintf("Loaded %d events.", len(env.State.Events())))
		}

		api := &apiServer{
			runCtx:    ctx,
			state:     env.State,
			harvester: env.Harvester,
			records:   env.Records,
			tokens:    env.Credentials,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
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
