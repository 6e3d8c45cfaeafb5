package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelcut/reelcut-agent/internal/backend"
	"github.com/reelcut/reelcut-agent/internal/dispatch"
	"github.com/reelcut/reelcut-agent/internal/history"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Post("/session/load", loadHandler(cfg))
		r.Post("/session/command", commandHandler(cfg))
		r.Post("/session/edit", editHandler(cfg))
		r.Post("/session/undo", undoHandler(cfg))
		r.Post("/session/redo", redoHandler(cfg))
		r.Post("/session/export", exportHandler(cfg))
		r.Post("/session/close", closeHandler(cfg))

		r.Get("/sessions", listSessionsHandler(cfg))
		r.Get("/sessions/{id}/entries", listEntriesHandler(cfg))

		r.Get("/preview/frame", frameHandler(cfg))
		r.Post("/preview/play", playHandler(cfg))
		r.Post("/preview/pause", pauseHandler(cfg))
		r.Post("/preview/stop", stopHandler(cfg))
		r.Post("/preview/seek", seekHandler(cfg))

		r.Get("/playback/file", playbackFileHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := cfg.Editor.Status()
		state := "idle"
		switch {
		case st.Playing:
			state = "playing"
		case st.Loaded:
			state = "loaded"
		}
		WriteJSON(w, http.StatusOK, statusResponse(state, st))
	}
}

func loadHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.LoadVideo(r.Context(), req.Path); err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, statusResponse("loaded", cfg.Editor.Status()))
	}
}

func commandHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
			WriteError(w, http.StatusBadRequest, "command is required", "BAD_REQUEST")
			return
		}

		outcome, err := cfg.Editor.ApplyCommand(r.Context(), req.Command)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, EditResponse{
			Status:     string(outcome.Status),
			OutputPath: outcome.OutputPath,
			Editor:     cfg.Editor.Status(),
		})
	}
}

func editHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
			WriteError(w, http.StatusBadRequest, "action is required", "BAD_REQUEST")
			return
		}

		outcome, err := cfg.Editor.ApplyRequest(r.Context(), dispatch.Request{
			Action: req.Action,
			Params: req.Params,
		})
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, EditResponse{
			Status:     string(outcome.Status),
			OutputPath: outcome.OutputPath,
			Editor:     cfg.Editor.Status(),
		})
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := cfg.Editor.Undo(r.Context())
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, HistoryStepResponse{CurrentPath: path, Editor: cfg.Editor.Status()})
	}
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := cfg.Editor.Redo(r.Context())
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, HistoryStepResponse{CurrentPath: path, Editor: cfg.Editor.Status()})
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DestPath == "" {
			WriteError(w, http.StatusBadRequest, "dest_path is required", "BAD_REQUEST")
			return
		}

		path, err := cfg.Editor.Export(r.Context(), req.DestPath)
		if err != nil {
			writeEditError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ExportResponse{ExportedPath: path})
	}
}

func closeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Editor.Close(r.Context())
		WriteJSON(w, http.StatusOK, statusResponse("idle", cfg.Editor.Status()))
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := cfg.Repository.ListSessions(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list sessions", "INTERNAL_ERROR")
			return
		}
		resp := SessionsResponse{Sessions: make([]SessionResponse, len(sessions))}
		for i, s := range sessions {
			resp.Sessions[i] = SessionToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listEntriesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		entries, err := cfg.Repository.ListEntries(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list entries", "INTERNAL_ERROR")
			return
		}
		resp := EntriesResponse{Entries: make([]EntryResponse, len(entries))}
		for i, e := range entries {
			resp.Entries[i] = EntryToResponse(e)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// writeEditError maps core failure modes onto HTTP statuses.
func writeEditError(w http.ResponseWriter, err error) {
	var procErr *backend.ProcessError
	switch {
	case errors.Is(err, dispatch.ErrNoVideoLoaded):
		WriteError(w, http.StatusConflict, err.Error(), "NO_VIDEO_LOADED")
	case errors.Is(err, dispatch.ErrInvalidRequest):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")
	case errors.Is(err, dispatch.ErrUnknownAction):
		WriteError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_ACTION")
	case errors.Is(err, backend.ErrMissingFile):
		WriteError(w, http.StatusNotFound, err.Error(), "FILE_NOT_FOUND")
	case errors.Is(err, backend.ErrInvalidParameter):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "INVALID_PARAMETER")
	case errors.Is(err, history.ErrNothingToUndo):
		WriteError(w, http.StatusConflict, err.Error(), "NOTHING_TO_UNDO")
	case errors.Is(err, history.ErrNothingToRedo):
		WriteError(w, http.StatusConflict, err.Error(), "NOTHING_TO_REDO")
	case errors.As(err, &procErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "BACKEND_FAILURE")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
