package api

import (
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"os"
	"strconv"

	"github.com/reelcut/reelcut-agent/internal/preview"
)

// frameHandler serves one decoded frame as PNG. Scrub clients pass ?t=SEC;
// playback must be paused first.
func frameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := 0.0
		if raw := r.URL.Query().Get("t"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid timestamp", "BAD_REQUEST")
				return
			}
			t = parsed
		}

		frame, err := cfg.Editor.Preview().StaticFrame(t)
		if err != nil {
			switch {
			case errors.Is(err, preview.ErrNotLoaded):
				WriteError(w, http.StatusConflict, err.Error(), "NO_VIDEO_LOADED")
			case errors.Is(err, preview.ErrNoFrame):
				WriteError(w, http.StatusNotFound, err.Error(), "NO_FRAME")
			default:
				WriteError(w, http.StatusConflict, err.Error(), "PREVIEW_BUSY")
			}
			return
		}

		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, frame); err != nil {
			cfg.Logger.Warn("encoding preview frame", "error", err)
		}
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine := cfg.Editor.Preview()
		if !engine.Loaded() {
			WriteError(w, http.StatusConflict, "no video loaded", "NO_VIDEO_LOADED")
			return
		}

		from := -1.0
		var req PlayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.FromSec != nil {
			from = *req.FromSec
		}

		engine.Play(from)
		WriteJSON(w, http.StatusOK, statusResponse("playing", cfg.Editor.Status()))
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Editor.Preview().Pause()
		WriteJSON(w, http.StatusOK, statusResponse("loaded", cfg.Editor.Status()))
	}
}

func stopHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Editor.Preview().Stop()
		WriteJSON(w, http.StatusOK, statusResponse("loaded", cfg.Editor.Status()))
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "sec is required", "BAD_REQUEST")
			return
		}

		// Seek pauses playback itself and joins the decode loop first.
		pos, err := cfg.Editor.Preview().Seek(req.Sec)
		if err != nil {
			if errors.Is(err, preview.ErrNotLoaded) {
				WriteError(w, http.StatusConflict, err.Error(), "NO_VIDEO_LOADED")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, SeekResponse{PositionSec: pos})
	}
}

// playbackFileHandler streams the current artifact with range support so a
// frontend video element can play it directly.
func playbackFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := cfg.Editor.CurrentPath()
		if path == "" {
			WriteError(w, http.StatusConflict, "no video loaded", "NO_VIDEO_LOADED")
			return
		}

		f, err := os.Open(path)
		if err != nil {
			WriteError(w, http.StatusNotFound, "artifact not found on disk", "FILE_NOT_FOUND")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "stat artifact", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}
