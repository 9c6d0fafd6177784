package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"markestedt/cliptrans/storage"
)

const defaultHistoryLimit = 50

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// handleConfig returns the current configuration without secrets
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := s.config
	sanitized := struct {
		Hotkey         string  `json:"hotkey"`
		WindowMs       int     `json:"windowMs"`
		Provider       string  `json:"provider"`
		Model          string  `json:"model"`
		TargetLanguage string  `json:"targetLanguage"`
		Style          string  `json:"style"`
		Fuzzy          bool    `json:"fuzzy"`
		Threshold      float64 `json:"threshold"`
		HasAPIKey      bool    `json:"hasApiKey"`
		WebPort        int     `json:"webPort"`
	}{
		Hotkey:         cfg.Hotkey.Key,
		WindowMs:       cfg.Hotkey.WindowMs,
		Provider:       cfg.Translation.Provider,
		Model:          cfg.Translation.Model,
		TargetLanguage: cfg.Translation.TargetLanguage,
		Style:          cfg.Translation.Style,
		Fuzzy:          cfg.Cache.Fuzzy,
		Threshold:      cfg.Cache.Threshold,
		HasAPIKey:      cfg.Translation.APIKey != "",
		WebPort:        cfg.Web.Port,
	}

	writeJSON(w, http.StatusOK, sanitized)
}

// handleHistory handles GET and DELETE requests for translation history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleClearHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns the newest translations
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	records, err := s.store.RecentHistory(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to get history", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.store.HistoryCount(r.Context())
	if err != nil {
		slog.Error("Failed to get history count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"limit":   limit,
	})
}

// handleClearHistory deletes every cached translation. The caller must
// pass confirm=true.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "Clearing history requires confirm=true", http.StatusBadRequest)
		return
	}

	n, err := s.store.ClearHistory(r.Context())
	if err != nil {
		slog.Error("Failed to clear history", "error", err)
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
		return
	}

	slog.Info("History cleared from web UI", "deleted", n)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "deleted": n})
}

// handleGlossary lists or adds glossary terms
func (s *Server) handleGlossary(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		terms, err := s.store.ListTerms(r.Context())
		if err != nil {
			slog.Error("Failed to list glossary", "error", err)
			http.Error(w, "Failed to list glossary", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"terms": terms})

	case http.MethodPost:
		var req struct {
			Term       string `json:"term"`
			Definition string `json:"definition"`
			Context    string `json:"context"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		term, err := s.store.AddTerm(r.Context(), req.Term, req.Definition, req.Context)
		switch {
		case errors.Is(err, storage.ErrTermExists):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, storage.ErrInvalidTerm):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case err != nil:
			slog.Error("Failed to add glossary term", "error", err)
			http.Error(w, "Failed to add term", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, term)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDeleteTerm deletes a glossary term by ID (/api/glossary/{id})
func (s *Server) handleDeleteTerm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteTerm(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTermNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete glossary term", "error", err, "id", id)
		http.Error(w, "Failed to delete term", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleStatus returns the current agent status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": s.Status()})
}
