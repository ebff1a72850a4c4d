package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/devwiki/wikitools/internal/batch"
)

type startRunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var job batch.Job
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&job); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job: "+err.Error())
		return
	}
	if err := job.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Runner.Running() {
		writeError(w, http.StatusConflict, batch.ErrRunInProgress.Error())
		return
	}

	var user batch.User
	if s.deps.User != nil {
		u, err := s.deps.User(r.Context())
		if err != nil {
			s.logger.Error("resolving wiki user", zap.Error(err))
			writeError(w, http.StatusBadGateway, "resolving wiki user: "+err.Error())
			return
		}
		user = u
	}

	h, err := s.deps.Runner.Start(s.runCtx, job, user)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	s.mu.Lock()
	s.current = h
	s.mu.Unlock()
	go func() {
		<-h.Done()
		s.mu.Lock()
		if s.current == h {
			s.current = nil
		}
		s.mu.Unlock()
	}()

	writeJSON(w, http.StatusAccepted, startRunResponse{ID: h.ID(), Status: string(batch.StatusRunning)})
}

func (s *Server) handleCurrentRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := s.current
	s.mu.Unlock()
	if h == nil {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	writeJSON(w, http.StatusOK, startRunResponse{ID: h.ID(), Status: string(batch.StatusRunning)})
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	h := s.current
	s.mu.Unlock()
	if h == nil {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	h.Cancel()
	<-h.Done()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLookupIP(w http.ResponseWriter, r *http.Request) {
	loc, err := s.deps.Geo.Lookup(r.Context(), chi.URLParam(r, "ip"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleAccountAge(w http.ResponseWriter, r *http.Request) {
	age, err := s.deps.Lookup.AccountAge(r.Context(), chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       age.User,
		"userid":     age.UserID,
		"registered": age.Registered,
		"days":       age.Days(),
	})
}

func (s *Server) handleUsername(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Lookup.UsernameAvailable(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreator(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	c, err := s.deps.Lookup.PageCreator(r.Context(), title)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
