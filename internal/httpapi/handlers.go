package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"audiograb/internal/deps"
	"audiograb/internal/logging"
	"audiograb/internal/pipeline"
	"audiograb/internal/source"
)

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	Success bool   `json:"success"`
	File    string `json:"file"`
}

type healthResponse struct {
	Status       string        `json:"status"`
	Dependencies []deps.Status `json:"dependencies"`
}

// handleDownload serves one pipeline variant. variant carries the artwork and
// tag flags; the URL comes from the body.
func (s *Server) handleDownload(variant pipeline.Request) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body downloadRequest
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rawURL := strings.TrimSpace(body.URL)
		if len(rawURL) > source.MaxURLLength {
			s.writeError(w, http.StatusBadRequest, "invalid URL")
			return
		}
		if err := s.runner.Validate(rawURL); err != nil {
			s.logger.Info("request rejected",
				logging.Variant(variant.Variant()),
				logging.String("reason", err.Error()),
				logging.Event("request_rejected"),
			)
			s.writeError(w, http.StatusBadRequest, "invalid URL")
			return
		}

		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			s.writeError(w, http.StatusServiceUnavailable, "server busy")
			return
		}

		ctx := r.Context()
		if timeout := s.cfg.RequestTimeout(); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req := variant
		req.URL = rawURL
		result, err := s.runner.Run(ctx, req)
		if err != nil {
			switch status := pipeline.HTTPStatus(err); status {
			case http.StatusBadRequest:
				s.writeError(w, status, "invalid URL")
			case pipeline.StatusClientClosedRequest:
				s.writeError(w, status, "client closed request")
			default:
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		s.writeJSON(w, http.StatusOK, downloadResponse{
			Success: true,
			File:    publicPrefix(s.cfg) + url.PathEscape(result.FileName),
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	statuses := s.health(r.Context())
	resp := healthResponse{Status: "ok", Dependencies: statuses}
	if !deps.Healthy(statuses) {
		resp.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) maxBodyBytes() int64 {
	if s.cfg.Server.MaxBodyBytes > 0 {
		return s.cfg.Server.MaxBodyBytes
	}
	return 8 << 10
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
