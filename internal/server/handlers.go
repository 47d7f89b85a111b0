package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/report"
	"github.com/go-chi/render"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type incompleteResponse struct {
	Status  string          `json:"status"`
	Missing []pipeline.Role `json:"missing"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleAnalyze runs the pipeline over a multipart upload whose file fields
// are named after the roles. Optional form values zero_hours and
// duplicate_keys override the configured policies for this request.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := s.log.WithField("request_id", getRequestID(r.Context()))
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.fail(w, r, status, "upload", fmt.Errorf("parse upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opt := s.cfg.Pipeline
	opt.Logger = log
	if v := r.FormValue("zero_hours"); v != "" {
		p, err := pipeline.ParseZeroHoursPolicy(v)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, "options", err)
			return
		}
		opt.ZeroHours = p
	}
	if v := r.FormValue("duplicate_keys"); v != "" {
		p, err := pipeline.ParseDuplicateKeyPolicy(v)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, "options", err)
			return
		}
		opt.DuplicateKeys = p
	}

	in := pipeline.Inputs{}
	for _, role := range pipeline.Roles() {
		file, hdr, err := r.FormFile(string(role))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, "upload", fmt.Errorf("read %s upload: %w", role, err))
			return
		}
		defer file.Close()
		name := hdr.Filename
		if filepath.Ext(name) == "" {
			name = string(role) + ".csv"
		}
		in[role] = pipeline.Source{Name: name, Reader: file}
	}

	res, err := pipeline.Run(in, opt)
	if err == nil {
		s.metrics.observe("ok", time.Since(start))
		render.JSON(w, r, report.NewView(res))
		return
	}
	var mi *pipeline.MissingInputError
	if errors.As(err, &mi) {
		s.metrics.observe("incomplete", time.Since(start))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, incompleteResponse{Status: "incomplete", Missing: mi.Missing})
		return
	}
	kind := pipeline.ErrorKind(err)
	s.metrics.observe(kind, time.Since(start))
	status := http.StatusBadRequest
	if kind == "internal" {
		status = http.StatusInternalServerError
	}
	log.WithError(err).WithField("kind", kind).Warn("pipeline failed")
	s.fail(w, r, status, kind, err)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, kind string, err error) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error(), Kind: kind})
}
