package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/strategy"
)

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	Success   bool          `json:"success"`
	Video     string        `json:"video"`
	Title     string        `json:"title"`
	Author    string        `json:"author"`
	Thumbnail string        `json:"thumbnail"`
	FileName  string        `json:"filename"`
	Caption   string        `json:"caption"`
	FileSize  int64         `json:"file_size"`
	Method    strategy.Name `json:"method"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion,omitempty"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Methods   []strategy.Name `json:"methods"`
	Timestamp string          `json:"timestamp"`
	Queued    *int            `json:"queued,omitempty"`
	Active    *int            `json:"active_workers,omitempty"`
}

type bannerResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
	Note    string `json:"note"`
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Message: banner,
		Version: s.opts.Version,
		Status:  "running",
		Note:    bannerNote,
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	methods := s.opts.Strategies
	if methods == nil {
		methods = []strategy.Name{}
	}
	resp := healthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Version:   s.opts.Version,
		Methods:   methods,
		Timestamp: s.opts.Now().UTC().Format(time.RFC3339),
	}
	if stats, ok := s.opts.Jobs.(QueueStats); ok {
		queued, active := stats.QueueSize(), stats.ActiveWorkers()
		resp.Queued, resp.Active = &queued, &active
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	reqID := RequestID(r.Context())
	res, err := s.opts.Jobs.Submit(ctx, reqID, req.URL)
	if err != nil {
		s.writeDownloadError(w, reqID, err)
		return
	}

	// report the size actually on disk
	size := res.FileSize
	if n, ok := s.opts.Storage.Exists(res.FileName); ok {
		size = n
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		Success:   true,
		Video:     "/downloads/" + res.FileName,
		Title:     res.Title,
		Author:    res.Author,
		Thumbnail: res.ThumbnailURL,
		FileName:  res.FileName,
		Caption:   res.Caption,
		FileSize:  size,
		Method:    res.Strategy,
	})
}

func (s *Server) writeDownloadError(w http.ResponseWriter, reqID string, err error) {
	var e *errs.Error
	if errs.As(err, &e) && errs.IsClientFacing(err) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: e.Message, Suggestion: e.Suggestion})
		return
	}

	s.logger.WithField("request_id", reqID).WithError(err).Error("download failed")
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("Internal server error: %v", err))
}

func (s *Server) serveVideo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	path, err := s.opts.Storage.SafePath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "no-cache")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
