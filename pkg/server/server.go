// Package server implements the atlas preview server.
//
// The server is a thin read-only view over an output directory: it lists
// the atlas pairs found there, serves manifests as JSON, and serves the
// composed images so they can be inspected in a browser. It never writes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixelfold/atlasforge/pkg/errors"
	afio "github.com/pixelfold/atlasforge/pkg/io"
	"github.com/pixelfold/atlasforge/pkg/pipeline"
)

// Server serves built atlases from an output directory.
type Server struct {
	outputDir string
	logger    *log.Logger
	router    chi.Router
	httpSrv   *http.Server
}

// New creates a preview server over the given output directory.
func New(outputDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		outputDir: outputDir,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/atlases", s.handleList)
	r.Get("/api/atlases/{name}", s.handleManifest)
	r.Get("/api/atlases/{name}/image", s.handleImage)
	r.Get("/healthz", s.handleHealth)

	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", addr, "dir", s.outputDir)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// AtlasInfo is one entry in the atlas listing.
type AtlasInfo struct {
	Name         string `json:"name"`
	CanvasWidth  int    `json:"canvas_width"`
	CanvasHeight int    `json:"canvas_height"`
	SlotCount    int    `json:"slot_count"`
	ImageURL     string `json:"image_url"`
	ManifestURL  string `json:"manifest_url"`
}

// handleList returns every atlas pair found in the output directory,
// sorted by name.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, []AtlasInfo{})
			return
		}
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "read output dir"))
		return
	}

	var infos []AtlasInfo
	for _, e := range entries {
		name, ok := atlasNameFromManifest(e.Name())
		if !ok {
			continue
		}
		m, err := afio.ReadManifest(filepath.Join(s.outputDir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable manifest", "file", e.Name(), "err", err)
			continue
		}
		infos = append(infos, AtlasInfo{
			Name:         m.AtlasName,
			CanvasWidth:  m.CanvasWidth,
			CanvasHeight: m.CanvasHeight,
			SlotCount:    len(m.Slots),
			ImageURL:     "/api/atlases/" + name + "/image",
			ManifestURL:  "/api/atlases/" + name,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	if infos == nil {
		infos = []AtlasInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleManifest serves one atlas manifest verbatim.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := errors.ValidateFolderName(name); err != nil {
		s.writeError(w, err)
		return
	}

	_, manName := pipeline.OutputNames(name)
	data, err := os.ReadFile(filepath.Join(s.outputDir, manName))
	if err != nil {
		if os.IsNotExist(err) {
			s.writeError(w, errors.New(errors.ErrCodeNotFound, "no atlas named %q", name))
			return
		}
		s.writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "read manifest"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImage serves one composed atlas image.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := errors.ValidateFolderName(name); err != nil {
		s.writeError(w, err)
		return
	}

	imgName, _ := pipeline.OutputNames(name)
	path := filepath.Join(s.outputDir, imgName)
	if _, err := os.Stat(path); err != nil {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "no atlas named %q", name))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnsafePath, errors.ErrCodeInvalidConfig:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// atlasNameFromManifest extracts the folder name from an atlas_<name>.json
// file name.
func atlasNameFromManifest(file string) (string, bool) {
	if !strings.HasPrefix(file, "atlas_") || !strings.HasSuffix(file, ".json") {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(file, "atlas_"), ".json")
	if name == "" {
		return "", false
	}
	return name, true
}
