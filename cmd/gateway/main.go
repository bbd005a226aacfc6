package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"verifhir/internal/app"
	"verifhir/internal/audit"
	"verifhir/internal/httputil"
)

// uploadRequest is the validated form of POST /api/audits.
type uploadRequest struct {
	Filename string `validate:"required,endswith=.zip"`
	Size     int64  `validate:"gt=0"`
	Model    string `validate:"omitempty,max=64,printascii"`
}

func main() {
	deps, err := app.Build(app.Options{WithLLM: true})
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/audits", auditHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

func auditHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		log := deps.Log.With("request_id", middleware.GetReqID(r.Context()))

		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		req := uploadRequest{
			Filename: strings.ToLower(header.Filename),
			Size:     header.Size,
			Model:    r.FormValue("model"),
		}
		if err := httputil.Validate(req); err != nil {
			httputil.Fail(log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		workDir, err := os.MkdirTemp("", "verifhir-upload-*")
		if err != nil {
			httputil.Fail(log, w, "failed to store upload", err, http.StatusInternalServerError)
			return
		}
		defer os.RemoveAll(workDir)

		archivePath := filepath.Join(workDir, "ig.zip")
		if err := saveUpload(archivePath, file); err != nil {
			httputil.Fail(log, w, "failed to store upload", err, http.StatusInternalServerError)
			return
		}

		client, err := deps.LLMFor(req.Model)
		if err != nil {
			httputil.Fail(log, w, "failed to initialize LLM", err, http.StatusInternalServerError)
			return
		}
		log.Info("audit started", "filename", header.Filename, "bytes", header.Size, "model", req.Model)
		res, err := audit.Run(r.Context(), log, client, audit.Options{
			ArchivePath: archivePath,
			OutputDir:   filepath.Join(workDir, "reports"),
			MaxPages:    deps.Config.MaxPages,
			BatchSize:   deps.Config.LLMBatchSize,
		})
		switch {
		case audit.IsStructural(err):
			httputil.Fail(log, w, "not a usable IG export: "+err.Error(), err, http.StatusUnprocessableEntity)
			return
		case err != nil:
			httputil.Fail(log, w, "audit failed", err, http.StatusInternalServerError)
			return
		}

		html, err := os.ReadFile(res.ReportPath)
		if err != nil {
			httputil.Fail(log, w, "failed to read report", err, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(res.ReportPath)))
		w.Header().Set("X-Run-ID", res.RunID)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(html); err != nil {
			log.Warn("failed to write report", "err", err)
		}
	}
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
