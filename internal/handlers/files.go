package handlers

import (
	"log/slog"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/memohai/kitchensink/internal/media/providers/localfs"
)

// FilesHandler serves the public directory: downloaded media under
// /downloaded and the bundled template assets under /static.
type FilesHandler struct {
	downloadDir string
	staticDir   string
	logger      *slog.Logger
}

func NewFilesHandler(log *slog.Logger, publicDir, downloadDir string) *FilesHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FilesHandler{
		downloadDir: downloadDir,
		staticDir:   filepath.Join(publicDir, "static"),
		logger:      log.With(slog.String("handler", "files")),
	}
}

func (h *FilesHandler) Register(e *echo.Echo) {
	h.logger.Debug("serving files", slog.String("downloads", h.downloadDir), slog.String("static", h.staticDir))
	e.Static(localfs.URLPrefix, h.downloadDir)
	e.Static("/static", h.staticDir)
}
