package handler

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/nowcasting-api/internal/errs"
	"github.com/deppfellow/nowcasting-api/internal/server"
)

// FaviconContentType is the media type the favicon is served with.
const FaviconContentType = "image/x-icon"

// APIInfo is the body of GET /.
type APIInfo struct {
	Title         string `json:"title"`
	Version       string `json:"version"`
	Description   string `json:"description"`
	Documentation string `json:"documentation"`
}

type RootHandler struct {
	Handler
}

func NewRootHandler(s *server.Server) *RootHandler {
	return &RootHandler{Handler: NewHandler(s)}
}

// GetAPIInformation reports the API title, version and docs location.
func (h *RootHandler) GetAPIInformation(c echo.Context, _ *EmptyRequest) (*APIInfo, error) {
	cfg := h.server.Config.API
	return &APIInfo{
		Title:         cfg.Title,
		Version:       cfg.Version,
		Description:   cfg.Description,
		Documentation: cfg.Documentation,
	}, nil
}

// GetFavicon returns the path of the favicon file, or 404 when it is not
// on disk.
func (h *RootHandler) GetFavicon(c echo.Context, _ *EmptyRequest) (string, error) {
	path := h.server.Config.Server.FaviconPath

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", errs.NewNotFoundError(http.StatusText(http.StatusNotFound), false, nil)
	}
	return path, nil
}
