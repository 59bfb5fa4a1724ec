package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/cocstats/internal/domain/export"
	"github.com/okian/cocstats/internal/domain/view"
)

// ExportDependencies renders user table downloads.
type ExportDependencies interface {
	Export(ctx context.Context, q view.Query, format string) ([]byte, string, error)
}

// ExportHandler serves CSV and JSON downloads of the user table.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleCSV handles GET /api/users/export.csv requests.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, export.FormatCSV)
}

// HandleJSON handles GET /api/users/export.json requests.
func (h *ExportHandler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, export.FormatJSON)
}

func (h *ExportHandler) serve(w http.ResponseWriter, r *http.Request, format string) {
	body, name, err := h.deps.Export(r.Context(), queryFrom(r), format)
	if err != nil {
		writeFailure(w, "api.export_"+format, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
