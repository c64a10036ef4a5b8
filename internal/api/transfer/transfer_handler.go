package transfer

import (
	"log/slog"
	"mime/multipart"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

const maxUploadBytes = 16 << 20 // 16 MiB cap on import uploads

// Handler exposes the bulk import and export endpoints.
type Handler interface {
	ImportCSV(w http.ResponseWriter, r *http.Request)
	ImportJSON(w http.ResponseWriter, r *http.Request)
	ExportCSV(w http.ResponseWriter, r *http.Request)
}

var _ Handler = (*HandlerImpl)(nil)

type HandlerImpl struct {
	logger     *slog.Logger
	reconciler *Reconciler
	exporter   *Exporter
}

func NewHandlerImpl(reconciler *Reconciler, exporter *Exporter, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{logger: logger, reconciler: reconciler, exporter: exporter}
}

// ImportCSV ingests a multipart CSV upload under the "file" form field and
// responds with the per-row import report.
func (h *HandlerImpl) ImportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TransferHandler").Start(r.Context(), "ImportCSV")
	defer span.End()
	r = r.WithContext(ctx)

	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rows, err := ParseCSVRows(file)
	if err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.respondWithReport(w, r, h.reconciler.ProcessBatch(ctx, rows))
	span.SetStatus(codes.Ok, "CSV import handled")
}

// ImportJSON ingests a multipart JSON upload under the "file" form field. The
// payload must be a top-level array of user objects.
func (h *HandlerImpl) ImportJSON(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TransferHandler").Start(r.Context(), "ImportJSON")
	defer span.End()
	r = r.WithContext(ctx)

	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	rows, err := ParseJSONRows(file)
	if err != nil {
		span.RecordError(err)
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.respondWithReport(w, r, h.reconciler.ProcessBatch(ctx, rows))
	span.SetStatus(codes.Ok, "JSON import handled")
}

// ExportCSV streams every user as a CSV attachment.
func (h *HandlerImpl) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TransferHandler").Start(r.Context(), "ExportCSV")
	defer span.End()

	l := h.logger.With(slog.String("handler", "ExportCSV"))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="users_export.csv"`)
	w.WriteHeader(http.StatusOK)

	if err := h.exporter.WriteCSV(ctx, w); err != nil {
		// Headers are already on the wire, all we can do is log and cut off.
		span.RecordError(err)
		span.SetStatus(codes.Error, "Export failed mid-stream")
		l.ErrorContext(ctx, "CSV export failed mid-stream", slog.Any("error", err))
		return
	}
	span.SetStatus(codes.Ok, "CSV export handled")
}

// openUpload extracts the "file" part of a multipart upload, writing the
// error response itself when the part is missing or unnamed.
func (h *HandlerImpl) openUpload(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "No file part in the request.")
		return nil, false
	}
	if header.Filename == "" {
		file.Close()
		api.ErrorResponse(w, r, http.StatusBadRequest, "No selected file.")
		return nil, false
	}
	return file, true
}

// respondWithReport maps batch outcomes onto status codes: all rows applied
// is 200, a mixed batch is 207, a batch where nothing applied is 400.
func (h *HandlerImpl) respondWithReport(w http.ResponseWriter, r *http.Request, report types.ImportReport) {
	status := http.StatusOK
	switch {
	case report.Rejected == 0:
		status = http.StatusOK
	case report.Created+report.Updated == 0:
		status = http.StatusBadRequest
	default:
		status = http.StatusMultiStatus
	}
	api.WriteJSONResponse(w, r, status, report)
}
