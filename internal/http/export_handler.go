package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/timeslot-scheduler/internal/application"
)

type calendarExporter interface {
	Export(ctx context.Context) (string, error)
}

type ExportHandler struct {
	exporter  calendarExporter
	responder responder
	logger    *slog.Logger
}

func NewExportHandler(exporter calendarExporter, logger *slog.Logger) *ExportHandler {
	base := defaultLogger(logger)
	return &ExportHandler{exporter: exporter, responder: newResponder(base), logger: base}
}

// Serve writes the booked slots as an iCalendar attachment.
func (h *ExportHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.exporter == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	payload, err := h.exporter.Export(r.Context())
	if err != nil {
		handlerLogger(r.Context(), h.logger, "ExportHandler", "Serve").
			ErrorContext(r.Context(), "calendar export failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="appointments.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(payload)); err != nil {
		handlerLogger(r.Context(), h.logger, "ExportHandler", "Serve").
			ErrorContext(r.Context(), "failed to write calendar payload", "error", err)
	}
}
