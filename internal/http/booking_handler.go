package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/timeslot-scheduler/internal/application"
)

type bookingService interface {
	Book(ctx context.Context, input application.BookingInput) (application.BookingOutcome, error)
}

type BookingHandler struct {
	service   bookingService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, location *time.Location, logger *slog.Logger) *BookingHandler {
	if location == nil {
		location = time.UTC
	}
	base := defaultLogger(logger)
	return &BookingHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput(h.location)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	logger := h.log(r.Context(), "Create", "weekly", input.Weekly)

	outcome, err := h.service.Book(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking created",
		"slot_id", outcome.Slot.ID,
		"action", outcome.Action,
		"children", len(outcome.Children),
		"skipped", len(outcome.SkippedStarts),
	)

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingResponse(outcome))
}

type bookingRequest struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Weekly   bool   `json:"weekly,omitempty"`
}

func (req bookingRequest) toInput(loc *time.Location) (application.BookingInput, error) {
	start, err := parseWireTime(req.Start, loc)
	if err != nil {
		return application.BookingInput{}, err
	}
	end, err := parseWireTime(req.End, loc)
	if err != nil {
		return application.BookingInput{}, err
	}
	return application.BookingInput{
		Start:    start,
		End:      end,
		Name:     req.Name,
		Location: req.Location,
		Weekly:   req.Weekly,
	}, nil
}

type bookingResponse struct {
	Slot          slotDTO   `json:"slot"`
	Action        string    `json:"action"`
	Children      []slotDTO `json:"children,omitempty"`
	SkippedStarts []string  `json:"skipped_starts,omitempty"`
}

func toBookingResponse(outcome application.BookingOutcome) bookingResponse {
	resp := bookingResponse{
		Slot:   toSlotDTO(outcome.Slot),
		Action: outcome.Action,
	}
	if len(outcome.Children) > 0 {
		resp.Children = toSlotDTOs(outcome.Children)
	}
	for _, start := range outcome.SkippedStarts {
		resp.SkippedStarts = append(resp.SkippedStarts, formatWireTime(start))
	}
	return resp
}
