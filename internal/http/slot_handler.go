package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/timeslot-scheduler/internal/application"
	"github.com/example/timeslot-scheduler/internal/persistence"
)

type slotService interface {
	ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]application.Slot, error)
	DeleteSlot(ctx context.Context, principal application.Principal, id string) error
	Reconcile(ctx context.Context, principal application.Principal, descriptors []application.SlotDescriptor) (application.ReconcileResult, error)
}

type SlotHandler struct {
	service   slotService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

func NewSlotHandler(service slotService, location *time.Location, logger *slog.Logger) *SlotHandler {
	if location == nil {
		location = time.UTC
	}
	base := defaultLogger(logger)
	return &SlotHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *SlotHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SlotHandler", operation, attrs...)
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	filter, err := h.buildFilter(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	slots, err := h.service.ListSlots(r.Context(), filter)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSlotsResponse{Slots: toSlotDTOs(slots)})
}

func (h *SlotHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Reconcile", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reconcile request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	descriptors, err := h.toDescriptors(req.Slots)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Reconcile", "descriptors", len(descriptors))

	result, err := h.service.Reconcile(r.Context(), principal, descriptors)
	if err != nil {
		logger.ErrorContext(r.Context(), "reconcile failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot grid reconciled", "processed", result.Processed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reconcileResponse{Processed: result.Processed})
}

func (h *SlotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slotID, ok := SlotIDFromContext(r.Context())
	if !ok || strings.TrimSpace(slotID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSlotID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "slot_id", slotID)

	if err := h.service.DeleteSlot(r.Context(), principal, slotID); err != nil {
		logger.ErrorContext(r.Context(), "slot deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "slot deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SlotHandler) buildFilter(query url.Values) (persistence.SlotFilter, error) {
	var filter persistence.SlotFilter

	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := parseWireTime(raw, h.location)
		if err != nil {
			return persistence.SlotFilter{}, err
		}
		filter.From = &from
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := parseWireTime(raw, h.location)
		if err != nil {
			return persistence.SlotFilter{}, err
		}
		filter.To = &to
	}
	if raw := strings.TrimSpace(query.Get("booked_only")); raw != "" {
		filter.BookedOnly = raw == "true" || raw == "1"
	}

	return filter, nil
}

func (h *SlotHandler) toDescriptors(dtos []slotDescriptorDTO) ([]application.SlotDescriptor, error) {
	descriptors := make([]application.SlotDescriptor, 0, len(dtos))
	for _, dto := range dtos {
		start, err := parseWireTime(dto.Start, h.location)
		if err != nil {
			return nil, err
		}
		end, err := parseWireTime(dto.End, h.location)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, application.SlotDescriptor{
			ID:        dto.ID,
			Start:     start,
			End:       end,
			Available: dto.Available,
			Occupant:  dto.Occupant,
			Location:  dto.Location,
			Recurring: dto.Recurring,
		})
	}
	return descriptors, nil
}

type slotDTO struct {
	ID        string `json:"id"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Occupant  string `json:"occupant,omitempty"`
	Location  string `json:"location,omitempty"`
	Recurring bool   `json:"recurring"`
	SeriesID  string `json:"series_id,omitempty"`
}

type slotDescriptorDTO struct {
	ID        string `json:"id,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	Occupant  string `json:"occupant,omitempty"`
	Location  string `json:"location,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

type listSlotsResponse struct {
	Slots []slotDTO `json:"slots"`
}

type reconcileRequest struct {
	Slots []slotDescriptorDTO `json:"slots"`
}

type reconcileResponse struct {
	Processed int `json:"processed"`
}

func toSlotDTO(slot application.Slot) slotDTO {
	return slotDTO{
		ID:        slot.ID,
		Start:     formatWireTime(slot.Start),
		End:       formatWireTime(slot.End),
		Available: slot.Available,
		Occupant:  slot.Occupant,
		Location:  slot.Location,
		Recurring: slot.Recurring,
		SeriesID:  slot.SeriesID,
	}
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

func toConflictDTOs(slots []persistence.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dto := slotDTO{
			ID:        slot.ID,
			Start:     formatWireTime(slot.Start),
			End:       formatWireTime(slot.End),
			Available: slot.Available,
			Recurring: slot.Recurring,
		}
		if slot.Occupant != nil {
			dto.Occupant = *slot.Occupant
		}
		if slot.Location != nil {
			dto.Location = *slot.Location
		}
		if slot.SeriesID != nil {
			dto.SeriesID = *slot.SeriesID
		}
		out = append(out, dto)
	}
	return out
}
