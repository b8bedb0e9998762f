// Package export renders booked slots as an iCalendar feed.
package export

import (
	"context"
	"fmt"

	ical "github.com/arran4/golang-ical"

	"github.com/example/timeslot-scheduler/internal/application"
	"github.com/example/timeslot-scheduler/internal/persistence"
)

// SlotLister is the read surface the exporter needs.
type SlotLister interface {
	ListSlots(ctx context.Context, filter persistence.SlotFilter) ([]application.Slot, error)
}

// CalendarExporter serializes booked slots into an iCalendar document.
type CalendarExporter struct {
	slots   SlotLister
	calName string
	prodID  string
}

// NewCalendarExporter builds an exporter over the given slot source.
func NewCalendarExporter(slots SlotLister, calendarName string) *CalendarExporter {
	return &CalendarExporter{
		slots:   slots,
		calName: calendarName,
		prodID:  "-//timeslot-scheduler//EN",
	}
}

// Export renders every booked slot as a VEVENT. The slot identity becomes
// the event UID so repeated exports stay stable for calendar clients.
func (e *CalendarExporter) Export(ctx context.Context) (string, error) {
	if e == nil || e.slots == nil {
		return "", fmt.Errorf("CalendarExporter is not configured")
	}

	slots, err := e.slots.ListSlots(ctx, persistence.SlotFilter{BookedOnly: true})
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.prodID)
	if e.calName != "" {
		cal.SetXWRCalName(e.calName)
	}

	for _, slot := range slots {
		event := cal.AddEvent(slot.ID)
		event.SetDtStampTime(slot.UpdatedAt)
		event.SetStartAt(slot.Start)
		event.SetEndAt(slot.End)
		event.SetSummary(fmt.Sprintf("Appointment with %s", slot.Occupant))
		if slot.Location != "" {
			event.SetLocation(slot.Location)
		}
	}

	return cal.Serialize(), nil
}
