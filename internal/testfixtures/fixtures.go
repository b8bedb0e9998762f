package testfixtures

import "time"

// ReferenceTime is the shared anchor instant used by fixtures when callers do
// not supply their own. It falls on a Monday so weekly recurrence scenarios
// read naturally.
func ReferenceTime() time.Time {
	return time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC)
}

// SlotTime returns an instant on the reference day at the given wall clock.
func SlotTime(hour, minute int) time.Time {
	return time.Date(2026, time.February, 2, hour, minute, 0, 0, time.UTC)
}

// DayOffset shifts an instant by whole days, preserving the wall clock.
func DayOffset(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// StringPtr returns a pointer to the supplied string.
func StringPtr(value string) *string {
	return &value
}
