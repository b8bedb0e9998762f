// Package grid materializes a weekly slot template into concrete slot
// descriptors. Administrators describe one week of availability in YAML and
// the template is stamped out across the whole term.
package grid

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/timeslot-scheduler/internal/application"
)

// Entry is one recurring weekly opening.
type Entry struct {
	Weekday  string `yaml:"weekday"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
	Location string `yaml:"location"`
}

// Template is the YAML document describing one week of availability.
type Template struct {
	Slots []Entry `yaml:"slots"`
}

const clockLayout = "15:04"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads and validates a template file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slot template: %w", err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parse slot template: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Validate checks every entry for a known weekday and a well ordered
// start/end clock pair.
func (t *Template) Validate() error {
	if len(t.Slots) == 0 {
		return fmt.Errorf("slot template has no slots")
	}
	for i, entry := range t.Slots {
		if _, ok := weekdays[strings.ToLower(entry.Weekday)]; !ok {
			return fmt.Errorf("slots[%d]: unknown weekday %q", i, entry.Weekday)
		}
		start, err := time.Parse(clockLayout, entry.Start)
		if err != nil {
			return fmt.Errorf("slots[%d]: invalid start %q", i, entry.Start)
		}
		end, err := time.Parse(clockLayout, entry.End)
		if err != nil {
			return fmt.Errorf("slots[%d]: invalid end %q", i, entry.End)
		}
		if !end.After(start) {
			return fmt.Errorf("slots[%d]: start %q must be before end %q", i, entry.Start, entry.End)
		}
	}
	return nil
}

// Materialize stamps the weekly template across [from, termEnd]. The term
// end is inclusive at day granularity: entries falling on the term end date
// itself are still generated. Wall-clock times are interpreted in loc.
func (t *Template) Materialize(from, termEnd time.Time, loc *time.Location) ([]application.SlotDescriptor, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	fromDay := startOfDay(from.In(loc))
	boundary := startOfDay(termEnd.In(loc)).AddDate(0, 0, 1)
	if !fromDay.Before(boundary) {
		return nil, fmt.Errorf("term end %s precedes start %s",
			termEnd.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	var out []application.SlotDescriptor
	for _, entry := range t.Slots {
		weekday := weekdays[strings.ToLower(entry.Weekday)]
		startClock, _ := time.Parse(clockLayout, entry.Start)
		endClock, _ := time.Parse(clockLayout, entry.End)

		day := fromDay.AddDate(0, 0, (int(weekday)-int(fromDay.Weekday())+7)%7)
		for ; day.Before(boundary); day = day.AddDate(0, 0, 7) {
			out = append(out, application.SlotDescriptor{
				Start:     at(day, startClock, loc),
				End:       at(day, endClock, loc),
				Available: true,
				Location:  entry.Location,
				Recurring: true,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func at(day, clock time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
}
