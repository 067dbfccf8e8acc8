package ics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/teambition/rrule-go"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

// maxOccurrencesPerEvent is a safety cap so a pathological rule cannot
// flood the output. A 7-day window makes even minutely rules finite,
// but the cap keeps the failure mode bounded regardless.
const maxOccurrencesPerEvent = 5000

// Window is the inclusive instant range occurrences are selected from.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// CurrentWeek returns the Monday-to-Sunday window containing now, in the
// reference zone: Monday 00:00:00 through Sunday 23:59:59.999999.
func CurrentWeek(now time.Time) Window {
	now = now.In(referenceZone)

	// time.Weekday counts from Sunday; shift so Monday is day zero.
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	monday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, referenceZone).
		AddDate(0, 0, -daysSinceMonday)
	sunday := monday.AddDate(0, 0, 6)
	end := time.Date(sunday.Year(), sunday.Month(), sunday.Day(),
		23, 59, 59, 999999000, referenceZone)

	return Window{Start: monday, End: end}
}

// SelectOccurrences filters non-recurring events against the window and
// expands recurring events' instances inside it, producing one flattened
// Occurrence per instance. Output order follows definition order, not
// chronological order; grouping and sorting are the renderer's job.
//
// A failure to parse or evaluate one event's recurrence rule is logged
// as a warning and that event contributes zero occurrences; every other
// event is still processed.
func SelectOccurrences(events []ParsedEvent, win Window) []model.Occurrence {
	out := make([]model.Occurrence, 0, len(events))

	for _, ev := range events {
		if ev.RawRRule != "" {
			occs, err := expandRecurring(ev, win)
			if err != nil {
				appLog.Warn("recurrence expansion failed, event skipped",
					"summary", ev.Summary,
					"rrule", ev.RawRRule,
					"err", err.Error(),
				)
				continue
			}
			out = append(out, occs...)
			continue
		}

		if occ, ok := selectSingle(ev, win); ok {
			out = append(out, occ)
		}
	}

	return out
}

// selectSingle applies the endpoint inclusion test to a non-recurring
// event: it is selected when its start or its end instant lies within
// the window, bounds inclusive. An event spanning the entire window with
// neither endpoint inside it is not selected. Known limitation of the
// endpoint-only policy; kept deliberately.
func selectSingle(ev ParsedEvent, win Window) (model.Occurrence, bool) {
	if !win.Contains(ev.Start) && !(ev.HasEnd && win.Contains(ev.End)) {
		return model.Occurrence{}, false
	}

	occ := model.Occurrence{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Organizer:   ev.Organizer,
		AllDay:      ev.AllDay,
		Start:       ev.Start,
	}
	if ev.HasEnd {
		occ.End = ev.End
	}
	return occ, true
}

// expandRecurring enumerates a recurring event's instance starts within
// the window and re-applies the original DTSTART->DTEND duration to each.
// Instances are always reported as timed events (AllDay false), even
// when the source start was date-valued; this mirrors the non-recurring
// path asymmetrically and is kept as-is.
func expandRecurring(ev ParsedEvent, win Window) ([]model.Occurrence, error) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		return nil, errors.Wrap(err, "parse recurrence rule")
	}
	// Anchor the rule at the normalized original start.
	r.DTStart(ev.Start)

	// The duration carries over to each instance only when the original
	// declared a timed end; date-valued endpoints leave instance ends
	// unset.
	var dur time.Duration
	hasDur := ev.HasEnd && !ev.AllDay && !ev.EndIsDate
	if hasDur {
		dur = ev.End.Sub(ev.Start)
	}

	starts := r.Between(win.Start, win.End, true)
	if len(starts) > maxOccurrencesPerEvent {
		appLog.Warn("recurrence expansion truncated",
			"summary", ev.Summary,
			"cap", maxOccurrencesPerEvent,
		)
		starts = starts[:maxOccurrencesPerEvent]
	}

	occs := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		occ := model.Occurrence{
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
			Organizer:   ev.Organizer,
			AllDay:      false,
			Start:       s,
		}
		if hasDur {
			occ.End = s.Add(dur)
		}
		occs = append(occs, occ)
	}

	return occs, nil
}
