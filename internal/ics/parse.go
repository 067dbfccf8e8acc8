package ics

import (
	"bytes"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/pkg/errors"

	appLog "weekcal/internal/log"
)

// referenceZone is the fixed zone assumed for any date-time lacking
// explicit zone information. Zone-naive values are stamped with it, not
// converted into it.
var referenceZone = time.UTC

const defaultSummary = "No Title"

const (
	layoutDate     = "20060102"
	layoutUTC      = "20060102T150405Z"
	layoutFloating = "20060102T150405"
)

// ParsedEvent is the normalized representation of a VEVENT as produced
// by the feed parser. Window filtering and recurrence expansion operate
// on this type.
type ParsedEvent struct {
	Summary     string
	Description string
	Location    string
	Organizer   string // raw CAL-ADDRESS value, MAILTO: prefix intact

	Start time.Time
	End   time.Time
	// HasEnd is true when the component declared a DTEND. EndIsDate is
	// true when that DTEND was a bare date; a per-instance duration is
	// only derivable when both endpoints are date-times.
	HasEnd    bool
	EndIsDate bool

	// AllDay is true when DTSTART was a bare date (VALUE=DATE or no
	// time component).
	AllDay bool

	// RawRRule holds the RRULE value verbatim. Expansion (and therefore
	// rule validation) happens in expand.go; a malformed rule does not
	// fail the parse.
	RawRRule string
}

// ParseFeed parses an ICS payload into a list of ParsedEvent.
//
//   - Only VEVENT components are considered; todos, alarms and timezone
//     definitions are ignored.
//   - All-day events are detected from the DTSTART value format.
//   - Zone-naive date-times are assumed to already be in the reference
//     zone (UTC) and are stamped accordingly.
//
// An undecodable payload is a fatal error. A single malformed VEVENT is
// logged and skipped so one bad component cannot sink the whole feed.
func ParseFeed(body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("feed decode failed", err)
		return nil, errors.Wrap(err, "decode calendar feed")
	}

	events := make([]ParsedEvent, 0)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("skipping malformed event", "err", perr.Error())
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("feed parse completed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	out.Summary = defaultSummary
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && p.Value != "" {
		out.Summary = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = unescapeText(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		out.Organizer = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	start, isDate, err := parseDateTimeProp(dtStart)
	if err != nil {
		return out, errors.Wrap(err, "parse DTSTART")
	}
	out.Start = start
	out.AllDay = isDate

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		end, endIsDate, eerr := parseDateTimeProp(dtEnd)
		if eerr != nil {
			return out, errors.Wrap(eerr, "parse DTEND")
		}
		out.End = end
		out.HasEnd = true
		out.EndIsDate = endIsDate
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	return out, nil
}

// parseDateTimeProp parses a DTSTART/DTEND property into a concrete
// instant. isDate reports a bare-date (all-day) value, which parses to
// midnight in the reference zone.
func parseDateTimeProp(p *ical.IANAProperty) (t time.Time, isDate bool, err error) {
	val := strings.TrimSpace(p.Value)
	if val == "" {
		return time.Time{}, false, errors.New("empty date-time value")
	}

	// VALUE=DATE or no time component -> all-day.
	if strings.EqualFold(paramValue(p, "VALUE"), "DATE") || !strings.Contains(val, "T") {
		t, err = time.ParseInLocation(layoutDate, val, referenceZone)
		return t, true, err
	}

	// UTC form, e.g. 20250407T090000Z.
	if strings.HasSuffix(val, "Z") {
		t, err = time.Parse(layoutUTC, val)
		return t, false, err
	}

	// TZID-qualified local time.
	if tzid := paramValue(p, "TZID"); tzid != "" {
		loc, lerr := time.LoadLocation(tzid)
		if lerr == nil {
			t, err = time.ParseInLocation(layoutFloating, val, loc)
			return t, false, err
		}
		appLog.Warn("unknown TZID, assuming reference zone", "tzid", tzid)
	}

	// Zone-naive: stamp with the reference zone, keeping the clock value.
	t, err = time.ParseInLocation(layoutFloating, val, referenceZone)
	return t, false, err
}

func paramValue(p *ical.IANAProperty, name string) string {
	if p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// unescapeText reverses RFC 5545 text escaping (\n, \N, \, \; \\).
func unescapeText(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case ',', ';', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
