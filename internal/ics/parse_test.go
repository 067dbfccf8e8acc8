package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icsFixture(lines ...string) []byte {
	all := append([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//weekcal//test//EN",
	}, lines...)
	all = append(all, "END:VCALENDAR")
	return []byte(strings.Join(all, "\r\n") + "\r\n")
}

func TestParseFeedTimedEvent(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-1",
		"SUMMARY:Standup",
		"DESCRIPTION:line one\\nline two",
		"LOCATION:Room 1",
		"ORGANIZER;CN=Boss:MAILTO:boss@example.com",
		"DTSTART:20250408T100000Z",
		"DTEND:20250408T110000Z",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "Standup", ev.Summary)
	assert.Equal(t, "line one\nline two", ev.Description)
	assert.Equal(t, "Room 1", ev.Location)
	assert.Equal(t, "MAILTO:boss@example.com", ev.Organizer, "MAILTO prefix is kept raw at parse time")
	assert.False(t, ev.AllDay)
	assert.True(t, ev.HasEnd)
	assert.False(t, ev.EndIsDate)
	assert.True(t, ev.Start.Equal(time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)))
	assert.True(t, ev.End.Equal(time.Date(2025, 4, 8, 11, 0, 0, 0, time.UTC)))
}

func TestParseFeedNaiveDateTimeStampedWithReferenceZone(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-naive",
		"SUMMARY:Floating",
		"DTSTART:20250408T090000",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// The clock value is preserved and the reference zone attached.
	ev := events[0]
	assert.Equal(t, 9, ev.Start.Hour())
	_, offset := ev.Start.Zone()
	assert.Equal(t, 0, offset)
}

func TestParseFeedTZIDDateTime(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-tz",
		"SUMMARY:Local",
		"DTSTART;TZID=Europe/Berlin:20250408T100000",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.True(t, events[0].Start.Equal(time.Date(2025, 4, 8, 10, 0, 0, 0, berlin)))
	assert.False(t, events[0].AllDay)
}

func TestParseFeedUnknownTZIDFallsBackToReferenceZone(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-badtz",
		"SUMMARY:Somewhere",
		"DTSTART;TZID=Not/AZone:20250408T100000",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	// The clock value is kept and the reference zone stamped on.
	ev := events[0]
	assert.True(t, ev.Start.Equal(time.Date(2025, 4, 8, 10, 0, 0, 0, time.UTC)))
	_, offset := ev.Start.Zone()
	assert.Equal(t, 0, offset)
}

func TestParseFeedAllDayEvent(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-allday",
		"SUMMARY:Holiday",
		"DTSTART;VALUE=DATE:20250407",
		"DTEND;VALUE=DATE:20250408",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.True(t, ev.AllDay)
	assert.True(t, ev.Start.Equal(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ev.HasEnd)
	assert.True(t, ev.EndIsDate)
}

func TestParseFeedMissingSummaryDefaults(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-untitled",
		"DTSTART:20250408T100000Z",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "No Title", events[0].Summary)
}

func TestParseFeedKeepsRRuleRaw(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-rec",
		"SUMMARY:Weekly sync",
		"DTSTART:20250401T100000Z",
		"DTEND:20250401T110000Z",
		"RRULE:FREQ=WEEKLY;BYDAY=TU,TH",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TU,TH", events[0].RawRRule)
}

func TestParseFeedSkipsEventWithoutDtstart(t *testing.T) {
	body := icsFixture(
		"BEGIN:VEVENT",
		"UID:ev-broken",
		"SUMMARY:No start",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ev-ok",
		"SUMMARY:Fine",
		"DTSTART:20250408T100000Z",
		"END:VEVENT",
	)

	events, err := ParseFeed(body)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Fine", events[0].Summary)
}

func TestParseFeedRejectsGarbage(t *testing.T) {
	_, err := ParseFeed([]byte("definitely not a calendar"))
	assert.Error(t, err)
}

func TestParseFeedRejectsEmptyBody(t *testing.T) {
	_, err := ParseFeed(nil)
	assert.Error(t, err)
}

func TestUnescapeText(t *testing.T) {
	assert.Equal(t, "a, b; c\nd\\e", unescapeText(`a\, b\; c\nd\\e`))
	assert.Equal(t, "plain", unescapeText("plain"))
}
