package render

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"weekcal/internal/model"
)

const dayKeyLayout = "2006-01-02"

// Options controls document rendering.
type Options struct {
	// WeekStart / WeekEnd bound the rendered week; only their dates
	// appear in the title.
	WeekStart time.Time
	WeekEnd   time.Time

	// Now is the generation timestamp stamped into the footer. Passed
	// in rather than read from the clock so rendering stays
	// deterministic under test.
	Now time.Time

	// TruncateMarkers cut event descriptions at the first matching
	// meeting-invite boilerplate marker. Nil leaves descriptions whole.
	TruncateMarkers []string
}

// Markdown renders occurrences into the weekly Markdown document: a
// title naming the week's span, one section per day that has at least
// one occurrence (ascending by date), one subsection per occurrence,
// and a generation footer.
func Markdown(occs []model.Occurrence, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Calendar Events: %s - %s\n\n",
		opts.WeekStart.Format("January 02"),
		opts.WeekEnd.Format("January 02, 2006"),
	)

	// Group by the occurrence's own calendar date. Occurrences arrive
	// in definition order; day sections are sorted, entries within a
	// day keep their order.
	byDay := lo.GroupBy(occs, func(o model.Occurrence) string {
		return o.Start.Format(dayKeyLayout)
	})
	days := lo.Keys(byDay)
	sort.Strings(days)

	for _, day := range days {
		dayDate, err := time.Parse(dayKeyLayout, day)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", dayDate.Format("Monday, January 02"))

		for _, occ := range byDay[day] {
			writeOccurrence(&b, occ, opts.TruncateMarkers)
		}
	}

	fmt.Fprintf(&b, "\n\n_Generated on %s · %d events_",
		opts.Now.Format("2006-01-02 at 15:04"), len(occs))

	return b.String()
}

func writeOccurrence(b *strings.Builder, occ model.Occurrence, markers []string) {
	fmt.Fprintf(b, "### %s\n\n", occ.Summary)
	fmt.Fprintf(b, "**Time:** %s\n\n", timeLine(occ))

	if occ.Location != "" {
		fmt.Fprintf(b, "**Location:** %s\n\n", occ.Location)
	}
	if org := stripMailto(occ.Organizer); org != "" {
		fmt.Fprintf(b, "**Organizer:** %s\n\n", org)
	}
	if occ.Description != "" {
		b.WriteString("**Details:**\n\n")
		b.WriteString(indent(truncateAtMarker(occ.Description, markers)))
		b.WriteString("\n\n")
	}

	b.WriteString("---\n\n")
}

func timeLine(occ model.Occurrence) string {
	if occ.AllDay {
		return "All day"
	}
	end := "N/A"
	if occ.HasEnd() {
		end = occ.End.Format("15:04")
	}
	return occ.Start.Format("15:04") + " - " + end
}

// stripMailto removes everything up to and including a MAILTO: scheme
// prefix from an organizer value, leaving the bare address. The match is
// case-sensitive, as emitted by Outlook.
func stripMailto(org string) string {
	if _, after, ok := strings.Cut(org, "MAILTO:"); ok {
		return strings.TrimSpace(after)
	}
	return org
}

// truncateAtMarker cuts the description at the first marker found,
// checking markers in priority order.
func truncateAtMarker(desc string, markers []string) string {
	for _, m := range markers {
		if before, _, ok := strings.Cut(desc, m); ok {
			return before
		}
	}
	return desc
}

// indent prefixes every line with four spaces so the details block
// renders as a Markdown code-style block under the occurrence.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

// WriteFile writes the rendered document, fully replacing any previous
// run's output.
func WriteFile(path, doc string) error {
	if path == "" {
		return errors.New("output path is empty")
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return errors.Wrap(err, "write markdown document")
	}
	return nil
}
