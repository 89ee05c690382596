// Package render formats tasks for terminal output.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harrisonrobin/taskmerge/pkg/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const shortIDLength = 8

var titleCaser = cases.Title(language.English)

type Printer struct {
	w   io.Writer
	now func() time.Time
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, now: time.Now}
}

// Tasks prints one line per task followed by the stats line.
func (p *Printer) Tasks(tasks []model.Task, total int, done int) {
	if len(tasks) == 0 {
		fmt.Fprintln(p.w, "No tasks.")
	}
	now := p.now()
	for _, t := range tasks {
		fmt.Fprintln(p.w, Line(t, now))
	}
	fmt.Fprintln(p.w, Stats(total, done))
}

func (p *Printer) Task(t model.Task) {
	fmt.Fprintln(p.w, Line(t, p.now()))
}

// Line renders a task as "[x] id  Priority  text  (age)".
func Line(t model.Task, now time.Time) string {
	check := " "
	if t.Completed {
		check = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-13s %-6s  %s", check, ShortID(t.ID()), PriorityLabel(t.Priority), t.Text)
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "  (%s)", Age(t.CreatedAt, now))
	}
	return b.String()
}

// ShortID abbreviates generated local ids. Server ids are short already.
// The abbreviation always holds a non-digit so that it is not read back as
// a server number; ids made only of digits are shown whole.
func ShortID(id model.ID) string {
	if _, ok := id.RemoteID(); ok {
		return string(id)
	}
	n := shortIDLength
	for n < len(id) && strings.Trim(string(id[:n]), "0123456789") == "" {
		n++
	}
	if n < len(id) {
		return string(id[:n])
	}
	return string(id)
}

func PriorityLabel(p model.Priority) string {
	return titleCaser.String(string(p))
}

func Age(created time.Time, now time.Time) string {
	return humanize.RelTime(created, now, "ago", "from now")
}

func Stats(total int, done int) string {
	return fmt.Sprintf("%s tasks · %s done", humanize.Comma(int64(total)), humanize.Comma(int64(done)))
}
