package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
)

// Write renders the report as a table followed by a summary line. Failed
// tasks are followed by their error and the tail of their diagnostics.
func (r *RunReport) Write(w io.Writer, colorized bool) error {
	paint := painter(colorized)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tDURATION\tREASON")
	for _, t := range r.Tasks {
		dur := "-"
		if d := t.Duration(); d > 0 {
			dur = d.Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, paint(t.Status, string(t.Status)), dur, t.Reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, t := range r.Tasks {
		if t.Status != Failed {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", paint(Failed, "FAILED"), t.ID)
		if t.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", t.Error)
		}
		if t.Diagnostics != "" {
			for _, line := range lastLines(t.Diagnostics, 20) {
				fmt.Fprintf(w, "  | %s\n", line)
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", r.Summary(paint))
	return err
}

// Summary returns a one-line overview such as
// "run 1b4e...: 4 succeeded, 1 blocked in 2.1s".
func (r *RunReport) Summary(paint func(Status, string) string) string {
	if paint == nil {
		paint = painter(false)
	}
	counts := r.Counts()
	var parts []string
	for _, s := range Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, paint(s, fmt.Sprintf("%d %s", n, s)))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "nothing to do")
	}
	elapsed := r.Finished.Sub(r.Started).Round(time.Millisecond)
	return fmt.Sprintf("run %s: %s in %s", r.RunID, strings.Join(parts, ", "), elapsed)
}

func painter(colorized bool) func(Status, string) string {
	return func(s Status, text string) string {
		if !colorized {
			return text
		}
		c := color.New(statusColor(s))
		c.EnableColor()
		return c.Sprint(text)
	}
}

func statusColor(s Status) color.Attribute {
	switch s {
	case Succeeded:
		return color.FgGreen
	case Skipped:
		return color.FgCyan
	case Failed:
		return color.FgRed
	case Blocked:
		return color.FgMagenta
	case Cancelled:
		return color.FgYellow
	}
	return color.FgWhite
}

func lastLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
