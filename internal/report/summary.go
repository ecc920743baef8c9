package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"moviesync/internal/engine"
	"moviesync/internal/ingest"
	"moviesync/pkg/utils"
)

// maxReasonWidth bounds the failure reason column.
const maxReasonWidth = 80

// Sync writes the summary of a synchronization run.
func Sync(w io.Writer, s *engine.Summary) error {
	var sb strings.Builder

	sb.WriteString("## Popular movies sync\n\n")
	sb.WriteString(Table([]string{"Metric", "Value"}, [][]string{
		{"Candidates", strconv.Itoa(s.Candidates)},
		{"Retained", strconv.Itoa(s.Retained)},
		{"Entering", strconv.Itoa(s.Entering)},
		{"Leaving", strconv.Itoa(s.Leaving)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Not found", strconv.Itoa(s.NotFound)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Deferred", strconv.Itoa(s.Deferred)},
		{"Reviews merged", strconv.Itoa(s.ReviewsMerged)},
		{"Evicted", strconv.Itoa(s.Evicted)},
		{"Eviction failures", strconv.Itoa(s.EvictionFailures)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}))
	sb.WriteString("\n")

	if len(s.Outcomes) > 0 {
		rows := make([][]string, 0, len(s.Outcomes))
		text := utils.NewStringHelper()

		for _, o := range s.Outcomes {
			reason := ""
			if o.Reason != nil {
				reason = text.TruncateString(o.Reason.Error(), maxReasonWidth)
			}

			rows = append(rows, []string{
				o.Movie.IMDbID,
				tmdbID(o.Movie.TMDBID),
				o.Status.String(),
				strconv.Itoa(o.NewReviews),
				reason,
			})
		}

		sb.WriteString("\n### Movies\n\n")
		sb.WriteString(Table([]string{"IMDb", "TMDB", "Status", "New reviews", "Reason"}, rows))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

// Ingest writes the summary of a catalog ingest.
func Ingest(w io.Writer, s *ingest.Summary, from, to time.Time) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Catalog ingest %s to %s\n\n", from.Format(time.DateOnly), to.Format(time.DateOnly))
	sb.WriteString(Table([]string{"Metric", "Value"}, [][]string{
		{"Listed", strconv.Itoa(s.Listed)},
		{"Succeeded", strconv.Itoa(s.Succeeded)},
		{"Not found", strconv.Itoa(s.NotFound)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Reviews", strconv.Itoa(s.Reviews)},
		{"Cast credits", strconv.Itoa(s.CastCredits)},
		{"Director credits", strconv.Itoa(s.DirectorCredits)},
		{"People", strconv.Itoa(s.People)},
		{"Duplicates", strconv.Itoa(s.Duplicates)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}))
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())

	return err
}

func tmdbID(id int) string {
	if id == 0 {
		return "-"
	}

	return strconv.Itoa(id)
}
