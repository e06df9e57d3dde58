package main

import (
	"fmt"
	"io"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/usecase"
)

func printRunResult(w io.Writer, r usecase.RunResult) {
	fmt.Fprintf(w, "run %s: %d due, %d cooling, %d candidates (%d search failures), %d new, %d duplicates",
		r.RunID, r.InterestsDue, r.InterestsCooling, r.CandidatesFound, r.SearchFailures,
		r.NewArticlesSaved, r.DuplicatesFiltered)
	if r.BriefingID != 0 {
		fmt.Fprintf(w, ", briefing %d (%d fetched, %d failed)", r.BriefingID, r.ScrapingSuccessCount, r.ScrapingFailureCount)
	}
	if r.Err != nil {
		fmt.Fprintf(w, ", stopped: %v", r.Err)
	}
	fmt.Fprintln(w)
}

// renderBriefing writes the briefing as markdown. Without a summary the ranked article list is shown.
func renderBriefing(b domain.Briefing, articles []domain.Article) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	fmt.Fprintf(&sb, "_Briefing %d, %s_\n\n", b.ID, b.CreatedAt.Local().Format("Mon 2 Jan 2006 15:04"))
	if len(b.Topics) > 0 {
		fmt.Fprintf(&sb, "Topics: %s\n\n", strings.Join(b.Topics, ", "))
	}

	if b.Summary == nil {
		sb.WriteString("## Articles\n\n")
		for _, a := range articles {
			fmt.Fprintf(&sb, "- [%s](%s) (%s) `#%d`\n", a.Title, a.URL, a.Source, a.ID)
		}
		return sb.String()
	}

	s := b.Summary
	if len(s.Headlines) > 0 {
		sb.WriteString("## Headlines\n\n")
		for _, h := range s.Headlines {
			fmt.Fprintf(&sb, "### %s\n\n%s %s\n\n", h.Title, h.Summary, citeMarks(h.Citations))
		}
	}
	if len(s.Bites) > 0 {
		sb.WriteString("## In brief\n\n")
		for _, bite := range s.Bites {
			fmt.Fprintf(&sb, "- %s %s\n", bite.Text, citeMarks(bite.Citations))
		}
		sb.WriteString("\n")
	}
	if len(s.Images) > 0 {
		for _, img := range s.Images {
			fmt.Fprintf(&sb, "![%s](%s)\n", img.Caption, img.URL)
		}
		sb.WriteString("\n")
	}

	ids := make(map[string]int64, len(articles))
	for _, a := range articles {
		ids[a.URL] = a.ID
	}
	if len(s.Citations) > 0 {
		sb.WriteString("## Sources\n\n")
		for _, c := range s.Citations {
			fmt.Fprintf(&sb, "%d. [%s](%s)", c.Index, c.Title, c.URL)
			if c.Source != "" {
				fmt.Fprintf(&sb, " (%s)", c.Source)
			}
			if id, ok := ids[c.URL]; ok {
				fmt.Fprintf(&sb, " `#%d`", id)
			}
			sb.WriteString("\n")
		}
	}
	if s.Fallback {
		sb.WriteString("\n_Summary generated from article metadata._\n")
	}
	return sb.String()
}

func citeMarks(indices []int) string {
	marks := make([]string, 0, len(indices))
	for _, i := range indices {
		marks = append(marks, fmt.Sprintf("[%d]", i))
	}
	return strings.Join(marks, "")
}
