package output

import (
	"fmt"
	"strings"

	"github.com/panbanda/sift/pkg/analyzer/similarity"
)

// ReportOptions controls how much of an analysis report is rendered.
type ReportOptions struct {
	// ShowBlocks lists the matching regions of every reported pair.
	ShowBlocks bool
	// Colored highlights similarity scores in text tables.
	Colored bool
}

// NewSimilarityReport builds a renderable view of r. Structured formats
// serialize r itself, without blocks unless opts.ShowBlocks is set.
func NewSimilarityReport(r *similarity.Report, opts ReportOptions) *Report {
	out := &Report{
		Title: "Structural Similarity",
		Data:  r,
	}
	if !opts.ShowBlocks {
		out.Data = withoutBlocks(r)
	}

	out.Sections = append(out.Sections, pairsTable(r, opts))
	if opts.ShowBlocks {
		if s := blocksSection(r); s != nil {
			out.Sections = append(out.Sections, s)
		}
	}
	if len(r.Clusters) > 0 {
		out.Sections = append(out.Sections, clustersTable(r))
	}
	if len(r.Failures) > 0 {
		out.Sections = append(out.Sections, failuresTable(r))
	}
	out.Sections = append(out.Sections, summarySection(r))
	return out
}

// withoutBlocks returns a shallow copy of r whose diffs carry no blocks.
func withoutBlocks(r *similarity.Report) *similarity.Report {
	stripped := *r
	stripped.Diffs = make([]similarity.ScoredDiff, len(r.Diffs))
	for i, d := range r.Diffs {
		d.Blocks = nil
		stripped.Diffs[i] = d
	}
	return &stripped
}

// Percent formats a similarity score for display.
func Percent(similarity float64) string {
	return fmt.Sprintf("%.1f%%", similarity*100)
}

func pairsTable(r *similarity.Report, opts ReportOptions) *Table {
	rows := make([][]string, 0, len(r.Diffs))
	for _, d := range r.Diffs {
		score := Percent(d.Similarity)
		if opts.Colored {
			score = SimilarityColor(d.Similarity, score)
		}
		if d.Identical {
			score += " (identical)"
		}
		rows = append(rows, []string{
			d.Left.Path,
			d.Right.Path,
			score,
			fmt.Sprintf("%d", d.Shared),
			fmt.Sprintf("%d", len(d.Blocks)),
		})
	}

	footer := []string{
		fmt.Sprintf("%d pairs", len(r.Diffs)),
		fmt.Sprintf("%d compared", r.Summary.ComparedPairs),
		"", "", "",
	}
	return NewTable("Similar Pairs", []string{"Left", "Right", "Similarity", "Shared", "Blocks"}, rows, footer, r.Diffs)
}

func blocksSection(r *similarity.Report) *Section {
	var sections []Section
	for _, d := range r.Diffs {
		if len(d.Blocks) == 0 {
			continue
		}
		var b strings.Builder
		for i, block := range d.Blocks {
			fmt.Fprintf(&b, "%d. %s %s <-> %s %s (%d fingerprints)\n",
				i+1,
				d.Left.Path, block.LeftSelection,
				d.Right.Path, block.RightSelection,
				block.Match.LeftKmers.Len(),
			)
		}
		sections = append(sections, Section{
			Title:   fmt.Sprintf("%s <-> %s (%s)", d.Left.Path, d.Right.Path, Percent(d.Similarity)),
			Content: strings.TrimRight(b.String(), "\n"),
		})
	}
	if len(sections) == 0 {
		return nil
	}
	return &Section{Title: "Matching Blocks", Sections: sections}
}

func clustersTable(r *similarity.Report) *Table {
	rows := make([][]string, 0, len(r.Clusters))
	for _, c := range r.Clusters {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.ID),
			fmt.Sprintf("%d", len(c.Files)),
			strings.Join(c.Files, ", "),
		})
	}
	title := fmt.Sprintf("Clusters (similarity >= %s)", Percent(r.Options.ClusterThreshold))
	return NewTable(title, []string{"ID", "Size", "Files"}, rows, nil, r.Clusters)
}

func failuresTable(r *similarity.Report) *Table {
	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, []string{f.Path, string(f.Kind), f.Message})
	}
	return NewTable("Skipped Files", []string{"Path", "Stage", "Error"}, rows, nil, r.Failures)
}

func summarySection(r *similarity.Report) *Section {
	s := r.Summary
	lines := []string{
		fmt.Sprintf("Files analyzed:   %d of %d", s.AnalyzedFiles, s.TotalFiles),
		fmt.Sprintf("Pairs compared:   %d", s.ComparedPairs),
		fmt.Sprintf("Pairs reported:   %d", s.ReportedPairs),
		fmt.Sprintf("Identical pairs:  %d", s.IdenticalPairs),
		fmt.Sprintf("Fingerprints:     %d distinct", s.DistinctHashes),
	}
	if s.Similarity.Count > 0 {
		lines = append(lines, fmt.Sprintf("Similarity:       mean %s, median %s, p95 %s, max %s",
			Percent(s.Similarity.Mean),
			Percent(s.Similarity.Median),
			Percent(s.Similarity.P95),
			Percent(s.Similarity.Max),
		))
	}
	lines = append(lines, fmt.Sprintf("Options:          k=%d w=%d language=%s",
		r.Options.KmerLength, r.Options.WindowSize, r.Options.Language))
	return &Section{Title: "Summary", Content: strings.Join(lines, "\n"), Data: s}
}
