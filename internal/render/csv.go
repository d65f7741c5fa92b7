package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/compiq/compiq/internal/comps"
)

// WriteCSV emits the ranked comparables, followed by an optional rejected
// section, as a spreadsheet-friendly export.
func WriteCSV(w io.Writer, env comps.ResponseEnvelope, includeRejected bool) error {
	cw := csv.NewWriter(w)
	header := []string{"rank", "name", "ticker", "exchange", "composite_score", "band", "semantic_similarity", "focus_overlap", "business_model_match", "rationale"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, sc := range env.Comparables {
		row := []string{
			fmt.Sprintf("%d", i+1),
			sc.Candidate.Name,
			sc.Candidate.Ticker,
			sc.Candidate.Exchange,
			fmt.Sprintf("%.3f", sc.CompositeScore),
			comps.Band(sc.CompositeScore),
			fmt.Sprintf("%.3f", sc.SemanticSimilarity),
			fmt.Sprintf("%.3f", sc.FocusOverlapScore),
			fmt.Sprintf("%.3f", sc.BusinessModelScore),
			sc.Candidate.Rationale,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	if includeRejected && len(env.Rejected) > 0 {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		if err := cw.Write([]string{"rejected_name", "failing_check", "evidence"}); err != nil {
			return err
		}
		for _, r := range env.Rejected {
			if err := cw.Write([]string{r.Candidate.Name, string(r.FailingCheck), r.Evidence}); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
