package report

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/stats"
)

// Markdown renders the result in the bracketed-section layout used by the
// dataset summaries.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder

	b.WriteString("[INPUTS]\n")
	for _, in := range res.Inputs {
		b.WriteString(fmt.Sprintf("- %s: %s (%d rows, %d columns)\n", in.Role, in.Name, in.Rows, len(in.Columns)))
	}

	if res.Master != nil {
		b.WriteString(fmt.Sprintf("\n[MASTER DATASET]\nRows: %d\n", res.Master.Len()))
		rows := make([][]string, res.Master.Len())
		for i := range rows {
			rows[i] = res.Master.Record(i)
		}
		analysis.WriteMarkdownTable(&b, res.Master.Header(), rows)
	}

	if res.Analysis != nil {
		b.WriteString("\n[CORRELATIONS]\n")
		writeCorrelation(&b, res.Correlation)

		writeRegression(&b, "SIMPLE REGRESSION", res.Simple)
		writeRegression(&b, "CONTROLLED REGRESSION", res.Controlled)

		b.WriteString("\n[PARTIAL CORRELATION]\n")
		b.WriteString(fmt.Sprintf("%s vs %s, controlling for %s: %.4f\n",
			pipeline.ColScheduleVariance, pipeline.ColTotalShrinkage, pipeline.ColTotalSpend, res.PartialCorrelation))
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range res.Warnings {
			b.WriteString("- ")
			b.WriteString(w.String())
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeCorrelation(b *strings.Builder, m *stats.CorrMatrix) {
	header := append([]string{""}, m.Columns...)
	rows := make([][]string, len(m.Columns))
	for i, name := range m.Columns {
		row := []string{name}
		for _, v := range m.Values[i] {
			row = append(row, fmt.Sprintf("%.4f", v))
		}
		rows[i] = row
	}
	analysis.WriteMarkdownTable(b, header, rows)
}

func writeRegression(b *strings.Builder, title string, r *stats.Regression) {
	b.WriteString(fmt.Sprintf("\n[%s: %s]\n", title, r.Formula()))
	b.WriteString("```\n")
	b.WriteString(r.Summary())
	b.WriteString("```\n")
}
