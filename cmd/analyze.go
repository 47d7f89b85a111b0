package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cfgpkg "github.com/KaramelBytes/sitelens-cli/internal/config"
	"github.com/KaramelBytes/sitelens-cli/internal/parser"
	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/project"
	"github.com/KaramelBytes/sitelens-cli/internal/report"
	"github.com/KaramelBytes/sitelens-cli/internal/ui"
	"github.com/KaramelBytes/sitelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaProject        string
	anaOutputPath     string
	anaFormat         string
	anaHeatmap        bool
	anaZeroHours      string
	anaDuplicateKeys  string
	anaRequirePayroll bool
	anaDelimiter      string
	anaDecimal        string
	anaThousands      string
	anaSheetName      string
	anaSheetIndex     int
)

// anaPaths holds one --<role> flag value per input role.
var anaPaths = map[pipeline.Role]*string{}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Join the five exports and report correlations and regressions",
	Long: `Join the progress, log, payroll, spend and shrinkage exports on Project_ID
and report the correlation matrix, the simple regression
Total_Spend ~ Total_Shrinkage, the controlled regression
Total_Shrinkage ~ Schedule_Variance_Days + Total_Spend, and the partial
correlation of shrinkage and schedule variance given spend.

Inputs come from --progress/--log/--payroll/--spend/--shrinkage, from a project
registered with 'sitelens add', or both (flags win). While an input is missing
the command lists what it is waiting for and exits successfully.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt, err := c.PipelineOptions()
		if err != nil {
			return err
		}
		var p *project.Project
		if anaProject != "" {
			if p, err = loadProjectByName(anaProject); err != nil {
				return err
			}
			if err := p.ApplyConfig(&opt); err != nil {
				return err
			}
		}
		if err := applyAnalyzeFlags(cmd, &opt); err != nil {
			return err
		}
		opt.Logger = logger

		format := c.OutputFormat
		if cmd.Flags().Changed("format") {
			format = anaFormat
		}
		format = strings.ToLower(format)
		switch format {
		case "markdown", "md", "json", "xlsx":
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json|xlsx)", format)
		}

		in, closeAll, err := collectInputs(p, opt)
		if err != nil {
			return err
		}
		defer closeAll()

		res, err := pipeline.Run(in, opt)
		if err != nil {
			var mi *pipeline.MissingInputError
			if errors.As(err, &mi) {
				ui.PrintInfo("Waiting for inputs: %s", rolesString(mi.Missing))
				fmt.Fprintln(cmd.ErrOrStderr(), ui.WarningBox("Analysis not run",
					"Provide the missing exports with --<role> <file> or 'sitelens add --role <role>'."))
				return nil
			}
			return err
		}
		for _, w := range res.Warnings {
			ui.PrintWarning("%s", w.String())
		}

		data, err := renderResult(res, format)
		if err != nil {
			return err
		}
		out := anaOutputPath
		if out == "" && p != nil {
			out = filepath.Join(p.ReportsDir(), fmt.Sprintf("analysis-%s.%s", time.Now().Format("20060102-150405"), extFor(format)))
		}
		if out == "" && format == "xlsx" {
			return fmt.Errorf("--output is required for xlsx unless --project is set")
		}
		if out == "" {
			fmt.Fprint(cmd.OutOrStdout(), string(data))
		} else {
			if err := utils.SafeWriteFile(out, data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			ui.PrintSuccess("Wrote %s report to %s", format, out)
		}
		if anaHeatmap {
			fmt.Fprintln(cmd.OutOrStdout(), report.Heatmap(res.Correlation))
		}
		return nil
	},
}

func applyAnalyzeFlags(cmd *cobra.Command, opt *pipeline.Options) error {
	f := cmd.Flags()
	if err := cfgpkg.ApplyTableOptions(&opt.Table, anaDelimiter, anaDecimal, anaThousands); err != nil {
		return err
	}
	if f.Changed("zero-hours") {
		z, err := pipeline.ParseZeroHoursPolicy(anaZeroHours)
		if err != nil {
			return err
		}
		opt.ZeroHours = z
	}
	if f.Changed("duplicate-keys") {
		d, err := pipeline.ParseDuplicateKeyPolicy(anaDuplicateKeys)
		if err != nil {
			return err
		}
		opt.DuplicateKeys = d
	}
	if f.Changed("require-payroll") {
		opt.RequirePayroll = anaRequirePayroll
	}
	if anaSheetName != "" {
		opt.SheetName = anaSheetName
	}
	if anaSheetIndex > 0 {
		opt.SheetIndex = anaSheetIndex
	}
	return nil
}

// collectInputs merges project inputs with per-role flag paths. The returned
// func closes any files opened for the flags.
func collectInputs(p *project.Project, opt pipeline.Options) (pipeline.Inputs, func(), error) {
	popt := parser.Options{Table: opt.Table, SheetName: opt.SheetName, SheetIndex: opt.SheetIndex}
	in := pipeline.Inputs{}
	if p != nil {
		src, err := p.Sources(popt)
		if err != nil {
			return nil, func() {}, err
		}
		in = src
	}
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	for _, r := range pipeline.Roles() {
		path := *anaPaths[r]
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, &pipeline.InputError{Role: r, Name: filepath.Base(path), Err: err}
		}
		files = append(files, f)
		in[r] = pipeline.Source{Name: filepath.Base(path), Reader: f}
	}
	return in, closeAll, nil
}

func renderResult(res *pipeline.Result, format string) ([]byte, error) {
	switch format {
	case "json":
		b, err := report.JSON(res)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "xlsx":
		var buf bytes.Buffer
		if err := report.WriteXLSX(res, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return []byte(report.Markdown(res)), nil
	}
}

func extFor(format string) string {
	switch format {
	case "json", "xlsx":
		return format
	default:
		return "md"
	}
}

// parseOptions builds parser options from the configured locale.
func parseOptions(c *cfgpkg.Global) (parser.Options, error) {
	opt, err := c.PipelineOptions()
	if err != nil {
		return parser.Options{}, err
	}
	return parser.Options{Table: opt.Table}, nil
}

func rolesString(rs []pipeline.Role) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	for _, r := range pipeline.Roles() {
		anaPaths[r] = new(string)
		analyzeCmd.Flags().StringVar(anaPaths[r], string(r), "", fmt.Sprintf("path to the %s export (CSV/TSV/XLSX)", r))
	}
	analyzeCmd.Flags().StringVarP(&anaProject, "project", "p", "", "project whose registered inputs to use")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "write the report to this path instead of stdout")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "report format: markdown|json|xlsx")
	analyzeCmd.Flags().BoolVar(&anaHeatmap, "heatmap", false, "print a coloured correlation heatmap")
	analyzeCmd.Flags().StringVar(&anaZeroHours, "zero-hours", "fail", "rows with zero Available_Hours: fail|skip")
	analyzeCmd.Flags().StringVar(&anaDuplicateKeys, "duplicate-keys", "fanout", "repeated Project_ID in a single-row source: fanout|fail")
	analyzeCmd.Flags().BoolVar(&anaRequirePayroll, "require-payroll", true, "require the payroll export before running")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to read")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}
