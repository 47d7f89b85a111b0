package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/KaramelBytes/sitelens-cli/internal/config"
	"github.com/KaramelBytes/sitelens-cli/internal/parser"
	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/ui"
	"github.com/KaramelBytes/sitelens-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profOutputPath string
	profDelimiter  string
	profDecimal    string
	profThousands  string
	profSampleRows int
	profMaxRows    int
	profOutliers   bool
	profOutlierThr float64
	profSheetName  string
	profSheetIndex int
	profRole       string
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>...",
	Short: "Summarize the columns of CSV/TSV/XLSX exports",
	Long: `Profile one or more exports before registering them: inferred column kinds,
missing counts, numeric ranges, top categories and robust outlier counts.

With --role, each file is also checked against that role's required columns:
absent columns, amounts or day/hour counts that do not parse as numbers, blank
Project_ID cells and, for the log, zero Available_Hours rows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		popt, err := parseOptions(c)
		if err != nil {
			return err
		}
		opt := &popt.Table
		if err := cfgpkg.ApplyTableOptions(opt, profDelimiter, profDecimal, profThousands); err != nil {
			return err
		}
		if profSampleRows > 0 {
			opt.SampleRows = profSampleRows
		}
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = profMaxRows
		}
		opt.Outliers = profOutliers
		if profOutlierThr > 0 {
			opt.OutlierThreshold = profOutlierThr
		}
		popt.SheetName = profSheetName
		popt.SheetIndex = profSheetIndex
		var role pipeline.Role
		if profRole != "" {
			if role, err = pipeline.ParseRole(profRole); err != nil {
				return err
			}
		}

		var b strings.Builder
		for i, path := range args {
			t, err := parser.ParseFile(path, popt)
			if err != nil {
				return err
			}
			logger.WithField("file", path).WithField("rows", t.Len()).Debug("profiling")
			if i > 0 {
				b.WriteString("\n")
			}
			rep := t.Profile(*opt)
			if role != "" {
				findings := pipeline.CheckRole(t, role)
				if len(findings) > 0 {
					ui.PrintWarning("%s: %d issue(s) for role %s", path, len(findings), role)
				}
				rep.AddSection(pipeline.RoleCheckTitle, pipeline.RoleCheckLines(role, findings)...)
			}
			b.WriteString(rep.Markdown())
		}
		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(b.String())); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			ui.PrintSuccess("Wrote profile to %s", profOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), b.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile (Markdown)")
	profileCmd.Flags().StringVar(&profDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
	profileCmd.Flags().StringVar(&profDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	profileCmd.Flags().StringVar(&profThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().IntVar(&profMaxRows, "max-rows", 100000, "maximum rows to profile (0 = unlimited)")
	profileCmd.Flags().BoolVar(&profOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	profileCmd.Flags().StringVar(&profSheetName, "sheet-name", "", "XLSX: sheet name to profile")
	profileCmd.Flags().IntVar(&profSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	profileCmd.Flags().StringVar(&profRole, "role", "", "check each file against a role's columns: progress|log|payroll|spend|shrinkage")
}
