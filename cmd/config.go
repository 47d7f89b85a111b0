package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/sitelens-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set sitelens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "projects_dir: %s\n", c.ProjectsDir)
		fmt.Fprintf(out, "delimiter: %s\n", orAuto(c.Delimiter))
		fmt.Fprintf(out, "decimal_separator: %s\n", orAuto(c.DecimalSeparator))
		fmt.Fprintf(out, "thousands_separator: %s\n", orAuto(c.ThousandsSeparator))
		fmt.Fprintf(out, "zero_hours_policy: %s\n", c.ZeroHoursPolicy)
		fmt.Fprintf(out, "duplicate_key_policy: %s\n", c.DuplicateKeyPolicy)
		fmt.Fprintf(out, "require_payroll: %t\n", c.RequirePayroll)
		fmt.Fprintf(out, "output_format: %s\n", c.OutputFormat)
		fmt.Fprintf(out, "serve_addr: %s\n", c.ServeAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", c.MaxUploadMB)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		next := *c
		switch key {
		case "projects_dir":
			next.ProjectsDir = val
		case "delimiter":
			next.Delimiter = val
		case "decimal_separator":
			next.DecimalSeparator = val
		case "thousands_separator":
			next.ThousandsSeparator = val
		case "zero_hours_policy":
			next.ZeroHoursPolicy = val
		case "duplicate_key_policy":
			next.DuplicateKeyPolicy = val
		case "require_payroll":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for require_payroll: %v", val)
			}
			next.RequirePayroll = b
		case "output_format":
			next.OutputFormat = val
		case "serve_addr":
			next.ServeAddr = val
		case "max_upload_mb":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for max_upload_mb: %w", err)
			}
			next.MaxUploadMB = i
		case "log_level":
			next.LogLevel = val
		case "log_format":
			next.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		*c = next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func orAuto(s string) string {
	if s == "" {
		return "(auto)"
	}
	return strconv.Quote(s)
}
