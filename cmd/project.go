package cmd

import (
	"fmt"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/project"
	"github.com/KaramelBytes/sitelens-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	pmProject string
	pmClear   bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage per-project settings",
}

var projectSetPolicyCmd = &cobra.Command{
	Use:   "set-policy <zero_hours|duplicate_keys> [value]",
	Short: "Set or clear a project's pipeline policy override",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if p.Config == nil {
			p.Config = &project.ProjectConfig{}
		}
		val := ""
		if !pmClear {
			if len(args) < 2 || args[1] == "" {
				return fmt.Errorf("value is required unless --clear is set")
			}
			val = args[1]
		}
		switch args[0] {
		case "zero_hours":
			if val != "" {
				z, err := pipeline.ParseZeroHoursPolicy(val)
				if err != nil {
					return err
				}
				val = string(z)
			}
			p.Config.ZeroHoursPolicy = val
		case "duplicate_keys":
			if val != "" {
				d, err := pipeline.ParseDuplicateKeyPolicy(val)
				if err != nil {
					return err
				}
				val = string(d)
			}
			p.Config.DuplicateKeyPolicy = val
		default:
			return fmt.Errorf("unknown policy: %s (use zero_hours|duplicate_keys)", args[0])
		}
		if err := p.Save(); err != nil {
			return err
		}
		if pmClear {
			ui.PrintSuccess("Cleared %s override for %s", args[0], pmProject)
		} else {
			ui.PrintSuccess("Set %s for %s: %s", args[0], pmProject, val)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectSetPolicyCmd)

	projectSetPolicyCmd.Flags().StringVarP(&pmProject, "project", "p", "", "project name")
	projectSetPolicyCmd.Flags().BoolVar(&pmClear, "clear", false, "clear the project's override")
}
