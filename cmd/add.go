package cmd

import (
	"fmt"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	addProjectName string
	addRole        string
	addRemove      bool
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Register an input export for a role in a project",
	Long: `Register an input export for one of the roles: progress, log, payroll,
spend, shrinkage. The file is parsed and checked for the role's required
columns; a later add for the same role replaces it. With --remove the role's
input is dropped and no file argument is needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if addProjectName == "" {
			return fmt.Errorf("--project is required")
		}
		role, err := pipeline.ParseRole(addRole)
		if err != nil {
			return err
		}
		p, err := loadProjectByName(addProjectName)
		if err != nil {
			return err
		}
		if addRemove {
			if !p.RemoveInput(role) {
				ui.PrintInfo("No %s input registered in %s", role, p.Name)
				return nil
			}
			if err := p.Save(); err != nil {
				return err
			}
			ui.PrintSuccess("Removed %s input from %s", role, p.Name)
			return nil
		}
		if len(args) != 1 {
			return fmt.Errorf("a file is required unless --remove is set")
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		popt, err := parseOptions(c)
		if err != nil {
			return err
		}
		in, err := p.AddInput(role, args[0], popt)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		ui.PrintSuccess("Registered %s input: %s (%d rows)", role, in.Name, in.Rows)
		if missing := p.Missing(c.RequirePayroll); len(missing) > 0 {
			ui.PrintInfo("Still waiting for: %s", rolesString(missing))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addProjectName, "project", "p", "", "project name")
	addCmd.Flags().StringVarP(&addRole, "role", "r", "", "input role: progress|log|payroll|spend|shrinkage")
	addCmd.Flags().BoolVar(&addRemove, "remove", false, "remove the role's input instead of adding one")
	_ = addCmd.MarkFlagRequired("role")
}
