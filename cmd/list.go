package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	listProjects bool
	listInputs   bool
	listProjName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects or a project's inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listProjects == listInputs { // either both true or both false
			return fmt.Errorf("specify exactly one of --projects or --inputs")
		}
		out := cmd.OutOrStdout()
		if listProjects {
			return listAllProjects(cmd)
		}
		if listProjName == "" {
			return fmt.Errorf("--project is required when using --inputs")
		}
		p, err := loadProjectByName(listProjName)
		if err != nil {
			return err
		}
		for _, r := range pipeline.Roles() {
			in, ok := p.Inputs[string(r)]
			if !ok {
				fmt.Fprintf(out, "- %-9s (missing)\n", r)
				continue
			}
			fmt.Fprintf(out, "- %-9s %s (%d rows) %s\n", r, in.Name, in.Rows, in.ID)
		}
		return nil
	},
}

func listAllProjects(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	root, err := defaultProjectsDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		pj := filepath.Join(root, e.Name(), "project.json")
		if _, err := os.Stat(pj); err == nil {
			fmt.Fprintf(out, "- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Fprintln(out, "(no projects)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listProjects, "projects", false, "list projects")
	listCmd.Flags().BoolVar(&listInputs, "inputs", false, "list the inputs registered in a project")
	listCmd.Flags().StringVarP(&listProjName, "project", "p", "", "project name for --inputs")
}
