package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var fixtures = map[string]string{
	"progress":  "Project_ID,Planned_Days,Actual_Days\nP1,120,130\nP2,90,85\nP3,200,230\nP4,60,61\nP5,150,140\nP6,100,120\n",
	"log":       "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP2,30,40\nP3,70,80\nP4,20,40\nP5,35,50\nP6,28,40\n",
	"payroll":   "Employee,Hours\nE1,8\n",
	"spend":     "Project_ID,Total_Spend_$\nP1,1200000\nP2,800000\nP3,2100000\nP4,450000\nP5,1500000\nP6,950000\n",
	"shrinkage": "Project_ID,Total_Shrinkage_$\nP1,36000\nP2,12000\nP3,88000\nP4,9000\nP5,30000\nP6,41000\n",
}

// resetFlags restores every flag to its default so runs don't leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns captured stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out.String()
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for role, body := range fixtures {
		if err := os.WriteFile(filepath.Join(home, role+".csv"), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", role, err)
		}
	}
	return home
}

func TestCLI_ProjectFlow(t *testing.T) {
	home := setupHome(t)

	runCmd(t, "init", "site", "-d", "quarterly review")
	for _, role := range []string{"progress", "log", "spend", "shrinkage"} {
		runCmd(t, "add", "-p", "site", "--role", role, filepath.Join(home, role+".csv"))
	}

	// Payroll still missing: analyze waits and succeeds without a report.
	out := runCmd(t, "analyze", "-p", "site")
	if !strings.Contains(out, "Analysis not run") {
		t.Fatalf("expected waiting notice, got:\n%s", out)
	}
	reports := filepath.Join(home, ".sitelens", "projects", "site", "reports")
	if _, err := os.Stat(reports); !os.IsNotExist(err) {
		t.Fatalf("reports dir should not exist yet: %v", err)
	}

	runCmd(t, "add", "-p", "site", "--role", "payroll", filepath.Join(home, "payroll.csv"))
	listing := runCmd(t, "list", "--inputs", "-p", "site")
	if strings.Contains(listing, "(missing)") {
		t.Fatalf("all roles should be registered:\n%s", listing)
	}

	runCmd(t, "analyze", "-p", "site")
	entries, err := os.ReadDir(reports)
	if err != nil {
		t.Fatalf("read reports: %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".md") {
		t.Fatalf("reports = %v", entries)
	}
	b, err := os.ReadFile(filepath.Join(reports, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	for _, section := range []string{"[MASTER DATASET]", "[CORRELATIONS]", "[PARTIAL CORRELATION]"} {
		if !strings.Contains(string(b), section) {
			t.Fatalf("report missing %s", section)
		}
	}
}

func TestCLI_AnalyzeFlagsJSON(t *testing.T) {
	home := setupHome(t)
	args := []string{"analyze", "--format", "json"}
	for role := range fixtures {
		args = append(args, "--"+role, filepath.Join(home, role+".csv"))
	}
	out := runCmd(t, args...)

	var view map[string]interface{}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if view["status"] != "ok" {
		t.Fatalf("status = %v", view["status"])
	}
	master := view["master"].(map[string]interface{})
	if rows := master["rows"].([]interface{}); len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
}

func TestCLI_AnalyzeWithoutPayrollRequirement(t *testing.T) {
	home := setupHome(t)
	out := filepath.Join(home, "out", "report.xlsx")
	args := []string{"analyze", "--require-payroll=false", "--format", "xlsx", "-o", out}
	for _, role := range []string{"progress", "log", "spend", "shrinkage"} {
		args = append(args, "--"+role, filepath.Join(home, role+".csv"))
	}
	runCmd(t, args...)
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat workbook: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("empty workbook")
	}
}

func TestCLI_AnalyzeSchemaErrorFails(t *testing.T) {
	home := setupHome(t)
	bad := filepath.Join(home, "bad_spend.csv")
	if err := os.WriteFile(bad, []byte("Project_ID,Amount\nP1,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetOut(&bytes.Buffer{})
	args := []string{"analyze", "--spend", bad}
	for _, role := range []string{"progress", "log", "payroll", "shrinkage"} {
		args = append(args, "--"+role, filepath.Join(home, role+".csv"))
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "Total_Spend_$") {
		t.Fatalf("err = %v, want missing Total_Spend_$", err)
	}
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	setupHome(t)
	runCmd(t, "config", "set", "zero_hours_policy", "skip")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "zero_hours_policy: skip") {
		t.Fatalf("config show:\n%s", out)
	}
	resetFlags(rootCmd)
	cfg = nil
	rootCmd.SetArgs([]string{"config", "set", "output_format", "pdf"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected validation error for output_format=pdf")
	}
}

func TestCLI_Profile(t *testing.T) {
	home := setupHome(t)
	out := runCmd(t, "profile", filepath.Join(home, "spend.csv"))
	if !strings.Contains(out, "[DATASET SUMMARY]") || !strings.Contains(out, "spend.csv") {
		t.Fatalf("profile output:\n%s", out)
	}
}

func TestCLI_ProfileRoleCheck(t *testing.T) {
	home := setupHome(t)
	out := runCmd(t, "profile", "--role", "spend", filepath.Join(home, "spend.csv"))
	if !strings.Contains(out, "[ROLE CHECK]\n- ready to register as spend") {
		t.Fatalf("clean spend output:\n%s", out)
	}

	bad := filepath.Join(home, "hours.csv")
	body := "Project_ID,Used_Hours,Available_Hours\nP1,40,50\nP2,30,0\n"
	if err := os.WriteFile(bad, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out = runCmd(t, "profile", "--role", "log", bad)
	if !strings.Contains(out, "- log: Available_Hours: 1 zero value(s)") {
		t.Fatalf("zero hours not reported:\n%s", out)
	}
	out = runCmd(t, "profile", "--role", "shrinkage", bad)
	if !strings.Contains(out, "- shrinkage: missing required column Total_Shrinkage_$") {
		t.Fatalf("missing column not reported:\n%s", out)
	}
}

func TestCLI_AnalyzeHelpDescribesModels(t *testing.T) {
	for _, want := range []string{
		"Total_Spend ~ Total_Shrinkage",
		"Total_Shrinkage ~ Schedule_Variance_Days + Total_Spend",
		"given spend",
	} {
		if !strings.Contains(analyzeCmd.Long, want) {
			t.Fatalf("analyze help missing %q:\n%s", want, analyzeCmd.Long)
		}
	}
}
