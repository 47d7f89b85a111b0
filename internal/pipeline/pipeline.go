package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/KaramelBytes/sitelens-cli/internal/parser"
	"github.com/sirupsen/logrus"
)

// Source is one input: either a reader to parse or an already parsed table.
// Name selects the format by extension and labels errors.
type Source struct {
	Name   string
	Reader io.Reader
	Table  *analysis.Table
}

func (s Source) present() bool { return s.Reader != nil || s.Table != nil }

// Inputs maps each role to its source.
type Inputs map[Role]Source

// Options tunes a run.
type Options struct {
	Table          analysis.Options
	SheetName      string
	SheetIndex     int
	ZeroHours      ZeroHoursPolicy
	DuplicateKeys  DuplicateKeyPolicy
	RequirePayroll bool
	Logger         logrus.FieldLogger
}

// DefaultOptions requires all five inputs, fails on zero Available_Hours and
// fans out duplicate keys.
func DefaultOptions() Options {
	return Options{
		Table:          analysis.DefaultOptions(),
		ZeroHours:      ZeroHoursFail,
		DuplicateKeys:  DuplicateKeysFanout,
		RequirePayroll: true,
	}
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// InputSummary describes one parsed input.
type InputSummary struct {
	Role    Role     `json:"role"`
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// Result is everything one invocation produces. Analysis is nil when only
// BuildMaster ran.
type Result struct {
	Inputs []InputSummary `json:"inputs"`
	Master *MasterTable   `json:"-"`
	*Analysis
	Warnings []Warning `json:"warnings"`
}

// Missing lists the roles the gate still needs.
func Missing(in Inputs, requirePayroll bool) []Role {
	var out []Role
	for _, r := range Roles() {
		if r == RolePayroll && !requirePayroll {
			continue
		}
		if !in[r].present() {
			out = append(out, r)
		}
	}
	return out
}

// Run executes the whole pipeline: gate, parse, extract, derive, join and
// analyze. A gate failure returns a MissingInputError and nothing else runs.
func Run(in Inputs, opt Options) (*Result, error) {
	start := time.Now()
	res, err := BuildMaster(in, opt)
	if err != nil {
		return nil, err
	}
	log := opt.logger()
	log.WithField("stage", "analyze").WithField("rows", res.Master.Len()).Debug("running analyses")
	an, err := Analyze(res.Master)
	if err != nil {
		return nil, err
	}
	res.Analysis = an
	log.WithFields(logrus.Fields{
		"rows":     res.Master.Len(),
		"warnings": len(res.Warnings),
		"elapsed":  time.Since(start).String(),
	}).Info("pipeline complete")
	return res, nil
}

// BuildMaster runs every stage up to and including the join.
func BuildMaster(in Inputs, opt Options) (*Result, error) {
	log := opt.logger()
	if missing := Missing(in, opt.RequirePayroll); len(missing) > 0 {
		log.WithField("missing", joinRoles(missing)).Info("waiting for inputs")
		return nil, &MissingInputError{Missing: missing}
	}

	res := &Result{}
	tables := map[Role]*analysis.Table{}
	for _, r := range Roles() {
		src, ok := in[r]
		if !ok || !src.present() {
			continue
		}
		t, err := load(r, src, opt)
		if err != nil {
			return nil, err
		}
		tables[r] = t
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name
		}
		res.Inputs = append(res.Inputs, InputSummary{Role: r, Name: src.Name, Rows: t.Len(), Columns: cols})
		log.WithFields(logrus.Fields{"stage": "ingest", "role": r, "rows": t.Len()}).Debug("parsed input")
	}

	progress, extra, err := ExtractProgress(tables[RoleProgress])
	if err != nil {
		return nil, err
	}
	entries, err := ExtractLog(tables[RoleLog])
	if err != nil {
		return nil, err
	}
	spend, err := ExtractSpend(tables[RoleSpend])
	if err != nil {
		return nil, err
	}
	shrinkage, err := ExtractShrinkage(tables[RoleShrinkage])
	if err != nil {
		return nil, err
	}

	util, warns, err := UtilisationAverages(entries, opt.ZeroHours)
	if err != nil {
		return nil, err
	}
	res.Warnings = append(res.Warnings, warns...)
	log.WithFields(logrus.Fields{"stage": "derive", "projects": len(util)}).Debug("averaged utilisation")

	master, warns, err := Join(progress, extra, util, spend, shrinkage, opt.DuplicateKeys)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return nil, err
	}
	res.Master = master
	for _, w := range res.Warnings {
		log.WithField("stage", w.Stage).Warn(w.String())
	}
	log.WithFields(logrus.Fields{"stage": "join", "rows": master.Len()}).Debug("joined master table")
	return res, nil
}

func load(r Role, src Source, opt Options) (*analysis.Table, error) {
	if src.Table != nil {
		return src.Table, nil
	}
	name := src.Name
	if name == "" {
		name = string(r) + ".csv"
	}
	t, err := parser.Parse(name, src.Reader, parser.Options{Table: opt.Table, SheetName: opt.SheetName, SheetIndex: opt.SheetIndex})
	if err != nil {
		return nil, &InputError{Role: r, Name: name, Err: err}
	}
	if len(t.Columns) == 0 {
		return nil, &InputError{Role: r, Name: name, Err: fmt.Errorf("no header row")}
	}
	return t, nil
}
