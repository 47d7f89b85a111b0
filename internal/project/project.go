// Package project persists named sets of input exports so a run can be
// repeated without passing every path again.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/sitelens-cli/internal/parser"
	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
	"github.com/KaramelBytes/sitelens-cli/internal/utils"
	"github.com/google/uuid"
)

const (
	projectFileName = "project.json"
	reportsDirName  = "reports"
)

// Project represents a sitelens project persisted on disk.
type Project struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Inputs      map[string]*Input `json:"inputs"`
	Config      *ProjectConfig    `json:"config"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// ProjectConfig overrides global pipeline policies; empty fields inherit.
type ProjectConfig struct {
	ZeroHoursPolicy    string `json:"zero_hours_policy,omitempty"`
	DuplicateKeyPolicy string `json:"duplicate_key_policy,omitempty"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Inputs:      make(map[string]*Input),
		Config:      &ProjectConfig{},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Inputs == nil {
		p.Inputs = make(map[string]*Input)
	}
	if p.Config == nil {
		p.Config = &ProjectConfig{}
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// ReportsDir is where analyze writes reports for this project.
func (p *Project) ReportsDir() string { return filepath.Join(p.rootDir, reportsDirName) }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(p)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(p.rootDir, projectFileName), data)
}

// AddInput parses the file at path, checks it carries the role's required
// columns and registers it, replacing any previous input for that role.
func (p *Project) AddInput(role pipeline.Role, path string, opt parser.Options) (*Input, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	t, err := parser.ParseFile(abs, opt)
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	for _, col := range pipeline.RequiredColumns(role) {
		if _, ok := t.Index(col); !ok {
			return nil, &pipeline.SchemaError{Role: role, Column: col}
		}
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	in := &Input{
		ID:      uuid.NewString(),
		Role:    string(role),
		Path:    abs,
		Name:    filepath.Base(abs),
		Rows:    t.Len(),
		Columns: cols,
		AddedAt: time.Now(),
	}
	if p.Inputs == nil {
		p.Inputs = make(map[string]*Input)
	}
	p.Inputs[string(role)] = in
	p.UpdatedAt = time.Now()
	return in, nil
}

// RemoveInput drops the input registered for role, if any.
func (p *Project) RemoveInput(role pipeline.Role) bool {
	if _, ok := p.Inputs[string(role)]; !ok {
		return false
	}
	delete(p.Inputs, string(role))
	p.UpdatedAt = time.Now()
	return true
}

// Missing lists roles without a registered input.
func (p *Project) Missing(requirePayroll bool) []pipeline.Role {
	var out []pipeline.Role
	for _, r := range pipeline.Roles() {
		if r == pipeline.RolePayroll && !requirePayroll {
			continue
		}
		if _, ok := p.Inputs[string(r)]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Sources parses every registered input into pipeline sources. Roles without
// an input are left out so the pipeline gate reports them.
func (p *Project) Sources(opt parser.Options) (pipeline.Inputs, error) {
	in := pipeline.Inputs{}
	for _, r := range pipeline.Roles() {
		rec, ok := p.Inputs[string(r)]
		if !ok {
			continue
		}
		t, err := parser.ParseFile(rec.Path, opt)
		if err != nil {
			return nil, &pipeline.InputError{Role: r, Name: rec.Name, Err: err}
		}
		in[r] = pipeline.Source{Name: rec.Name, Table: t}
	}
	return in, nil
}

// ApplyConfig layers the project's policy overrides onto opt.
func (p *Project) ApplyConfig(opt *pipeline.Options) error {
	if p.Config == nil {
		return nil
	}
	if v := strings.TrimSpace(p.Config.ZeroHoursPolicy); v != "" {
		z, err := pipeline.ParseZeroHoursPolicy(v)
		if err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
		opt.ZeroHours = z
	}
	if v := strings.TrimSpace(p.Config.DuplicateKeyPolicy); v != "" {
		d, err := pipeline.ParseDuplicateKeyPolicy(v)
		if err != nil {
			return fmt.Errorf("project %s: %w", p.Name, err)
		}
		opt.DuplicateKeys = d
	}
	return nil
}
