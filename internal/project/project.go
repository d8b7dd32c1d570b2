// Package project locates dbt projects on disk and resolves which project
// owns a given file.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ConfigFileName marks the root of a dbt project.
const ConfigFileName = "dbt_project.yml"

// Project is a discovered dbt project.
type Project struct {
	Name string // project name from dbt_project.yml
	Root string // absolute root directory
}

// projectFile is the subset of dbt_project.yml we read.
type projectFile struct {
	Name       string `yaml:"name"`
	TargetPath string `yaml:"target-path"`
}

// Load reads dbt_project.yml from a project root.
func Load(root string) (*Project, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}

	var pf projectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	if pf.Name == "" {
		return nil, fmt.Errorf("%s in %s has no name", ConfigFileName, root)
	}

	return &Project{Name: pf.Name, Root: root}, nil
}

// FindRoot walks up from the given path to the nearest directory containing
// dbt_project.yml. Returns empty string when no project owns the path.
func FindRoot(path string) string {
	dir := path
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		dir = filepath.Dir(path)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Discover finds all dbt projects under a workspace root. Installed package
// copies (dbt_packages), build output (target) and hidden directories are
// skipped so a package's own dbt_project.yml doesn't register as a project.
func Discover(workspaceRoot string) ([]*Project, error) {
	var projects []*Project

	err := filepath.WalkDir(workspaceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, keep walking
		}
		if d.IsDir() {
			name := d.Name()
			if path != workspaceRoot && (name == "target" || name == "dbt_packages" || name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ConfigFileName {
			return nil
		}

		p, err := Load(filepath.Dir(path))
		if err != nil {
			return nil // malformed project file, skip
		}
		projects = append(projects, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Root < projects[j].Root })
	return projects, nil
}

// Finder answers ownership lookups for a fixed set of projects.
type Finder struct {
	mu       sync.RWMutex
	projects []*Project
}

// NewFinder creates a Finder over the given projects.
func NewFinder(projects []*Project) *Finder {
	f := &Finder{}
	f.mu.Lock()
	f.projects = append(f.projects, projects...)
	f.mu.Unlock()
	return f
}

// ProjectFor returns the project owning the given file path, preferring the
// most deeply nested root when projects overlap. Returns nil when no project
// owns the path.
func (f *Finder) ProjectFor(path string) *Project {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var best *Project
	for _, p := range f.projects {
		rel, err := filepath.Rel(p.Root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if best == nil || len(p.Root) > len(best.Root) {
			best = p
		}
	}
	return best
}

// Projects returns all known projects.
func (f *Finder) Projects() []*Project {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Project(nil), f.projects...)
}
