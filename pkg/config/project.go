package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Project lists the analysis files of an alignment run.
type Project struct {
	Name  string              `json:"name"`
	Files []core.AnalysisFile `json:"files"`
}

// LoadProject reads a project file. Relative spectra and peak-list paths are
// resolved against the project file's directory.
func LoadProject(path string) (*Project, error) {
	p := &Project{}
	if err := readJSON(path, p); err != nil {
		return nil, err
	}

	base := filepath.Dir(filepath.Clean(path))
	for i := range p.Files {
		f := &p.Files[i]
		if f.SpectraPath != "" && !filepath.IsAbs(f.SpectraPath) {
			f.SpectraPath = filepath.Join(base, f.SpectraPath)
		}
		if f.PeakListPath != "" && !filepath.IsAbs(f.PeakListPath) {
			f.PeakListPath = filepath.Join(base, f.PeakListPath)
		}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}
	return p, nil
}

// Validate checks that file IDs are dense and types are known, and fills in
// the parsed file types.
func (p *Project) Validate() error {
	var errs []string

	if len(p.Files) == 0 {
		errs = append(errs, "at least one analysis file is required")
	}
	for i := range p.Files {
		f := &p.Files[i]
		if f.ID != i {
			errs = append(errs, fmt.Sprintf("file %d has id %d, ids must equal list position", i, f.ID))
		}
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("file %d has no name", i))
		}
		t, err := ParseFileType(f.TypeName)
		if err != nil {
			errs = append(errs, fmt.Sprintf("file %d: %v", i, err))
		}
		f.Type = t
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, strings.Join(errs, "; "))
	}
	return nil
}

// CheckFiles verifies that every referenced input file exists.
func (p *Project) CheckFiles() error {
	var missing []string
	for _, f := range p.Files {
		for _, path := range []string{f.SpectraPath, f.PeakListPath} {
			if path == "" {
				missing = append(missing, fmt.Sprintf("%s: path not set", f.Name))
				continue
			}
			if _, err := os.Stat(path); err != nil {
				missing = append(missing, fmt.Sprintf("%s: %s", f.Name, path))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing input files: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseFileType converts a file type name; empty means Sample.
func ParseFileType(s string) (core.AnalysisFileType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sample":
		return core.FileTypeSample, nil
	case "qc":
		return core.FileTypeQC, nil
	case "blank":
		return core.FileTypeBlank, nil
	case "standard":
		return core.FileTypeStandard, nil
	default:
		return core.FileTypeSample, fmt.Errorf("unknown file type %q", s)
	}
}
