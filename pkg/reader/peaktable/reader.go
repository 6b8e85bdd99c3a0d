// Package peaktable provides streaming readers for tab-separated tables of detected chromatographic peaks
package peaktable

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Columns every peak table must have.
var requiredColumns = []string{"PeakID", "MZ", "RT", "RTLeft", "RTRight", "Height"}

// linkPattern matches one entry of the Links column, e.g. "Adduct:12".
var linkPattern = regexp.MustCompile(`^\s*([A-Za-z]+)\s*:\s*(\d+)\s*$`)

// Reader provides streaming access to peak tables. The first non-comment
// line names the columns. Rows with a ParentPeakID of 0 or more are drift
// children of that peak.
type Reader struct {
	scanner     *bufio.Scanner
	adducts     *core.AdductDatabase
	lineNum     int
	columns     map[string]int
	currentPeak *core.ChromatogramPeakFeature
	err         error
}

// NewReader creates a new peak table reader
func NewReader(r io.Reader, adducts *core.AdductDatabase) *Reader {
	if adducts == nil {
		adducts = core.DefaultAdductDatabase()
	}

	return &Reader{
		scanner: bufio.NewScanner(r),
		adducts: adducts,
	}
}

// Next advances to the next row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	r.currentPeak = nil

	peak, err := r.readPeak()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentPeak = peak
	return true
}

// Peak returns the current row
func (r *Reader) Peak() *core.ChromatogramPeakFeature {
	return r.currentPeak
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readPeak() (*core.ChromatogramPeakFeature, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if r.columns == nil {
			if err := r.parseHeader(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			continue
		}

		peak, err := r.parseRow(strings.Split(line, "\t"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
		}
		return peak, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *Reader) parseHeader(line string) error {
	r.columns = make(map[string]int)
	for i, name := range strings.Split(line, "\t") {
		r.columns[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := r.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// row reads typed cells by column name. The first failure sticks.
type row struct {
	fields  []string
	columns map[string]int
	err     error
}

func (w *row) text(name string) string {
	i, ok := w.columns[name]
	if !ok || i >= len(w.fields) {
		return ""
	}
	return strings.TrimSpace(w.fields[i])
}

func (w *row) number(name string, def float64) float64 {
	s := w.text(name)
	if s == "" || w.err != nil {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		w.err = fmt.Errorf("invalid %s '%s': %w", name, s, err)
	}
	return v
}

func (w *row) integer(name string, def int) int {
	s := w.text(name)
	if s == "" || w.err != nil {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		w.err = fmt.Errorf("invalid %s '%s': %w", name, s, err)
	}
	return v
}

func (r *Reader) parseRow(fields []string) (*core.ChromatogramPeakFeature, error) {
	w := &row{fields: fields, columns: r.columns}

	for _, name := range requiredColumns {
		if w.text(name) == "" {
			return nil, fmt.Errorf("empty %s", name)
		}
	}

	p := &core.ChromatogramPeakFeature{
		PeakID:            w.integer("PeakID", -1),
		ParentPeakID:      w.integer("ParentPeakID", -1),
		Mass:              w.number("MZ", 0),
		PeakHeightTop:     w.number("Height", 0),
		PeakAreaAboveZero: w.number("Area", 0),
		PeakCharacter:     core.NewPeakCharacter(),
		MspID:             w.integer("MspID", -1),
		TextDbID:          w.integer("TextDbID", -1),
	}

	rt := core.ChromXs{RT: w.number("RT", 0), Mz: p.Mass}
	left, right := rt, rt
	left.RT, right.RT = w.number("RTLeft", 0), w.number("RTRight", 0)
	if p.ParentPeakID >= 0 {
		rt.MainType, left.MainType, right.MainType = core.ChromXTypeDrift, core.ChromXTypeDrift, core.ChromXTypeDrift
		rt.Drift = w.number("DriftTime", 0)
		left.Drift = w.number("DriftLeft", rt.Drift)
		right.Drift = w.number("DriftRight", rt.Drift)
	}
	p.ChromXsTop, p.ChromXsLeft, p.ChromXsRight = rt, left, right

	pc := &p.PeakCharacter
	pc.AdductName = w.text("Adduct")
	pc.Charge = w.integer("Charge", max(core.AdductChargeNumber(pc.AdductName), 1))
	pc.IsotopeWeightNumber = w.integer("IsotopeWeight", 0)
	pc.IsotopeParentPeakID = w.integer("IsotopeParentPeakID", -1)

	if p.MspID >= 0 {
		p.MspMatch = &core.MatchResult{Name: w.text("MspName"), TotalScore: w.number("MspScore", 0), IsReferenceMatched: true}
	}
	if p.TextDbID >= 0 {
		p.TextDbMatch = &core.MatchResult{Name: w.text("TextDbName"), TotalScore: w.number("TextDbScore", 0), IsAnnotationSuggested: true}
	}
	if w.err != nil {
		return nil, w.err
	}

	if pc.AdductName != "" {
		if _, ok := r.adducts.Get(pc.AdductName); !ok {
			return nil, fmt.Errorf("unknown adduct '%s'", pc.AdductName)
		}
	}

	links, err := parseLinks(w.text("Links"))
	if err != nil {
		return nil, err
	}
	pc.PeakLinks = links

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseLinks parses "Character:PeakID;..." entries.
func parseLinks(s string) ([]core.LinkedPeakFeature, error) {
	if s == "" {
		return nil, nil
	}
	var links []core.LinkedPeakFeature
	for _, entry := range strings.Split(s, ";") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		m := linkPattern.FindStringSubmatch(entry)
		if m == nil {
			return nil, fmt.Errorf("invalid link '%s', expected 'Character:PeakID'", entry)
		}
		character, err := core.ParsePeakLinkFeature(m[1])
		if err != nil {
			return nil, err
		}
		id, _ := strconv.Atoi(m[2])
		links = append(links, core.LinkedPeakFeature{LinkedPeakID: id, Character: character})
	}
	return links, nil
}

// ReadAll reads a whole table and nests drift children under their parent
// peaks. Parent order follows the file.
func ReadAll(r io.Reader, adducts *core.AdductDatabase) ([]*core.ChromatogramPeakFeature, error) {
	reader := NewReader(r, adducts)

	var parents, children []*core.ChromatogramPeakFeature
	byID := make(map[int]*core.ChromatogramPeakFeature)
	for reader.Next() {
		p := reader.Peak()
		if p.ParentPeakID >= 0 {
			children = append(children, p)
			continue
		}
		if _, dup := byID[p.PeakID]; dup {
			return nil, fmt.Errorf("duplicate peak id %d", p.PeakID)
		}
		byID[p.PeakID] = p
		parents = append(parents, p)
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}

	for _, c := range children {
		parent, ok := byID[c.ParentPeakID]
		if !ok {
			return nil, fmt.Errorf("drift peak %d refers to unknown parent %d", c.PeakID, c.ParentPeakID)
		}
		parent.DriftChromFeatures = append(parent.DriftChromFeatures, c)
	}
	return parents, nil
}

// Accessor reads each analysis file's peak table from its PeakListPath.
type Accessor struct {
	Adducts *core.AdductDatabase
}

// NewAccessor creates an accessor validating adducts against db.
func NewAccessor(db *core.AdductDatabase) *Accessor {
	return &Accessor{Adducts: db}
}

func (a *Accessor) GetPeaks(ctx context.Context, file core.AnalysisFile) ([]*core.ChromatogramPeakFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(file.PeakListPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open peak table: %w", err)
	}
	defer f.Close()

	peaks, err := ReadAll(f, a.Adducts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.PeakListPath, err)
	}
	return peaks, nil
}
