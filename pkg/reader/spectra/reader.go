// Package spectra provides streaming readers for raw MS scans in a plain text scan format
package spectra

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

// Reader provides streaming access to scan files. Each scan is a block of
// "Key: value" header lines ending with "Num peaks: n", followed by n lines of
// "mz<TAB>intensity". Blocks are separated by blank lines; '#' starts a comment.
type Reader struct {
	scanner     *bufio.Scanner
	lineNum     int
	index       int
	currentSpec *core.RawSpectrum
	err         error
}

// NewReader creates a new scan reader
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next advances to the next scan. Returns false when no more scans or error.
func (r *Reader) Next() bool {
	r.currentSpec = nil

	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.currentSpec = spec
	return true
}

// Spectrum returns the current scan
func (r *Reader) Spectrum() *core.RawSpectrum {
	return r.currentSpec
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readSpectrum() (*core.RawSpectrum, error) {
	var spec *core.RawSpectrum
	numPeaks, peaksRead := 0, 0
	inPeaks := false

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if spec == nil {
			spec = &core.RawSpectrum{Index: r.index, MsLevel: 1}
		}

		if inPeaks {
			peak, err := parsePeak(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			spec.Peaks = append(spec.Peaks, peak)
			peaksRead++
			if peaksRead >= numPeaks {
				r.index++
				return spec, nil
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected 'Key: value', got '%s'", r.lineNum, line)
		}
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "Scan":
			spec.ScanNumber, err = strconv.Atoi(value)
		case "RetentionTime":
			spec.RetentionTime, err = strconv.ParseFloat(value, 64)
		case "DriftTime":
			spec.DriftTime, err = strconv.ParseFloat(value, 64)
		case "MsLevel":
			spec.MsLevel, err = strconv.Atoi(value)
		case "Num peaks":
			numPeaks, err = strconv.Atoi(value)
			if err == nil && numPeaks < 0 {
				err = fmt.Errorf("negative count")
			}
			if err == nil && numPeaks == 0 {
				r.index++
				return spec, nil
			}
			inPeaks = true
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s: %w", r.lineNum, key, err)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if spec != nil {
		if inPeaks {
			return nil, fmt.Errorf("scan %d: expected %d peaks, found %d", spec.ScanNumber, numPeaks, peaksRead)
		}
		return nil, fmt.Errorf("scan %d: missing 'Num peaks' line", spec.ScanNumber)
	}
	return nil, io.EOF
}

// parsePeak parses a single peak line (format: "mz\tintensity")
func parsePeak(line string) (core.SpectrumPeak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.SpectrumPeak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.SpectrumPeak{}, fmt.Errorf("invalid m/z value: %w", err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.SpectrumPeak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	return core.SpectrumPeak{Mz: mz, Intensity: intensity}, nil
}

// FileProvider loads the MS1 scans of one scan file.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider reading path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// LoadMs1Spectrums returns the valid MS1 scans ordered by retention time,
// with peaks sorted by m/z and Index renumbered to the returned position.
func (p *FileProvider) LoadMs1Spectrums(ctx context.Context) ([]core.RawSpectrum, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan file: %w", err)
	}
	defer f.Close()

	reader := NewReader(f)
	var out []core.RawSpectrum
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s := reader.Spectrum()
		if s.MsLevel != 1 {
			continue
		}
		if !s.ArePeaksSorted() {
			s.SortPeaks()
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", p.Path, err)
		}
		out = append(out, *s)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.Path, err)
	}

	slices.SortStableFunc(out, func(a, b core.RawSpectrum) int {
		return cmp.Compare(a.RetentionTime, b.RetentionTime)
	})
	for i := range out {
		out[i].Index = i
	}
	return out, nil
}
