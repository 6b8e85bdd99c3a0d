// Package snippet serializes extracted ion chromatograms of alignment spots
// to a compact binary file.
//
// A file starts with the ASCII header "MSALIGN_EIC" and a version byte,
// followed by little-endian records until EOF. Staging files produced during
// alignment hold peak records; result files hold spot records, each followed
// by its peak records.
package snippet

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ChrisMcGann/msalign/pkg/core"
)

const (
	Header  = "MSALIGN_EIC"
	Version = 1

	// Record counts come from the file, so slices grow at most this much
	// ahead of the data actually read.
	readChunk = 4096
)

// ErrBadHeader is returned when a file does not start with the snippet header.
var ErrBadHeader = errors.New("not a chromatogram snippet file")

// Point is one chromatogram sample.
type Point struct {
	Time      float64
	Mz        float64
	Intensity float64
}

// ChromatogramPeakInfo is the chromatogram of one spot in one file together
// with the peak position of the spot's slot.
type ChromatogramPeakInfo struct {
	FileID int
	Axis   core.ChromXType
	Top    float64
	Left   float64
	Right  float64
	Points []Point
}

// ChromatogramSpotInfo holds the chromatograms of a spot in every file.
// Drift-time spots carry the AlignmentID of their parent.
type ChromatogramSpotInfo struct {
	AlignmentID       int
	ParentAlignmentID int
	Axis              core.ChromXType
	Peaks             []ChromatogramPeakInfo
}

// NewPeakInfo converts an extracted chromatogram and a slot to a peak record.
func NewPeakInfo(fileID int, axis core.ChromXType, slot *core.AlignmentChromPeakFeature, peaks []core.ChromatogramPeak) ChromatogramPeakInfo {
	info := ChromatogramPeakInfo{
		FileID: fileID,
		Axis:   axis,
		Top:    slot.ChromXsTop.Value(),
		Left:   slot.ChromXsLeft.Value(),
		Right:  slot.ChromXsRight.Value(),
		Points: make([]Point, len(peaks)),
	}
	for i, p := range peaks {
		info.Points[i] = Point{Time: p.Times.Value(), Mz: p.Mass, Intensity: p.Intensity}
	}
	return info
}

type peakHeader struct {
	FileID    int32
	Axis      uint8
	Top       float64
	Left      float64
	Right     float64
	NumPoints uint32
}

type spotHeader struct {
	AlignmentID       int32
	ParentAlignmentID int32
	Axis              uint8
	NumPeaks          uint32
}

// Writer appends records to a snippet file.
type Writer struct {
	file *os.File
	w    *bufio.Writer
}

// Create creates path and writes the file header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snippet file: %w", err)
	}
	w := &Writer{file: f, w: bufio.NewWriter(f)}

	if _, err := w.w.WriteString(Header); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.w.WriteByte(Version); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// WritePeak appends a peak record.
func (w *Writer) WritePeak(p ChromatogramPeakInfo) error {
	h := peakHeader{
		FileID:    int32(p.FileID),
		Axis:      uint8(p.Axis),
		Top:       p.Top,
		Left:      p.Left,
		Right:     p.Right,
		NumPoints: uint32(len(p.Points)),
	}
	if err := binary.Write(w.w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if len(p.Points) == 0 {
		return nil
	}
	return binary.Write(w.w, binary.LittleEndian, p.Points)
}

// WriteSpot appends a spot record followed by its peak records.
func (w *Writer) WriteSpot(s ChromatogramSpotInfo) error {
	h := spotHeader{
		AlignmentID:       int32(s.AlignmentID),
		ParentAlignmentID: int32(s.ParentAlignmentID),
		Axis:              uint8(s.Axis),
		NumPeaks:          uint32(len(s.Peaks)),
	}
	if err := binary.Write(w.w, binary.LittleEndian, &h); err != nil {
		return err
	}
	for _, p := range s.Peaks {
		if err := w.WritePeak(p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush snippet file: %w", err)
	}
	return w.file.Close()
}

// Reader reads records written by Writer.
type Reader struct {
	file *os.File
	r    *bufio.Reader
}

// Open opens path and verifies the header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snippet file: %w", err)
	}
	r := &Reader{file: f, r: bufio.NewReader(f)}

	header := make([]byte, len(Header))
	if _, err := io.ReadFull(r.r, header); err != nil || string(header) != Header {
		f.Close()
		return nil, ErrBadHeader
	}
	version, err := r.r.ReadByte()
	if err != nil {
		f.Close()
		return nil, ErrBadHeader
	}
	if version != Version {
		f.Close()
		return nil, fmt.Errorf("unsupported snippet version: %d", version)
	}
	return r, nil
}

// ReadPeak reads the next peak record. It returns io.EOF at the end of the file.
func (r *Reader) ReadPeak() (ChromatogramPeakInfo, error) {
	var h peakHeader
	if err := binary.Read(r.r, binary.LittleEndian, &h); err != nil {
		return ChromatogramPeakInfo{}, err
	}
	p := ChromatogramPeakInfo{
		FileID: int(h.FileID),
		Axis:   core.ChromXType(h.Axis),
		Top:    h.Top,
		Left:   h.Left,
		Right:  h.Right,
		Points: make([]Point, 0, min(int(h.NumPoints), readChunk)),
	}
	for remaining := int(h.NumPoints); remaining > 0; {
		chunk := make([]Point, min(remaining, readChunk))
		if err := binary.Read(r.r, binary.LittleEndian, chunk); err != nil {
			return ChromatogramPeakInfo{}, unexpected(err)
		}
		p.Points = append(p.Points, chunk...)
		remaining -= len(chunk)
	}
	return p, nil
}

// ReadSpot reads the next spot record with its peaks. It returns io.EOF at
// the end of the file.
func (r *Reader) ReadSpot() (ChromatogramSpotInfo, error) {
	var h spotHeader
	if err := binary.Read(r.r, binary.LittleEndian, &h); err != nil {
		return ChromatogramSpotInfo{}, err
	}
	s := ChromatogramSpotInfo{
		AlignmentID:       int(h.AlignmentID),
		ParentAlignmentID: int(h.ParentAlignmentID),
		Axis:              core.ChromXType(h.Axis),
		Peaks:             make([]ChromatogramPeakInfo, 0, min(int(h.NumPeaks), readChunk)),
	}
	for range h.NumPeaks {
		p, err := r.ReadPeak()
		if err != nil {
			return ChromatogramSpotInfo{}, unexpected(err)
		}
		s.Peaks = append(s.Peaks, p)
	}
	return s, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// unexpected turns an EOF inside a record into io.ErrUnexpectedEOF.
func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
