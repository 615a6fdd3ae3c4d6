// Package historical reads observation snapshots from a flat binary file of
// fixed-size records, memory-mapped for cheap random access. The layout is
// one little-endian record per observation: unix-nano timestamp followed by
// the value bits.
package historical

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/peter-kozarec/kestrel/pkg/dataset"
)

var ErrEof = errors.New("EOF")

const recordSize = 16 // int64 timestamp + float64 value

// Record is one stored scalar observation. A NaN value encodes a missing
// period kept to preserve the time grid.
type Record struct {
	TimeStamp int64
	Value     float64
}

type Source struct {
	dataSourceName string
	reader         *mmap.ReaderAt
}

func NewSource(dataSourceName string) *Source {
	return &Source{
		dataSourceName: dataSourceName,
	}
}

func (s *Source) Open() error {
	var err error
	s.reader, err = mmap.Open(s.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", s.dataSourceName, err)
	}
	return nil
}

func (s *Source) Close() {
	_ = s.reader.Close()
}

// Len returns the number of stored records.
func (s *Source) Len() int64 {
	return int64(s.reader.Len()) / recordSize
}

func (s *Source) Read(index int64, rec *Record) error {
	var buf [recordSize]byte
	n, err := s.reader.ReadAt(buf[:], index*recordSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read: %w", err)
	}
	if n < recordSize {
		return ErrEof
	}
	rec.TimeStamp = int64(binary.LittleEndian.Uint64(buf[:8]))
	rec.Value = math.Float64frombits(binary.LittleEndian.Uint64(buf[8:]))
	return nil
}

// LoadVintage reads records [from, to) into a single-variable dataset.
func (s *Source) LoadVintage(name string, from, to int64) (*dataset.Dataset, error) {
	if to > s.Len() {
		to = s.Len()
	}
	out := dataset.New(name)
	var rec Record
	for i := from; i < to; i++ {
		if err := s.Read(i, &rec); err != nil {
			return nil, err
		}
		if err := out.AppendFloats(time.Unix(0, rec.TimeStamp).UTC(), rec.Value); err != nil {
			return nil, err
		}
	}
	return out, nil
}
