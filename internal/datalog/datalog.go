// Package datalog writes per-trial rows to CSV. Evaluators hand over plain
// row structs and never touch the underlying file.
package datalog

import (
	"fmt"
	"io"
	"sync"

	"github.com/gocarina/gocsv"
)

// TrialRow is one evaluation trial: one candidate genome against one
// opponent phenotype. Viable carries the candidate's end-of-evaluation
// verdict, repeated on every row of that evaluation.
type TrialRow struct {
	RunPhase   string  `csv:"run_phase"`
	Population string  `csv:"population"`
	Generation int     `csv:"generation"`
	Evaluation int64   `csv:"evaluation"`
	GenomeID   uint64  `csv:"genome_id"`
	OpponentID uint64  `csv:"opponent_id"`
	Solved     bool    `csv:"solved"`
	Counted    bool    `csv:"counted"`
	Viable     bool    `csv:"viable"`
	Distance   float64 `csv:"distance_to_target"`
	Timesteps  int     `csv:"timesteps"`
}

// TrialLogger is the row sink evaluators write to.
type TrialLogger interface {
	Log(row TrialRow) error
	Close() error
}

// CSVTrialLogger streams rows to a writer, emitting the header exactly once
// on the first row. Safe for concurrent use by evaluation workers.
type CSVTrialLogger struct {
	mu          sync.Mutex
	out         io.Writer
	closer      io.Closer
	wroteHeader bool
	closed      bool
}

func NewCSVTrialLogger(out io.Writer) *CSVTrialLogger {
	logger := &CSVTrialLogger{out: out}
	if closer, ok := out.(io.Closer); ok {
		logger.closer = closer
	}
	return logger
}

func (l *CSVTrialLogger) Log(row TrialRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("trial logger is closed")
	}

	rows := []*TrialRow{&row}
	if !l.wroteHeader {
		if err := gocsv.Marshal(rows, l.out); err != nil {
			return fmt.Errorf("write trial row: %w", err)
		}
		l.wroteHeader = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, l.out); err != nil {
		return fmt.Errorf("write trial row: %w", err)
	}
	return nil
}

func (l *CSVTrialLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// NopTrialLogger discards every row.
type NopTrialLogger struct{}

func (NopTrialLogger) Log(TrialRow) error { return nil }
func (NopTrialLogger) Close() error       { return nil }
