package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-trafficgraph/pkg/capture"
	"github.com/dd0wney/cluso-trafficgraph/pkg/logging"
	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
	"github.com/dd0wney/cluso-trafficgraph/pkg/validation"
)

// loader reads the records of one input file.
type loader struct {
	ingester *capture.Ingester
	cache    bool
	logger   logging.Logger
}

// load dispatches on the file name: raw captures are ingested, anything
// else is JSON holding either a record array or a capture summary.
func (l *loader) load(ctx context.Context, path string) ([]traffic.Record, error) {
	if capture.IsPcapKey(path) {
		return l.loadCapture(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// decodeRecords accepts a JSON record array or a capture summary object.
func decodeRecords(data []byte) ([]traffic.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty input")
	}

	var records []traffic.Record
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	case '{':
		p, err := capture.DecodePcap(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		if records, err = p.IPConversations(); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("input is neither a record array nor a capture summary")
	}

	if err := validation.ValidateRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// loadCapture ingests a raw capture. With caching on, the records are kept
// in a snapshot beside the capture and reused while it is newer.
func (l *loader) loadCapture(ctx context.Context, path string) ([]traffic.Record, error) {
	snap := path + capture.SnapshotExt
	if l.cache {
		if records, ok := l.readSnapshot(path, snap); ok {
			return records, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, stats, err := l.ingester.Ingest(ctx, bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	l.logger.Info("capture ingested",
		logging.Path(path),
		logging.Int("packets", stats.Packets),
		logging.Int("skipped", stats.Skipped),
		logging.Records(len(records)))

	if l.cache {
		if err := writeSnapshot(snap, records); err != nil {
			l.logger.Warn("snapshot not written", logging.Path(snap), logging.Error(err))
		}
	}
	return records, nil
}

func (l *loader) readSnapshot(path, snap string) ([]traffic.Record, bool) {
	src, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	info, err := os.Stat(snap)
	if err != nil || info.ModTime().Before(src.ModTime()) {
		return nil, false
	}

	f, err := os.Open(snap)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	records, err := capture.ReadSnapshot(f)
	if err != nil {
		l.logger.Warn("ignoring unreadable snapshot", logging.Path(snap), logging.Error(err))
		return nil, false
	}
	l.logger.Debug("snapshot reused", logging.Path(snap), logging.Records(len(records)))
	return records, true
}

func writeSnapshot(path string, records []traffic.Record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := capture.WriteSnapshot(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// openOutput returns stdout for "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
