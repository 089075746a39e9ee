package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-trafficgraph/pkg/traffic"
)

// ErrBadSnapshot is returned for data that is not a record snapshot.
var ErrBadSnapshot = errors.New("invalid record snapshot")

var snapshotMagic = []byte("TGS1")

// SnapshotExt is appended to a capture path for its cached records.
const SnapshotExt = ".records.sz"

// WriteSnapshot stores records as snappy-compressed JSON.
func WriteSnapshot(w io.Writer, records []traffic.Record) error {
	if records == nil {
		records = []traffic.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := w.Write(snapshotMagic); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if _, err := w.Write(snappy.Encode(nil, data)); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads records written by WriteSnapshot.
func ReadSnapshot(r io.Reader) ([]traffic.Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !bytes.HasPrefix(raw, snapshotMagic) {
		return nil, ErrBadSnapshot
	}

	data, err := snappy.Decode(nil, raw[len(snapshotMagic):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	var records []traffic.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return records, nil
}
