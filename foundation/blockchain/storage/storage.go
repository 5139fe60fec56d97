// Package storage handles reading the mempool from disk and writing the
// result of a mining operation.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// Storage represents the behavior required to feed the miner with records
// and persist what it mined.
type Storage interface {
	ReadMempool() ([]database.Record, error)
	WriteResult(result database.BlockData) error
}

// =============================================================================

// Disk reads mempool records from a directory of JSON files and writes the
// result to a single file. This implements the Storage interface.
type Disk struct {
	mempoolDir string
	outputPath string
	mu         sync.Mutex
}

// NewDisk provides access to the mempool directory and output file.
func NewDisk(mempoolDir string, outputPath string) (*Disk, error) {
	info, err := os.Stat(mempoolDir)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("mempool %s is not a directory", mempoolDir)
	}

	d := Disk{
		mempoolDir: mempoolDir,
		outputPath: outputPath,
	}

	return &d, nil
}

// ReadMempool parses every .json file in the mempool directory in file name
// order. A file that does not hold a valid transaction becomes a malformed
// record, only I/O failures are returned as errors.
func (d *Disk) ReadMempool() ([]database.Record, error) {
	entries, err := os.ReadDir(d.mempoolDir)
	if err != nil {
		return nil, err
	}

	var records []database.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(d.mempoolDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		records = append(records, database.ParseRecord(entry.Name(), data))
	}

	return records, nil
}

// WriteResult writes the result to the configured output file.
func (d *Disk) WriteResult(result database.BlockData) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return WriteResult(d.outputPath, result)
}

// =============================================================================

// WriteResult writes the result to the specified path. The content is
// written to a temporary file in the same directory and renamed into place
// so a reader never sees a partial result.
func WriteResult(path string, result database.BlockData) error {
	data, err := FormatResult(result)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	// Remove is a no-op error once the rename has happened.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// FormatResult lays out a result one field per line. The first line is the
// encoded block header in hex, the second is the coinbase transaction as
// JSON and every line after that is a transaction id in block order,
// starting with the coinbase.
func FormatResult(result database.BlockData) ([]byte, error) {
	coinbase, err := json.Marshal(result.Coinbase)
	if err != nil {
		return nil, fmt.Errorf("encoding coinbase: %w", err)
	}

	var b bytes.Buffer
	b.WriteString(result.HeaderHex)
	b.WriteByte('\n')
	b.Write(coinbase)
	b.WriteByte('\n')

	for _, id := range result.TxIDs {
		b.WriteString(id.String())
		b.WriteByte('\n')
	}

	return b.Bytes(), nil
}
