package vector

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

var backupMagic = [4]byte{'R', 'M', 'E', 'B'}

// backupHeaderSize is magic (4) + dimension (4).
const backupHeaderSize = 8

// ErrBackupGap is returned when an append would leave a hole in the backup.
var ErrBackupGap = errors.New("embedding backup position gap")

// Backup is the append-only embedding array kept next to the index snapshot.
// Record i holds the vector stored at index position i, so the index can be rebuilt
// from it when the snapshot is lost or diverges from the ledger.
type Backup struct {
	path       string
	dimensions int
	file       *os.File
	count      int
	mu         sync.Mutex
}

// OpenBackup opens or creates the backup file at path. A partial trailing record left by
// an interrupted write is truncated away.
func OpenBackup(path string, dimensions int) (*Backup, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open embedding backup: %w", err)
	}
	b := &Backup{path: path, dimensions: dimensions, file: f}
	if err := b.init(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backup) init() error {
	info, err := b.file.Stat()
	if err != nil {
		return fmt.Errorf("stat embedding backup: %w", err)
	}
	if info.Size() < backupHeaderSize {
		// New file, or a header write that never completed.
		if err := b.file.Truncate(0); err != nil {
			return fmt.Errorf("truncate embedding backup: %w", err)
		}
		header := make([]byte, backupHeaderSize)
		copy(header, backupMagic[:])
		binary.LittleEndian.PutUint32(header[4:], uint32(b.dimensions))
		if _, err := b.file.WriteAt(header, 0); err != nil {
			return fmt.Errorf("write backup header: %w", err)
		}
		return b.file.Sync()
	}

	header := make([]byte, backupHeaderSize)
	if _, err := b.file.ReadAt(header, 0); err != nil {
		return fmt.Errorf("read backup header: %w", err)
	}
	if [4]byte(header[:4]) != backupMagic {
		return fmt.Errorf("%w: bad backup magic in %s", ErrCorruptSnapshot, b.path)
	}
	if d := int(binary.LittleEndian.Uint32(header[4:])); d != b.dimensions {
		return fmt.Errorf("%w: backup has %d, index expects %d", ErrDimensionMismatch, d, b.dimensions)
	}

	recordSize := int64(b.dimensions * 4)
	body := info.Size() - backupHeaderSize
	b.count = int(body / recordSize)
	if body%recordSize != 0 {
		if err := b.file.Truncate(backupHeaderSize + int64(b.count)*recordSize); err != nil {
			return fmt.Errorf("truncate partial backup record: %w", err)
		}
	}
	return nil
}

// Append writes vec as the record for position. Appending a position already present is a
// no-op, so a retried persist does not duplicate records.
func (b *Backup) Append(position int, vec []float32) error {
	if len(vec) != b.dimensions {
		return dimensionError(len(vec), b.dimensions)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if position < b.count {
		return nil
	}
	if position > b.count {
		return fmt.Errorf("%w: position %d, backup holds %d", ErrBackupGap, position, b.count)
	}
	if _, err := b.file.WriteAt(float32SliceToBytes(vec), b.offset(position)); err != nil {
		return fmt.Errorf("write backup record: %w", err)
	}
	if err := b.file.Sync(); err != nil {
		return fmt.Errorf("sync embedding backup: %w", err)
	}
	b.count++
	return nil
}

// Vectors returns the first n records in position order.
func (b *Backup) Vectors(n int) ([][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.count {
		return nil, fmt.Errorf("backup holds %d vectors, %d requested", b.count, n)
	}
	out := make([][]float32, 0, n)
	buf := make([]byte, b.dimensions*4)
	for i := 0; i < n; i++ {
		if _, err := b.file.ReadAt(buf, b.offset(i)); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read backup record %d: %w", i, err)
		}
		out = append(out, bytesToFloat32Slice(buf))
	}
	return out, nil
}

// Truncate drops every record at position n and beyond.
func (b *Backup) Truncate(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n >= b.count {
		return nil
	}
	if n < 0 {
		n = 0
	}
	if err := b.file.Truncate(b.offset(n)); err != nil {
		return fmt.Errorf("truncate embedding backup: %w", err)
	}
	b.count = n
	return b.file.Sync()
}

// Len returns the number of complete records.
func (b *Backup) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Path returns the backup file path.
func (b *Backup) Path() string { return b.path }

// Close closes the backup file.
func (b *Backup) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}

func (b *Backup) offset(position int) int64 {
	return backupHeaderSize + int64(position)*int64(b.dimensions*4)
}
