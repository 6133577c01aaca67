package vector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBackup_AppendReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.embeddings")
	b, err := OpenBackup(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Append(0, []float32{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := b.Append(1, []float32{3, 4}); err != nil {
		t.Fatal(err)
	}
	// retry of an already written position
	if err := b.Append(1, []float32{3, 4}); err != nil {
		t.Fatalf("idempotent Append: %v", err)
	}
	if b.Len() != 2 {
		t.Fatalf("Len=%d, want 2", b.Len())
	}
	if err := b.Append(5, []float32{0, 0}); !errors.Is(err, ErrBackupGap) {
		t.Errorf("gap Append: err=%v", err)
	}
	_ = b.Close()

	b2, err := OpenBackup(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	vecs, err := b2.Vectors(2)
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 4 {
		t.Errorf("vectors after reopen=%v", vecs)
	}
	if _, err := b2.Vectors(3); err == nil {
		t.Error("Vectors beyond Len should fail")
	}
}

func TestBackup_PartialRecordTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.embeddings")
	b, _ := OpenBackup(path, 2)
	_ = b.Append(0, []float32{1, 1})
	_ = b.Close()

	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	_, _ = f.Write([]byte{1, 2, 3})
	_ = f.Close()

	b2, err := OpenBackup(path, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	if b2.Len() != 1 {
		t.Errorf("Len=%d, want 1", b2.Len())
	}
	if err := b2.Append(1, []float32{2, 2}); err != nil {
		t.Fatal(err)
	}
	vecs, _ := b2.Vectors(2)
	if vecs[1][0] != 2 {
		t.Errorf("record 1=%v", vecs[1])
	}
}

func TestBackup_Truncate(t *testing.T) {
	b, _ := OpenBackup(filepath.Join(t.TempDir(), "e"), 1)
	defer b.Close()
	for i := 0; i < 3; i++ {
		_ = b.Append(i, []float32{float32(i)})
	}
	if err := b.Truncate(1); err != nil {
		t.Fatal(err)
	}
	if b.Len() != 1 {
		t.Errorf("Len=%d, want 1", b.Len())
	}
}

func TestBackup_DimensionChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e")
	b, _ := OpenBackup(path, 3)
	if err := b.Append(0, []float32{1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("err=%v", err)
	}
	_ = b.Close()
	if _, err := OpenBackup(path, 4); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("reopen with other dimension: err=%v", err)
	}
}
