package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "resumatch.db")
	indexDir := filepath.Join(dir, "index")
	if err := os.Mkdir(indexDir, 0755); err != nil {
		t.Fatal(err)
	}
	write := func(path string, n int) {
		t.Helper()
		if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(db, 10)
	write(db+"-wal", 4)
	write(filepath.Join(indexDir, "resumes.index"), 20)
	write(filepath.Join(indexDir, "resumes.embeddings"), 7)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database with sidecars", DatabaseFiles(db), 14},
		{"index directory", []string{indexDir}, 27},
		{"everything", append(DatabaseFiles(db), indexDir), 41},
		{"missing and empty paths skipped", []string{"", filepath.Join(dir, "absent"), db}, 10},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestDatabaseFiles(t *testing.T) {
	if DatabaseFiles("") != nil {
		t.Error("empty path should yield nil")
	}
	files := DatabaseFiles("/data/r.db")
	if len(files) != 3 || files[1] != "/data/r.db-wal" || files[2] != "/data/r.db-shm" {
		t.Errorf("DatabaseFiles=%v", files)
	}
}
