package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes a candidate input file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// FindInputFiles lists the CSV and Excel files directly inside dir. Hidden
// files and Excel lock files (~$name.xlsx) are skipped.
func FindInputFiles(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".csv", ".xlsx":
		default:
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// LatestFile returns the most recently modified file. Equal times go to the
// lexically greater name so dated exports pick the newest snapshot.
func LatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}
	latest := files[0]
	for _, f := range files[1:] {
		if f.ModTime.After(latest.ModTime) || (f.ModTime.Equal(latest.ModTime) && f.Name > latest.Name) {
			latest = f
		}
	}
	return latest, true
}

// ResolveInput returns path unchanged when it is a file. A directory resolves
// to its newest CSV or Excel file.
func ResolveInput(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}

	files, err := FindInputFiles(path)
	if err != nil {
		return "", err
	}
	latest, ok := LatestFile(files)
	if !ok {
		return "", fmt.Errorf("no .csv or .xlsx files in %s", path)
	}
	return latest.Path, nil
}
