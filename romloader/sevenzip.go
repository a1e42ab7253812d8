package romloader

import (
	"fmt"

	"github.com/bodgit/sevenzip"
)

// extractFrom7z extracts the first firmware image from a 7z archive.
func extractFrom7z(path string) ([]byte, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	for _, file := range r.File {
		if file.FileInfo().IsDir() {
			continue
		}
		if !isROMFile(file.Name) {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", file.Name, err)
		}
		data, name, err := extractEntry(file.Name, rc)
		rc.Close()
		return data, name, err
	}

	return nil, "", ErrNoROMFile
}
