package romloader

import (
	"fmt"
	"io"

	"github.com/nwaples/rardecode/v2"
)

// extractFromRAR walks a RAR archive and pulls out the first entry
// that looks like a firmware image. The archive is a stream, so
// candidates are read in place as they go past.
func extractFromRAR(path string) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		header, err := r.Next()
		switch {
		case err == io.EOF:
			return nil, "", ErrNoROMFile
		case err != nil:
			return nil, "", fmt.Errorf("failed to read rar entry: %w", err)
		case header.IsDir || !isROMFile(header.Name):
			continue
		}
		return extractEntry(header.Name, r)
	}
}
