// Package romloader handles loading terminal firmware images from
// various sources, including compressed archives (ZIP, 7z, gzip, RAR).
package romloader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
)

// Maximum image size (8MB safety limit; real firmware is 128KB)
const maxROMSize = 8 * 1024 * 1024

// ErrNoROMFile is returned when no firmware image is found in an
// archive.
var ErrNoROMFile = errors.New("no firmware image found in archive")

// ErrUnsupportedFormat is returned for unrecognized file formats
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when extracted content exceeds the size
// limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// formatType represents the detected file format
type formatType int

const (
	formatUnknown formatType = iota
	formatRawROM
	formatZIP
	format7z
	formatGzip
	formatRAR
)

// LoadROM loads a firmware image from a file path. It automatically
// detects and extracts from archives. Returns the image data, the
// filename of the image (useful for display), and any error
// encountered.
func LoadROM(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// Read header for magic byte detection
	header := make([]byte, 16)
	n, err := f.Read(header)
	if err != nil && err != io.EOF {
		return nil, "", fmt.Errorf("failed to read file header: %w", err)
	}
	header = header[:n]

	format := detectFormat(header, path)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("failed to seek file: %w", err)
	}

	switch format {
	case formatRawROM:
		data, err := limitedRead(f)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read image: %w", err)
		}
		return data, filepath.Base(path), nil

	case formatZIP:
		return extractFromZIP(path)

	case format7z:
		return extractFrom7z(path)

	case formatGzip:
		return extractFromGzip(path)

	case formatRAR:
		return extractFromRAR(path)

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// detectFormat determines the file format based on magic bytes and
// extension.
func detectFormat(header []byte, path string) formatType {
	ext := strings.ToLower(filepath.Ext(path))

	// Check magic bytes first (more reliable)
	if len(header) >= 4 {
		if bytes.HasPrefix(header, magicZIP) || bytes.HasPrefix(header, magicZIPEnd) {
			return formatZIP
		}
		if bytes.HasPrefix(header, magicRAR) {
			return formatRAR
		}
	}
	if len(header) >= 6 && bytes.HasPrefix(header, magic7z) {
		return format7z
	}
	if len(header) >= 2 && bytes.HasPrefix(header, magicGzip) {
		return formatGzip
	}

	// Fall back to extension
	switch ext {
	case ".bin", ".rom":
		return formatRawROM
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	}

	if strings.HasSuffix(strings.ToLower(path), ".tar.gz") {
		return formatGzip
	}

	return formatUnknown
}

// isROMFile checks whether a filename looks like a firmware image
// (case-insensitive).
func isROMFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".bin") || strings.HasSuffix(lower, ".rom")
}

// limitedRead reads from r up to maxROMSize bytes, returning an error
// if exceeded.
func limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, maxROMSize+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxROMSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

// extractEntry pulls one archive member through the size cap and
// reports it under its base name.
func extractEntry(name string, r io.Reader) ([]byte, string, error) {
	data, err := limitedRead(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, filepath.Base(name), nil
}

// extractFromZIP extracts the first firmware image from a ZIP archive.
func extractFromZIP(path string) ([]byte, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	for _, file := range r.File {
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

// extractFromGzip decompresses a gzip stream. The member name, when
// present, supplies the display name.
func extractFromGzip(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open gzip: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read gzip header: %w", err)
	}
	defer gz.Close()

	data, err := limitedRead(gz)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress: %w", err)
	}

	name := gz.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".gz")
	}
	return data, name, nil
}
