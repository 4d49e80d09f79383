// Package format defines the enumerations shared by the compress and
// snapshot packages.
package format

import (
	"path/filepath"
	"strings"
)

type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents gzip (RFC 1952) compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// Extension returns the canonical file suffix of the compression, or "" for
// CompressionNone.
func (c CompressionType) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionS2:
		return ".s2"
	case CompressionLZ4:
		return ".lz4"
	case CompressionGzip:
		return ".gz"
	default:
		return ""
	}
}

var extensions = map[string]CompressionType{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".s2":   CompressionS2,
	".lz4":  CompressionLZ4,
}

// CompressionFromPath infers the compression of a file from its extension.
// It returns CompressionNone and the unchanged path when the extension is not
// a known compression suffix; otherwise it also returns the path with the
// suffix stripped, e.g. "otu.shared.gz" → (Gzip, "otu.shared").
func CompressionFromPath(path string) (CompressionType, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := extensions[ext]; ok {
		return c, strings.TrimSuffix(path, filepath.Ext(path))
	}

	return CompressionNone, path
}

// ParseCompression maps a user-facing name ("zstd", "lz4", "none", ...) to a
// CompressionType. The second result is false for unknown names.
func ParseCompression(name string) (CompressionType, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, true
	case "zstd", "zst":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	case "gzip", "gz":
		return CompressionGzip, true
	default:
		return 0, false
	}
}
