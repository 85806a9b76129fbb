package checksum

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// FileFormat represents the format of a checksum file.
type FileFormat string

const (
	// FileFormatGNU is the GNU coreutils format: "<hash>  <filename>" or "<hash> *<filename>"
	// This is the default output format of sha256sum, sha512sum, etc.
	FileFormatGNU FileFormat = "gnu"

	// FileFormatBSD is the BSD format: "SHA256 (<filename>) = <hash>"
	// This is the output format of sha256sum --tag, or macOS shasum.
	FileFormatBSD FileFormat = "bsd"

	// FileFormatDotnetReleasesJSON is the per-channel releases.json
	// manifest the dotnet release-metadata feed publishes: each sdk/
	// runtime entry carries a "files" array of per-RID download URLs
	// with a "hash" (sha512) field, which this parser matches by
	// filename.
	FileFormatDotnetReleasesJSON FileFormat = "dotnet_releases_json"

	// FileFormatBareHash is a single bare hash value with no filename.
	// This is used by tools like starship that publish per-file checksum files
	// (e.g., "tool.tar.gz.sha256") containing only the hash value.
	FileFormatBareHash FileFormat = "bare_hash"

	// FileFormatUnknown is returned when the format cannot be determined.
	FileFormatUnknown FileFormat = "unknown"
)

// bsdPattern matches BSD-style checksum lines: "SHA256 (filename) = hash"
var bsdPattern = regexp.MustCompile(`^(SHA256|SHA512)\s+\((.+)\)\s+=\s+([a-fA-F0-9]+)$`)

// DetectFileFormat detects the format of a checksum file from its content.
func DetectFileFormat(content []byte) FileFormat {
	// Try the dotnet releases.json manifest shape first.
	var doc dotnetReleasesDoc
	if json.Unmarshal(content, &doc) == nil && len(doc.Releases) > 0 {
		if hasAnyFiles(doc.Releases) {
			return FileFormatDotnetReleasesJSON
		}
	}

	// Check first non-empty line for format detection
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Check BSD format: "SHA256 (filename) = hash"
		if bsdPattern.MatchString(line) {
			return FileFormatBSD
		}

		// Check GNU format: "hash  filename" or "hash *filename"
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			hash := parts[0]
			// GNU format has hash as first field (64 chars for SHA256, 128 for SHA512)
			if len(hash) == 64 || len(hash) == 128 {
				if isHexString(hash) {
					return FileFormatGNU
				}
			}
		}

		// Check bare hash format: single hex string with no filename (per-file checksum)
		if len(parts) == 1 {
			hash := parts[0]
			if (len(hash) == 64 || len(hash) == 128) && isHexString(hash) {
				if !hasMoreNonEmptyLines(scanner) {
					return FileFormatBareHash
				}
			}
		}

		// Could not determine format from first line
		return FileFormatUnknown
	}

	return FileFormatUnknown
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(s string) bool {
	for _, c := range s {
		isDigit := c >= '0' && c <= '9'
		isLowerHex := c >= 'a' && c <= 'f'
		isUpperHex := c >= 'A' && c <= 'F'
		if !isDigit && !isLowerHex && !isUpperHex {
			return false
		}
	}
	return len(s) > 0
}

// hasMoreNonEmptyLines checks if the scanner has more non-empty lines remaining.
func hasMoreNonEmptyLines(scanner *bufio.Scanner) bool {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			return true
		}
	}
	return false
}

// ParseFile parses a checksum file and extracts the hash for the given filename.
// Automatically detects the file format.
func ParseFile(content []byte, filename string) (Algorithm, Digest, error) {
	format := DetectFileFormat(content)
	switch format {
	case FileFormatDotnetReleasesJSON:
		return parseDotnetReleasesJSON(content, filename)
	case FileFormatBSD:
		return parseBSD(content, filename)
	case FileFormatGNU:
		return parseGNU(content, filename)
	case FileFormatBareHash:
		return parseBareHash(content, filename)
	default:
		return "", "", fmt.Errorf("unknown or unsupported checksum file format")
	}
}

// dotnetReleasesDoc mirrors the subset of the dotnet release-metadata
// per-channel releases.json that carries per-file hashes: each sdk/
// runtime/aspnetcore-runtime entry publishes a "files" array with one
// entry per RID, each naming its own sha512 hash rather than relying
// on a separate detached checksum file.
type dotnetReleasesDoc struct {
	Releases []dotnetReleaseEntry `json:"releases"`
}

// dotnetReleaseEntry is one release within a channel's releases.json.
type dotnetReleaseEntry struct {
	Sdk               dotnetComponent `json:"sdk"`
	Runtime           dotnetComponent `json:"runtime"`
	AspnetcoreRuntime dotnetComponent `json:"aspnetcore-runtime"`
}

// dotnetComponent is one sdk/runtime/aspnetcore-runtime entry's file list.
type dotnetComponent struct {
	Version string              `json:"version"`
	Files   []dotnetReleaseFile `json:"files"`
}

// dotnetReleaseFile is a single per-RID download in a dotnet releases.json entry.
type dotnetReleaseFile struct {
	Name string `json:"name"`
	Rid  string `json:"rid"`
	URL  string `json:"url"`
	Hash string `json:"hash"`
}

func hasAnyFiles(releases []dotnetReleaseEntry) bool {
	for _, r := range releases {
		if len(r.Sdk.Files) > 0 || len(r.Runtime.Files) > 0 || len(r.AspnetcoreRuntime.Files) > 0 {
			return true
		}
	}
	return false
}

// parseDotnetReleasesJSON extracts the sha512 hash for filename out of
// a dotnet per-channel releases.json manifest, matching by the file's
// base name (the manifest's "name" field is already a base name, but
// this also tolerates a full URL being passed as filename).
func parseDotnetReleasesJSON(content []byte, filename string) (Algorithm, Digest, error) {
	var doc dotnetReleasesDoc
	if err := json.Unmarshal(content, &doc); err != nil {
		return "", "", fmt.Errorf("failed to parse dotnet releases.json checksums: %w", err)
	}

	want := filepath.Base(filename)
	for _, release := range doc.Releases {
		for _, component := range []dotnetComponent{release.Sdk, release.Runtime, release.AspnetcoreRuntime} {
			for _, file := range component.Files {
				if (file.Name == want || filepath.Base(file.URL) == want) && file.Hash != "" {
					return AlgorithmSHA512, Digest(file.Hash), nil
				}
			}
		}
	}

	return "", "", fmt.Errorf("checksum for %q not found in dotnet releases.json checksums", filename)
}

// parseBSD parses BSD format checksums.
// Format: "SHA256 (filename) = hash"
func parseBSD(content []byte, filename string) (Algorithm, Digest, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		matches := bsdPattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		algo := matches[1]
		file := matches[2]
		hash := matches[3]

		if file == filename || filepath.Base(file) == filename {
			var algorithm Algorithm
			switch algo {
			case "SHA256":
				algorithm = AlgorithmSHA256
			case "SHA512":
				algorithm = AlgorithmSHA512
			default:
				return "", "", fmt.Errorf("unsupported algorithm in BSD format: %s", algo)
			}
			return algorithm, Digest(hash), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	return "", "", fmt.Errorf("checksum for %q not found in BSD checksums file", filename)
}

// parseGNU parses GNU coreutils format checksums.
// Format: "<hash>  <filename>" or "<hash> *<filename>"
func parseGNU(content []byte, filename string) (Algorithm, Digest, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(content)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		hash, file := parseGNULine(line)
		if file == filename || filepath.Base(file) == filename {
			algorithm := DetectAlgorithm(hash)
			if algorithm == "" {
				return "", "", fmt.Errorf("could not determine hash algorithm for %q", hash)
			}
			return algorithm, Digest(hash), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	return "", "", fmt.Errorf("checksum for %q not found in GNU checksums file", filename)
}

// parseBareHash parses a bare hash checksum file (single hash value, no filename).
// The filename parameter is accepted for signature consistency but unused,
// as bare hash files are per-file checksums with no filename in the content.
func parseBareHash(content []byte, _ string) (Algorithm, Digest, error) {
	hash := strings.TrimSpace(string(content))
	if hash == "" {
		return "", "", fmt.Errorf("empty bare hash content")
	}

	algorithm := DetectAlgorithm(hash)
	if algorithm == "" {
		return "", "", fmt.Errorf("could not determine hash algorithm for bare hash %q", hash)
	}

	return algorithm, Digest(hash), nil
}

// parseGNULine parses a line from a GNU format checksums file.
// Supports formats:
//   - "<hash>  <filename>"
//   - "<hash> *<filename>"
//   - "<hash>  *<filename>"
func parseGNULine(line string) (hash, filename string) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", ""
	}

	hash = parts[0]
	filename = parts[1]

	// Remove leading * from filename (binary mode indicator)
	filename = strings.TrimPrefix(filename, "*")

	return hash, filename
}
