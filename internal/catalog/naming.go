package catalog

import (
	"strings"

	"github.com/ufo-models/ufometa/internal/errors"
)

const jsonExt = ".json"

// baseName is the part of name before its first dot, trimmed
func baseName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// MetadataName derives the catalog file name of a model entry: the entry name
// up to its first dot, plus .json
func MetadataName(entry string) (string, error) {
	base := baseName(entry)
	if base == "" {
		return "", &errors.InvalidNameError{Name: entry}
	}
	return base + jsonExt, nil
}

// VersionedName names the catalog file of a new model version
func VersionedName(metadataName, version string) (string, error) {
	base := baseName(metadataName)
	if base == "" {
		return "", &errors.InvalidNameError{Name: metadataName}
	}
	if strings.TrimSpace(version) == "" {
		return "", &errors.InvalidNameError{Name: metadataName + " (empty version)"}
	}
	return base + ".V" + strings.TrimSpace(version) + jsonExt, nil
}

// Rename turns user input into a catalog file name. Spaces become
// underscores and the result must end in .json.
func Rename(input string) (string, error) {
	name := strings.ReplaceAll(strings.TrimSpace(input), " ", "_")
	if !strings.HasSuffix(name, jsonExt) || baseName(name) == "" {
		return "", &errors.InvalidNameError{Name: input}
	}
	return name, nil
}
