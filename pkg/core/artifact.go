package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AliasLatest resolves to the highest version of an artifact.
const AliasLatest = "latest"

var artifactNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ArtifactVersion is an immutable, logged version of a named artifact.
type ArtifactVersion struct {
	ID          string
	Name        string
	Type        string
	Description string
	Version     int
	FileName    string
	Digest      string // hex sha256 of the file contents
	Size        int64
	RunID       string
	CreatedAt   time.Time
}

// Ref returns the exact reference of this version, e.g. "clean_sample.csv:v2".
func (v *ArtifactVersion) Ref() string {
	return fmt.Sprintf("%s:%s", v.Name, VersionLabel(v.Version))
}

// VersionLabel renders a version index as "vN".
func VersionLabel(version int) string {
	return "v" + strconv.Itoa(version)
}

// ArtifactRef points at an artifact version, either exactly ("v3") or
// through the "latest" alias.
type ArtifactRef struct {
	Name    string
	Alias   string // "latest" or empty when Version is set
	Version int
}

// IsLatest reports whether the reference resolves through the latest alias.
func (r ArtifactRef) IsLatest() bool {
	return r.Alias == AliasLatest
}

// String renders the reference in name:version form.
func (r ArtifactRef) String() string {
	if r.IsLatest() {
		return r.Name + ":" + AliasLatest
	}
	return r.Name + ":" + VersionLabel(r.Version)
}

// ParseArtifactRef parses "name", "name:latest" or "name:vN".
// The rightmost colon separates the name from the version.
func ParseArtifactRef(s string) (ArtifactRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ArtifactRef{}, fmt.Errorf("%w: empty artifact reference", ErrArtifactNotFound)
	}

	name, version := s, AliasLatest
	if i := strings.LastIndex(s, ":"); i >= 0 {
		name, version = s[:i], s[i+1:]
	}
	if err := ValidateArtifactName(name); err != nil {
		return ArtifactRef{}, fmt.Errorf("%w: %q: %v", ErrArtifactNotFound, s, err)
	}

	if version == AliasLatest {
		return ArtifactRef{Name: name, Alias: AliasLatest}, nil
	}
	if !strings.HasPrefix(version, "v") {
		return ArtifactRef{}, fmt.Errorf("%w: %q: unknown version %q", ErrArtifactNotFound, s, version)
	}
	n, err := strconv.Atoi(version[1:])
	if err != nil || n < 0 {
		return ArtifactRef{}, fmt.Errorf("%w: %q: unknown version %q", ErrArtifactNotFound, s, version)
	}
	return ArtifactRef{Name: name, Version: n}, nil
}

// ValidateArtifactName checks that name can be stored and referenced.
func ValidateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("artifact name is required")
	}
	if !artifactNamePattern.MatchString(name) {
		return fmt.Errorf("invalid artifact name %q: use letters, digits, '.', '_' and '-'", name)
	}
	return nil
}
