// Package artifact implements the versioned artifact store: content-addressed
// blobs on the local filesystem, with run and version metadata kept in the
// SQLite state store.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapclean/pkg/core"
)

// Artifact is a pending artifact: created locally, given a file, then
// logged against a run to become an immutable core.ArtifactVersion.
type Artifact struct {
	Name        string
	Type        string
	Description string

	path string
}

// New creates a pending artifact.
func New(name, typ, description string) *Artifact {
	return &Artifact{Name: name, Type: typ, Description: description}
}

// AddFile attaches the file at path. An artifact holds exactly one file.
func (a *Artifact) AddFile(path string) error {
	if a.path != "" {
		return fmt.Errorf("artifact %s already has file %s", a.Name, filepath.Base(a.path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrFilesystem, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", core.ErrFilesystem, path)
	}

	a.path = path
	return nil
}

// File returns the attached file path, or "" if none is attached.
func (a *Artifact) File() string {
	return a.path
}

// Validate checks that the artifact can be logged.
func (a *Artifact) Validate() error {
	if err := core.ValidateArtifactName(a.Name); err != nil {
		return err
	}
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("artifact %s: type is required", a.Name)
	}
	if a.path == "" {
		return fmt.Errorf("artifact %s: no file attached", a.Name)
	}
	return nil
}
