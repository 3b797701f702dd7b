// Package core defines the shared language of the LeapClean system.
//
// This package contains:
//   - Domain entities (Run, ArtifactVersion, ArtifactRef)
//   - Error kinds shared by the pipeline, the artifact store and the CLI
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
