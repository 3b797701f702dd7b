package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapclean/internal/state"
	"github.com/leapstack-labs/leapclean/pkg/core"
)

// Config configures where the store keeps its data.
type Config struct {
	// StoreDir holds the content-addressed blobs.
	StoreDir string
	// StatePath is the SQLite metadata database (":memory:" for tests).
	StatePath string
	// DownloadDir receives materialized artifact files.
	DownloadDir string
	// Logger receives debug output. Optional.
	Logger *slog.Logger
}

// Store is a local, versioned artifact store.
type Store struct {
	state       *state.SQLiteStore
	blobDir     string
	downloadDir string
	logger      *slog.Logger
}

// Open opens (creating if needed) the store described by cfg.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	blobDir := filepath.Join(cfg.StoreDir, "blobs")
	if err := os.MkdirAll(blobDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	if cfg.StatePath != ":memory:" {
		if stateDir := filepath.Dir(cfg.StatePath); stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	st := state.NewSQLiteStore(logger)
	if err := st.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		return nil, err
	}

	return &Store{
		state:       st,
		blobDir:     blobDir,
		downloadDir: cfg.DownloadDir,
		logger:      logger,
	}, nil
}

// Close releases the metadata database.
func (s *Store) Close() error {
	return s.state.Close()
}

// --- Runs ---

// BeginRun starts a run of jobType recording config as its configuration.
func (s *Store) BeginRun(ctx context.Context, jobType string, config map[string]any) (*core.Run, error) {
	run, err := s.state.CreateRun(ctx, jobType, config)
	if err != nil {
		return nil, fmt.Errorf("failed to begin run: %w", err)
	}
	s.logger.Info("run started", slog.String("run_id", run.ID), slog.String("job_type", jobType))
	return run, nil
}

// FinishRun marks run as completed.
func (s *Store) FinishRun(ctx context.Context, run *core.Run) error {
	if err := s.state.CompleteRun(ctx, run.ID); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}

	finished, err := s.state.GetRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.ID, err)
	}
	run.Status = finished.Status
	run.CompletedAt = finished.CompletedAt

	s.logger.Info("run finished", slog.String("run_id", run.ID))
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*core.Run, error) {
	return s.state.GetRun(ctx, id)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	return s.state.ListRuns(ctx, limit)
}

// RunArtifacts returns the artifact versions a run used and logged.
func (s *Store) RunArtifacts(ctx context.Context, runID string) ([]*core.RunArtifact, error) {
	return s.state.ListRunArtifacts(ctx, runID)
}

// --- Reading ---

// Resolve finds the version a reference points at.
func (s *Store) Resolve(ctx context.Context, ref string) (*core.ArtifactVersion, error) {
	parsed, err := core.ParseArtifactRef(ref)
	if err != nil {
		return nil, err
	}

	var v *core.ArtifactVersion
	if parsed.IsLatest() {
		v, err = s.state.GetLatestArtifactVersion(ctx, parsed.Name)
	} else {
		v, err = s.state.GetArtifactVersion(ctx, parsed.Name, parsed.Version)
	}
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrArtifactNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return v, nil
}

// Download materializes v under dir/<name>/<vN>/<file> and returns the path.
// The copy is checked against the recorded digest.
func (s *Store) Download(ctx context.Context, v *core.ArtifactVersion, dir string) (string, error) {
	dest := filepath.Join(dir, v.Name, core.VersionLabel(v.Version), v.FileName)

	if digest, err := fileDigest(dest); err == nil && digest == v.Digest {
		s.logger.Debug("artifact already downloaded", slog.String("ref", v.Ref()), slog.String("path", dest))
		return dest, nil
	}

	src, err := os.Open(s.blobPath(v.Digest))
	if err != nil {
		return "", fmt.Errorf("%w: blob for %s: %v", core.ErrArtifactNotFound, v.Ref(), err)
	}
	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrFilesystem, err)
	}

	digest, _, err := copyAtomic(src, dest)
	if err != nil {
		return "", fmt.Errorf("%w: downloading %s: %v", core.ErrFilesystem, v.Ref(), err)
	}
	if digest != v.Digest {
		_ = os.Remove(dest)
		return "", fmt.Errorf("%w: %s: digest mismatch (want %s, got %s)", core.ErrFilesystem, v.Ref(), v.Digest, digest)
	}

	s.logger.Debug("downloaded artifact", slog.String("ref", v.Ref()), slog.String("path", dest))
	return dest, nil
}

// UseArtifact resolves ref, downloads it and records run as its consumer.
// It returns the local path of the artifact's file.
func (s *Store) UseArtifact(ctx context.Context, run *core.Run, ref string) (string, error) {
	v, err := s.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}

	path, err := s.Download(ctx, v, s.downloadDir)
	if err != nil {
		return "", err
	}

	if err := s.state.LinkRunArtifact(ctx, run.ID, v.ID, core.LinkUsed); err != nil {
		return "", err
	}

	s.logger.Info("using artifact", slog.String("ref", v.Ref()), slog.String("requested", ref))
	return path, nil
}

// ListVersions lists the versions of name, or every version when name is empty.
func (s *Store) ListVersions(ctx context.Context, name string) ([]*core.ArtifactVersion, error) {
	return s.state.ListArtifactVersions(ctx, name)
}

// --- Writing ---

// LogArtifact stores a's file and registers it as the next version of
// a.Name, produced by run. Rejections wrap core.ErrPublish; failure to read
// the attached file wraps core.ErrFilesystem.
func (s *Store) LogArtifact(ctx context.Context, run *core.Run, a *Artifact) (*core.ArtifactVersion, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPublish, err)
	}
	if run.Finished() {
		return nil, fmt.Errorf("%w: run %s is already finished", core.ErrPublish, run.ID)
	}

	src, err := os.Open(a.File())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFilesystem, err)
	}
	defer func() { _ = src.Close() }()

	digest, size, err := s.writeBlob(src)
	if err != nil {
		return nil, fmt.Errorf("%w: storing %s: %v", core.ErrPublish, a.Name, err)
	}

	v := &core.ArtifactVersion{
		Name:        a.Name,
		Type:        a.Type,
		Description: a.Description,
		FileName:    filepath.Base(a.File()),
		Digest:      digest,
		Size:        size,
		RunID:       run.ID,
	}
	if err := s.state.InsertArtifactVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPublish, err)
	}
	if err := s.state.LinkRunArtifact(ctx, run.ID, v.ID, core.LinkLogged); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPublish, err)
	}

	s.logger.Info("logged artifact",
		slog.String("ref", v.Ref()),
		slog.String("type", v.Type),
		slog.Int64("size", v.Size))
	return v, nil
}

// blobPath returns the location of the blob with the given digest.
func (s *Store) blobPath(digest string) string {
	if len(digest) < 2 {
		return filepath.Join(s.blobDir, digest)
	}
	return filepath.Join(s.blobDir, digest[:2], digest)
}

// writeBlob copies r into the blob directory under its sha256 digest.
// Identical content is stored once.
func (s *Store) writeBlob(r io.Reader) (digest string, size int64, err error) {
	tmp, err := os.CreateTemp(s.blobDir, ".incoming-*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, h), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, err
	}
	digest = hex.EncodeToString(h.Sum(nil))

	dest := s.blobPath(digest)
	if _, err := os.Stat(dest); err == nil {
		return digest, size, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, err
	}
	return digest, size, nil
}

// copyAtomic writes r to dest through a temporary file in the same
// directory and returns the sha256 digest of what was written.
func copyAtomic(r io.Reader, dest string) (digest string, size int64, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, h), r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// fileDigest returns the hex sha256 of the file at path.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
