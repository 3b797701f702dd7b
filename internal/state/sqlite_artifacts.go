package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leapclean/pkg/core"
)

const artifactColumns = `id, name, type, description, version, file_name, digest, size, run_id, created_at`

// InsertArtifactVersion records v as the next version of v.Name.
// The version index, ID (when empty) and creation time are assigned here.
// A name keeps the type of its first version; a different type is rejected
// with ErrTypeMismatch.
func (s *SQLiteStore) InsertArtifactVersion(ctx context.Context, v *core.ArtifactVersion) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingType string
	err = tx.QueryRowContext(ctx,
		`SELECT type FROM artifact_versions WHERE name = ? ORDER BY version DESC LIMIT 1`, v.Name,
	).Scan(&existingType)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to look up artifact type: %w", err)
	case existingType != v.Type:
		return fmt.Errorf("%w: %s is %q, not %q", ErrTypeMismatch, v.Name, existingType, v.Type)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version) + 1, 0) FROM artifact_versions WHERE name = ?`, v.Name,
	).Scan(&next); err != nil {
		return fmt.Errorf("failed to allocate artifact version: %w", err)
	}

	if v.ID == "" {
		v.ID = generateID()
	}
	v.Version = next
	v.CreatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifact_versions (`+artifactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Type, v.Description, v.Version, v.FileName, v.Digest, v.Size, v.RunID, formatTime(v.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to insert artifact version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifact version: %w", err)
	}

	s.logger.Debug("inserted artifact version",
		slog.String("ref", v.Ref()),
		slog.String("digest", v.Digest))
	return nil
}

// GetArtifactVersion retrieves an exact version of a named artifact.
func (s *SQLiteStore) GetArtifactVersion(ctx context.Context, name string, version int) (*core.ArtifactVersion, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifact_versions WHERE name = ? AND version = ?`, name, version)
	v, err := scanArtifactVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s:%s: %w", name, core.VersionLabel(version), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact version: %w", err)
	}
	return v, nil
}

// GetLatestArtifactVersion retrieves the highest version of a named artifact.
func (s *SQLiteStore) GetLatestArtifactVersion(ctx context.Context, name string) (*core.ArtifactVersion, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifact_versions WHERE name = ? ORDER BY version DESC LIMIT 1`, name)
	v, err := scanArtifactVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s:%s: %w", name, core.AliasLatest, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest artifact version: %w", err)
	}
	return v, nil
}

// ListArtifactVersions lists versions of name, or of every artifact when
// name is empty, ordered by name then version.
func (s *SQLiteStore) ListArtifactVersions(ctx context.Context, name string) ([]*core.ArtifactVersion, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `SELECT ` + artifactColumns + ` FROM artifact_versions`
	var args []any
	if name != "" {
		query += ` WHERE name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY name, version`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []*core.ArtifactVersion
	for rows.Next() {
		v, err := scanArtifactVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifact versions: %w", err)
	}
	return versions, nil
}

// LinkRunArtifact records that a run used or logged an artifact version.
// Linking the same pair twice is a no-op.
func (s *SQLiteStore) LinkRunArtifact(ctx context.Context, runID, versionID string, direction core.LinkDirection) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO run_artifacts (run_id, artifact_version_id, direction, created_at) VALUES (?, ?, ?, ?)`,
		runID, versionID, string(direction), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to link artifact to run: %w", err)
	}
	return nil
}

// ListRunArtifacts returns the artifact versions a run used and logged.
func (s *SQLiteStore) ListRunArtifacts(ctx context.Context, runID string) ([]*core.RunArtifact, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ra.direction,
		       av.id, av.name, av.type, av.description, av.version, av.file_name,
		       av.digest, av.size, av.run_id, av.created_at
		FROM run_artifacts ra
		JOIN artifact_versions av ON av.id = ra.artifact_version_id
		WHERE ra.run_id = ?
		ORDER BY ra.direction DESC, av.name, av.version`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*core.RunArtifact
	for rows.Next() {
		var (
			direction string
			v         core.ArtifactVersion
			createdAt string
		)
		if err := rows.Scan(&direction, &v.ID, &v.Name, &v.Type, &v.Description, &v.Version,
			&v.FileName, &v.Digest, &v.Size, &v.RunID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run artifact: %w", err)
		}
		if v.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		links = append(links, &core.RunArtifact{
			RunID:     runID,
			Direction: core.LinkDirection(direction),
			Version:   &v,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run artifacts: %w", err)
	}
	return links, nil
}

func scanArtifactVersion(row rowScanner) (*core.ArtifactVersion, error) {
	var (
		v         core.ArtifactVersion
		createdAt string
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Type, &v.Description, &v.Version,
		&v.FileName, &v.Digest, &v.Size, &v.RunID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &v, nil
}
