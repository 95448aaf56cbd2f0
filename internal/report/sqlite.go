package report

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/eargollo/redup/internal/db"
	"github.com/eargollo/redup/internal/scan"
)

// groupBatchSize is the number of duplicate groups written per SQLite transaction.
const groupBatchSize = 100

// SQLite persists a report into a new database file: one runs row with the
// summary, duplicate_groups keyed by group ID, duplicate_files keyed by
// group ID and path.
type SQLite struct {
	Path string
}

func (s *SQLite) Write(ctx context.Context, rep *scan.Report) error {
	if err := s.write(ctx, rep); err != nil {
		return &SinkError{Format: "sql", Path: s.Path, Err: err}
	}
	return nil
}

// write leaves no file behind on failure, so a retry to the same path is
// not refused as an existing output.
func (s *SQLite) write(ctx context.Context, rep *scan.Report) (err error) {
	if err := CheckOutput(s.Path); err != nil {
		return err
	}
	database, err := db.Open(s.Path)
	if err != nil {
		s.remove()
		return err
	}
	defer func() {
		if cerr := database.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			s.remove()
		}
	}()

	if err := db.RunMigrations(database); err != nil {
		return err
	}
	if err := insertRun(ctx, database, rep); err != nil {
		return err
	}

	for i := 0; i < len(rep.Groups); i += groupBatchSize {
		end := min(i+groupBatchSize, len(rep.Groups))
		if err := writeGroupBatch(ctx, database, rep.Groups[i:end]); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes a partially written database and its rollback journal.
func (s *SQLite) remove() {
	for _, p := range []string{s.Path, s.Path + "-journal"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("remove partial report", "path", p, "error", err)
		}
	}
}

func insertRun(ctx context.Context, database *sql.DB, rep *scan.Report) error {
	sum := rep.Summary
	_, err := database.ExecContext(ctx, `
		INSERT INTO runs
			(created_at, algorithm, files_scanned, files_failed,
			 groups_found, duplicate_files, bytes_read, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rep.Algorithm, sum.FilesScanned, sum.FilesFailed,
		sum.GroupsFound, sum.DuplicateFiles, sum.BytesRead, sum.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// writeGroupBatch writes a slice of duplicate groups within a single transaction,
// reusing prepared statements across all groups in the batch.
func writeGroupBatch(ctx context.Context, database *sql.DB, batch []scan.Group) error {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmtGroup, err := tx.PrepareContext(ctx,
		`INSERT INTO duplicate_groups (id, hash, file_count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert_group: %w", err)
	}
	defer stmtGroup.Close()

	stmtFile, err := tx.PrepareContext(ctx,
		`INSERT INTO duplicate_files (group_id, path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert_file: %w", err)
	}
	defer stmtFile.Close()

	for _, g := range batch {
		if _, err := stmtGroup.ExecContext(ctx, g.ID, string(g.Digest), len(g.Paths)); err != nil {
			return fmt.Errorf("insert group %d: %w", g.ID, err)
		}
		for _, p := range g.Paths {
			if _, err := stmtFile.ExecContext(ctx, g.ID, p); err != nil {
				return fmt.Errorf("insert file %s: %w", p, err)
			}
		}
	}
	return tx.Commit()
}
