package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/variant"
)

// AddComment appends one comment to the append-only comment log with an
// auto-incremented id and a generated timestamp, then rewrites the comments
// file. The variant cache is invalidated because comment counts show up in
// loaded rows. Returns false on any failure.
func (s *Store) AddComment(variantKey, sampleID, userName, text string) bool {
	err := s.withTable("comments_buf", func(table string) error {
		if _, err := s.db.Exec(fmt.Sprintf(`CREATE OR REPLACE TABLE %s (
			id BIGINT, variant_key VARCHAR, sample_id VARCHAR,
			user_name VARCHAR, comment_text VARCHAR, timestamp VARCHAR)`, table)); err != nil {
			return fmt.Errorf("create comment buffer: %w", err)
		}
		if fileExists(s.commentsPath()) {
			if _, err := s.db.Exec(fmt.Sprintf(
				"INSERT INTO %s SELECT * FROM read_parquet(%s)",
				table, sqlPath(s.commentsPath()))); err != nil {
				return fmt.Errorf("load existing comments: %w", err)
			}
		}

		var nextID int64
		if err := s.db.QueryRow(fmt.Sprintf(
			"SELECT COALESCE(MAX(id), 0) + 1 FROM %s", table)).Scan(&nextID); err != nil {
			return fmt.Errorf("next comment id: %w", err)
		}

		timestamp := time.Now().UTC().Format(time.RFC3339)
		if _, err := s.db.Exec(fmt.Sprintf(
			"INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?)", table),
			nextID, variantKey, sampleID, userName, text, timestamp); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		if _, err := s.db.Exec(fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)",
			table, sqlPath(s.commentsPath()))); err != nil {
			return fmt.Errorf("write comments file: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("adding comment",
			zap.String("variant_key", variantKey), zap.String("sample", sampleID), zap.Error(err))
		return false
	}

	s.Invalidate()
	return true
}

// Comments returns all comments for a variant+sample, newest first.
// Missing files and read errors yield an empty list.
func (s *Store) Comments(variantKey, sampleID string) []variant.Comment {
	if !fileExists(s.commentsPath()) {
		return nil
	}

	rows, err := s.db.Query(fmt.Sprintf(`SELECT id, variant_key, sample_id, user_name, comment_text, timestamp
		FROM read_parquet(%s)
		WHERE variant_key = ? AND sample_id = ?
		ORDER BY timestamp DESC, id DESC`, sqlPath(s.commentsPath())),
		variantKey, sampleID)
	if err != nil {
		s.logger.Error("loading comments",
			zap.String("variant_key", variantKey), zap.String("sample", sampleID), zap.Error(err))
		return nil
	}
	defer rows.Close()

	var out []variant.Comment
	for rows.Next() {
		var c variant.Comment
		if err := rows.Scan(&c.ID, &c.VariantKey, &c.SampleID, &c.UserName, &c.CommentText, &c.Timestamp); err != nil {
			s.logger.Error("scanning comment", zap.Error(err))
			return nil
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("loading comments", zap.Error(err))
		return nil
	}
	return out
}

// withTable runs fn with a scratch table name and drops the table after,
// regardless of outcome.
func (s *Store) withTable(table string, fn func(table string) error) error {
	defer s.db.Exec("DROP TABLE IF EXISTS " + table)
	return fn(table)
}
