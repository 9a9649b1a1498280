package store

import (
	"fmt"

	"go.uber.org/zap"
)

// UpdateReviewStatus rewrites the review_status of the rows matching a
// variant+sample, leaving every other column untouched. The new file is
// built in memory first, so a failed write leaves the previous file
// intact. Returns false on any failure, including a missing dataset.
func (s *Store) UpdateReviewStatus(variantKey, sampleID, newStatus string) bool {
	if !fileExists(s.variantsPath()) {
		return false
	}

	err := s.withTable("variants_buf", func(table string) error {
		if _, err := s.db.Exec(fmt.Sprintf(
			"CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet(%s)",
			table, sqlPath(s.variantsPath()))); err != nil {
			return fmt.Errorf("load variants: %w", err)
		}

		res, err := s.db.Exec(fmt.Sprintf(
			"UPDATE %s SET review_status = ? WHERE variant_key = ? AND SAMPLE = ?", table),
			newStatus, variantKey, sampleID)
		if err != nil {
			return fmt.Errorf("update review status: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("no row matches %s/%s", variantKey, sampleID)
		}

		if _, err := s.db.Exec(fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)",
			table, sqlPath(s.variantsPath()))); err != nil {
			return fmt.Errorf("write variants file: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("updating review status",
			zap.String("variant_key", variantKey), zap.String("sample", sampleID),
			zap.String("status", newStatus), zap.Error(err))
		return false
	}

	s.Invalidate()
	return true
}
