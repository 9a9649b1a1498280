package store

import (
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/variant"
)

// Stats are dataset-level aggregates for the status display.
type Stats struct {
	TotalVariants    int      `json:"total_variants"`
	TotalSamples     int      `json:"total_samples"`
	ReviewedVariants int      `json:"reviewed_variants"`
	PendingVariants  int      `json:"pending_variants"`
	ClinvarAnnotated int      `json:"clinvar_annotated"`
	Chromosomes      []string `json:"chromosomes"`
}

// Info extends Stats with file-level details.
type Info struct {
	Stats
	FileSizeMB   float64 `json:"file_size_mb"`
	LastModified string  `json:"last_modified"`
	Status       string  `json:"status"`
}

// Stats computes dataset aggregates with streaming SQL aggregation, never
// materializing the full dataset. The result is cached until the variants
// file's modification time changes. Errors degrade to zero stats.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	s.checkModified()
	if s.stats != nil {
		cached := *s.stats
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	if !fileExists(s.variantsPath()) {
		return Stats{}
	}

	var st Stats
	path := sqlPath(s.variantsPath())
	row := s.db.QueryRow(fmt.Sprintf(`SELECT
		COUNT(*),
		COUNT(DISTINCT SAMPLE),
		COUNT(*) FILTER (WHERE review_status = '%s'),
		COUNT(*) FILTER (WHERE review_status = '%s' OR review_status IS NULL),
		COUNT(*) FILTER (WHERE clinvar_sig IS NOT NULL AND clinvar_sig != '')
		FROM read_parquet(%s)`,
		variant.StatusReviewed, variant.StatusPending, path))
	if err := row.Scan(&st.TotalVariants, &st.TotalSamples,
		&st.ReviewedVariants, &st.PendingVariants, &st.ClinvarAnnotated); err != nil {
		s.logger.Error("computing dataset stats", zap.Error(err))
		return Stats{}
	}

	rows, err := s.db.Query(fmt.Sprintf("SELECT DISTINCT CHROM FROM read_parquet(%s)", path))
	if err != nil {
		s.logger.Error("listing chromosomes", zap.Error(err))
		return Stats{}
	}
	defer rows.Close()
	for rows.Next() {
		var chrom string
		if err := rows.Scan(&chrom); err != nil {
			s.logger.Error("scanning chromosome", zap.Error(err))
			return Stats{}
		}
		st.Chromosomes = append(st.Chromosomes, chrom)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("listing chromosomes", zap.Error(err))
		return Stats{}
	}
	sort.Strings(st.Chromosomes)

	s.mu.Lock()
	s.stats = &st
	s.mu.Unlock()
	return st
}

// Info returns the dataset stats plus file size and modification details.
func (s *Store) Info() Info {
	info := Info{Stats: s.Stats()}
	fi, err := os.Stat(s.variantsPath())
	if err != nil {
		info.LastModified = "N/A"
		info.Status = "no data file found"
		return info
	}
	info.FileSizeMB = float64(fi.Size()) / (1024 * 1024)
	info.LastModified = fi.ModTime().UTC().Format(time.RFC3339)
	info.Status = "connected"
	return info
}
