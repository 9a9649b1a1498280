// Package store wraps the on-disk columnar variant dataset and its
// companion comments dataset behind a small query surface.
//
// All Parquet access goes through a single in-memory DuckDB connection:
// reads use read_parquet with predicate pushdown, writes build the new
// table in memory and COPY it over the old file, so a failed write leaves
// the previous file untouched. Public operations fail soft: missing files
// mean empty results, and other I/O errors are logged and converted to
// empty or false results so a degraded UI beats a crash.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/variant"
)

// Default caps bounding memory use.
const (
	DefaultLoadCap    = 50000 // hard cap on rows materialized per load
	DefaultDisplayCap = 1000  // below this, comment counts are joined in
)

// Store provides query access to a variant data directory.
type Store struct {
	dir    string
	db     *sql.DB
	logger *zap.Logger

	loadCap    int
	displayCap int

	// Caches below are keyed by the variants file's mtime.
	mu       sync.Mutex
	mtime    time.Time
	samples  []string
	stats    *Stats
	colCache map[string]bool
}

// Open creates a store over a data directory holding variants.parquet,
// comments.parquet and an optional sample_index.parquet.
func Open(dir string) (*Store, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Store{
		dir:        dir,
		db:         db,
		logger:     zap.NewNop(),
		loadCap:    DefaultLoadCap,
		displayCap: DefaultDisplayCap,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetLogger sets the logger for error and warning messages.
func (s *Store) SetLogger(l *zap.Logger) { s.logger = l }

// SetLoadCap overrides the hard row cap applied to every load.
func (s *Store) SetLoadCap(n int) {
	if n > 0 {
		s.loadCap = n
	}
}

// SetDisplayCap overrides the result size up to which comment counts are
// joined into loaded rows.
func (s *Store) SetDisplayCap(n int) {
	if n > 0 {
		s.displayCap = n
	}
}

// Dir returns the data directory the store reads from.
func (s *Store) Dir() string { return s.dir }

func (s *Store) variantsPath() string    { return filepath.Join(s.dir, "variants.parquet") }
func (s *Store) commentsPath() string    { return filepath.Join(s.dir, "comments.parquet") }
func (s *Store) sampleIndexPath() string { return filepath.Join(s.dir, "sample_index.parquet") }

// sqlPath quotes a filesystem path for embedding in a DuckDB statement.
func sqlPath(p string) string {
	return "'" + strings.ReplaceAll(p, "'", "''") + "'"
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// checkModified invalidates the caches when the variants file's
// modification time has changed since the last check. Callers must hold mu.
func (s *Store) checkModified() {
	info, err := os.Stat(s.variantsPath())
	if err != nil {
		return
	}
	if !info.ModTime().Equal(s.mtime) {
		s.mtime = info.ModTime()
		s.invalidateLocked()
	}
}

func (s *Store) invalidateLocked() {
	s.samples = nil
	s.stats = nil
	s.colCache = nil
}

// Invalidate drops all cached derived state. Writers call this after
// rewriting a dataset file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
}

// hasColumn reports whether the variants file carries a column. Used for
// the optional derived max_gnomad_af column.
func (s *Store) hasColumn(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkModified()

	if s.colCache == nil {
		s.colCache = make(map[string]bool)
		rows, err := s.db.Query(fmt.Sprintf(
			"SELECT column_name FROM (DESCRIBE SELECT * FROM read_parquet(%s))",
			sqlPath(s.variantsPath())))
		if err != nil {
			s.logger.Error("describing variants dataset", zap.Error(err))
			return false
		}
		defer rows.Close()
		for rows.Next() {
			var col string
			if err := rows.Scan(&col); err != nil {
				s.logger.Error("scanning column name", zap.Error(err))
				return false
			}
			s.colCache[col] = true
		}
	}
	return s.colCache[name]
}

// ListSamples returns the sorted distinct sample identifiers, preferring
// the small side-index file when present. The result is cached until the
// variants file's modification time changes.
func (s *Store) ListSamples() []string {
	s.mu.Lock()
	s.checkModified()
	if s.samples != nil {
		cached := s.samples
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	var query string
	switch {
	case fileExists(s.sampleIndexPath()):
		query = fmt.Sprintf("SELECT DISTINCT SAMPLE FROM read_parquet(%s) ORDER BY SAMPLE",
			sqlPath(s.sampleIndexPath()))
	case fileExists(s.variantsPath()):
		query = fmt.Sprintf("SELECT DISTINCT SAMPLE FROM read_parquet(%s) ORDER BY SAMPLE",
			sqlPath(s.variantsPath()))
	default:
		return nil
	}

	rows, err := s.db.Query(query)
	if err != nil {
		s.logger.Error("listing samples", zap.Error(err))
		return nil
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var sample string
		if err := rows.Scan(&sample); err != nil {
			s.logger.Error("scanning sample", zap.Error(err))
			return nil
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("listing samples", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	s.samples = samples
	s.mu.Unlock()
	return samples
}

// LoadVariants materializes a sample/chromosome-bounded slice of the
// dataset. Predicates are pushed down into the Parquet scan and the row
// count is clamped to the hard load cap. The derived max-population
// frequency is guaranteed present on every returned row, and comment
// counts are joined in when the result is small enough to display in
// full.
func (s *Store) LoadVariants(samples, chromosomes []string, limit int) []variant.Row {
	if !fileExists(s.variantsPath()) {
		return nil
	}

	effective := s.loadCap
	if limit > 0 && limit < effective {
		effective = limit
	}

	var conds []string
	var args []interface{}
	if len(samples) > 0 {
		conds = append(conds, "SAMPLE IN ("+placeholders(len(samples))+")")
		for _, v := range samples {
			args = append(args, v)
		}
	}
	if len(chromosomes) > 0 {
		conds = append(conds, "CHROM IN ("+placeholders(len(chromosomes))+")")
		for _, c := range chromosomes {
			args = append(args, variant.NormalizeChrom(c))
		}
	}

	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s)",
		s.variantSelectList(), sqlPath(s.variantsPath()))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" LIMIT %d", effective)

	out, err := s.queryVariants(query, args...)
	if err != nil {
		s.logger.Error("loading variants", zap.Error(err))
		return nil
	}

	if len(out) <= s.displayCap {
		s.attachCommentCounts(out)
	}
	return out
}

// Search matches a term case-insensitively against the gene, consequence,
// sample and chromosome columns, OR-combined, capped at limit rows.
func (s *Store) Search(term string, limit int) []variant.Row {
	if !fileExists(s.variantsPath()) || strings.TrimSpace(term) == "" {
		return nil
	}
	if limit <= 0 || limit > s.loadCap {
		limit = s.loadCap
	}

	pattern := "%" + strings.ToLower(term) + "%"
	query := fmt.Sprintf(`SELECT %s FROM read_parquet(%s)
		WHERE lower(COALESCE(gene, '')) LIKE ?
		   OR lower(COALESCE(consequence, '')) LIKE ?
		   OR lower(SAMPLE) LIKE ?
		   OR lower(CHROM) LIKE ?
		LIMIT %d`,
		s.variantSelectList(), sqlPath(s.variantsPath()), limit)

	out, err := s.queryVariants(query, pattern, pattern, pattern, pattern)
	if err != nil {
		s.logger.Error("searching variants", zap.String("term", term), zap.Error(err))
		return nil
	}
	return out
}

// GetVariant fetches a single row by variant key and sample, or nil.
func (s *Store) GetVariant(variantKey, sampleID string) *variant.Row {
	if !fileExists(s.variantsPath()) {
		return nil
	}
	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s) WHERE variant_key = ? AND SAMPLE = ? LIMIT 1",
		s.variantSelectList(), sqlPath(s.variantsPath()))
	out, err := s.queryVariants(query, variantKey, sampleID)
	if err != nil {
		s.logger.Error("fetching variant",
			zap.String("variant_key", variantKey), zap.String("sample", sampleID), zap.Error(err))
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	r := out[0]
	return &r
}

// variantSelectList builds the SELECT expression list for variant rows,
// including the stored max_gnomad_af column only when the file carries it.
func (s *Store) variantSelectList() string {
	maxExpr := "CAST(0.0 AS DOUBLE)"
	if s.hasColumn("max_gnomad_af") {
		maxExpr = "COALESCE(max_gnomad_af, 0)"
	}
	return `CHROM, POS, REF, ALT, SAMPLE,
		COALESCE(GT, './.'), COALESCE(DP, 0), COALESCE(VAF, 0), COALESCE(GQ, 0),
		COALESCE(gene, ''), COALESCE(consequence, ''),
		COALESCE(clinvar_sig, ''), COALESCE(CAST(clinvar_id AS VARCHAR), ''), COALESCE(clinvar_disease, ''),
		COALESCE(gnomad_af, 0), COALESCE(gnomad_af_afr, 0), COALESCE(gnomad_af_amr, 0),
		COALESCE(gnomad_af_asj, 0), COALESCE(gnomad_af_eas, 0), COALESCE(gnomad_af_fin, 0),
		COALESCE(gnomad_af_nfe, 0), COALESCE(gnomad_af_sas, 0),
		COALESCE(af_cgen, 0), COALESCE(ac_cgen, 0), COALESCE(an_cgen, 0),
		COALESCE(cadd_score, 0), COALESCE(sift_score, 0), COALESCE(polyphen_score, 0),
		COALESCE(revel_score, 0), COALESCE(splice_ai, 0), COALESCE(pli_score, 0),
		COALESCE(primateai_score, 0),
		COALESCE(review_status, 'Pending'), COALESCE(variant_key, ''), ` + maxExpr
}

// queryVariants runs a variant select and scans the rows, deriving the
// max-population frequency and variant key where the dataset lacks them.
func (s *Store) queryVariants(query string, args ...interface{}) ([]variant.Row, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	var out []variant.Row
	for rows.Next() {
		r, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		if r.MaxGnomadAF == 0 {
			r.MaxGnomadAF = variant.MaxPopulationAF(&r)
		}
		if r.VariantKey == "" {
			r.VariantKey = variant.Key(r.Chrom, r.Pos, r.Ref, r.Alt)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanVariant(rows *sql.Rows) (variant.Row, error) {
	var r variant.Row
	var pos int64
	err := rows.Scan(
		&r.Chrom, &pos, &r.Ref, &r.Alt, &r.Sample,
		&r.GT, &r.DP, &r.VAF, &r.GQ,
		&r.Gene, &r.Consequence,
		&r.ClinvarSig, &r.ClinvarID, &r.ClinvarDisease,
		&r.GnomadAF, &r.GnomadAFAfr, &r.GnomadAFAmr,
		&r.GnomadAFAsj, &r.GnomadAFEas, &r.GnomadAFFin,
		&r.GnomadAFNfe, &r.GnomadAFSas,
		&r.CohortAF, &r.CohortAC, &r.CohortAN,
		&r.CADD, &r.SIFT, &r.PolyPhen,
		&r.REVEL, &r.SpliceAI, &r.PLI,
		&r.PrimateAI,
		&r.ReviewStatus, &r.VariantKey, &r.MaxGnomadAF,
	)
	if err != nil {
		return variant.Row{}, fmt.Errorf("scan variant: %w", err)
	}
	if pos > 0 {
		r.Pos = uint64(pos)
	}
	return r, nil
}

// attachCommentCounts joins per-(variant, sample) comment counts into the
// loaded rows. Errors degrade to zero counts.
func (s *Store) attachCommentCounts(out []variant.Row) {
	if len(out) == 0 || !fileExists(s.commentsPath()) {
		return
	}
	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT variant_key, sample_id, COUNT(*) FROM read_parquet(%s) GROUP BY variant_key, sample_id",
		sqlPath(s.commentsPath())))
	if err != nil {
		s.logger.Warn("loading comment counts", zap.Error(err))
		return
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key, sample string
		var n int
		if err := rows.Scan(&key, &sample, &n); err != nil {
			s.logger.Warn("scanning comment count", zap.Error(err))
			return
		}
		counts[key+"\x00"+sample] = n
	}
	for i := range out {
		out[i].CommentCount = counts[out[i].VariantKey+"\x00"+out[i].Sample]
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
