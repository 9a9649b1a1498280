// Package variant defines the typed records for variant rows and comments.
package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// Review status values for a variant row.
const (
	StatusPending  = "Pending"
	StatusReviewed = "Reviewed"
)

// Row is one variant observation: a (chromosome, position, ref, alt) change
// seen in one sample, with its annotations. Rows are written in bulk by the
// ingestion pipeline; only ReviewStatus is ever mutated afterwards.
type Row struct {
	Chrom  string
	Pos    uint64
	Ref    string
	Alt    string
	Sample string

	GT  string
	DP  int
	VAF float64
	GQ  float64

	// Gene holds one or more HGNC identifiers, delimiter-joined.
	Gene        string
	Consequence string

	ClinvarSig     string
	ClinvarID      string
	ClinvarDisease string

	GnomadAF    float64
	GnomadAFAfr float64
	GnomadAFAmr float64
	GnomadAFAsj float64
	GnomadAFEas float64
	GnomadAFFin float64
	GnomadAFNfe float64
	GnomadAFSas float64
	// MaxGnomadAF is the maximum across curated subpopulations,
	// derived at load time when the dataset does not carry it.
	MaxGnomadAF float64

	// In-house cohort frequency.
	CohortAF float64
	CohortAC int
	CohortAN int

	CADD      float64
	SIFT      float64
	PolyPhen  float64
	REVEL     float64
	SpliceAI  float64
	PLI       float64
	PrimateAI float64

	ReviewStatus string
	VariantKey   string

	// CommentCount is joined from the comments dataset for small result
	// sets; zero otherwise.
	CommentCount int
}

// Comment is one entry in the append-only comment log for a variant+sample.
type Comment struct {
	ID          int64
	VariantKey  string
	SampleID    string
	UserName    string
	CommentText string
	Timestamp   string
}

// geneDelimiters are the separators tolerated in multi-gene fields.
const geneDelimiters = ",;|/&•·"

// SplitGenes splits a possibly multi-valued gene field into individual
// identifiers, trimming whitespace and dropping empties.
func SplitGenes(field string) []string {
	if field == "" {
		return nil
	}
	parts := strings.FieldsFunc(field, func(r rune) bool {
		return strings.ContainsRune(geneDelimiters, r)
	})
	genes := parts[:0]
	for _, p := range parts {
		if g := strings.TrimSpace(p); g != "" {
			genes = append(genes, g)
		}
	}
	return genes
}

// MaxPopulationAF returns the maximum allele frequency across the curated
// gnomAD subpopulations (ASJ and FIN excluded), falling back to the general
// frequency when no subpopulation value is set.
func MaxPopulationAF(r *Row) float64 {
	max := 0.0
	for _, af := range []float64{r.GnomadAFAfr, r.GnomadAFAmr, r.GnomadAFEas, r.GnomadAFNfe, r.GnomadAFSas} {
		if af > max {
			max = af
		}
	}
	if max == 0 {
		return r.GnomadAF
	}
	return max
}

// validChroms covers the human chromosome set accepted at ingestion.
var validChroms = buildValidChroms()

func buildValidChroms() map[string]bool {
	m := map[string]bool{"X": true, "Y": true, "MT": true}
	for i := 1; i <= 22; i++ {
		m[strconv.Itoa(i)] = true
	}
	return m
}

// Validate checks the fields required for a row to be usable.
func Validate(r *Row) error {
	if !validChroms[NormalizeChrom(r.Chrom)] {
		return fmt.Errorf("invalid chromosome %q", r.Chrom)
	}
	if r.Pos == 0 {
		return fmt.Errorf("position must be positive")
	}
	if r.Ref == "" || r.Alt == "" {
		return fmt.Errorf("ref and alt alleles cannot be empty")
	}
	if r.Sample == "" {
		return fmt.Errorf("sample identifier cannot be empty")
	}
	return nil
}
