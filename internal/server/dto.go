package server

import (
	"strings"

	"github.com/varscope/varscope/internal/filter"
	"github.com/varscope/varscope/internal/format"
	"github.com/varscope/varscope/internal/variant"
)

// variantDTO is one table row as the client renders it: raw values for
// sorting plus display-ready strings and frequency buckets.
type variantDTO struct {
	Key          string `json:"key"`
	Chrom        string `json:"chrom"`
	Pos          uint64 `json:"pos"`
	Ref          string `json:"ref"`
	Alt          string `json:"alt"`
	Sample       string `json:"sample"`
	Genotype     string `json:"genotype"`
	VAF          string `json:"vaf"`
	Depth        int    `json:"depth"`
	GQ           string `json:"gq"`
	Gene         string `json:"gene"`
	GeneSymbols  string `json:"gene_symbols"`
	Consequence  string `json:"consequence"`
	Clinvar      string `json:"clinvar"`
	ClinvarID    string `json:"clinvar_id"`
	Disease      string `json:"disease"`
	GnomadAF     string `json:"gnomad_af"`
	MaxPopAF     string `json:"max_pop_af"`
	FreqBucket   string `json:"freq_bucket"`
	CohortAF     string `json:"cohort_af"`
	CADD         string `json:"cadd"`
	ReviewStatus string `json:"review_status"`
	CommentCount int    `json:"comment_count"`
}

type variantsResponse struct {
	Variants  []variantDTO `json:"variants"`
	Total     int          `json:"total"`
	Truncated bool         `json:"truncated"`
	Message   string       `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toDTO(r *variant.Row, genes filter.GeneResolver) variantDTO {
	maxAF := r.MaxGnomadAF
	if maxAF == 0 {
		maxAF = variant.MaxPopulationAF(r)
	}
	status := r.ReviewStatus
	if status == "" {
		status = variant.StatusPending
	}
	return variantDTO{
		Key:          r.VariantKey,
		Chrom:        r.Chrom,
		Pos:          r.Pos,
		Ref:          r.Ref,
		Alt:          r.Alt,
		Sample:       r.Sample,
		Genotype:     r.GT,
		VAF:          format.Percent(r.VAF),
		Depth:        r.DP,
		GQ:           format.Score(r.GQ),
		Gene:         r.Gene,
		GeneSymbols:  resolveSymbols(r.Gene, genes),
		Consequence:  r.Consequence,
		Clinvar:      r.ClinvarSig,
		ClinvarID:    r.ClinvarID,
		Disease:      r.ClinvarDisease,
		GnomadAF:     format.Frequency(r.GnomadAF),
		MaxPopAF:     format.Frequency(maxAF),
		FreqBucket:   string(format.Bucket(maxAF)),
		CohortAF:     format.Frequency(r.CohortAF),
		CADD:         format.Score(r.CADD),
		ReviewStatus: status,
		CommentCount: r.CommentCount,
	}
}

// resolveSymbols maps every gene id in the field to its symbol, keeping
// the field's own order.
func resolveSymbols(field string, genes filter.GeneResolver) string {
	ids := variant.SplitGenes(field)
	if len(ids) == 0 {
		return ""
	}
	symbols := make([]string, 0, len(ids))
	for _, id := range ids {
		symbols = append(symbols, genes.Symbol(id))
	}
	return strings.Join(symbols, ", ")
}

func toDTOs(rows []variant.Row, genes filter.GeneResolver) []variantDTO {
	out := make([]variantDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i], genes))
	}
	return out
}
