// Package filter narrows and orders variant row-sets from declarative
// parameter sets. All operations are pure and deterministic: fixed inputs
// always produce the same membership and order.
package filter

import (
	"strconv"
	"strings"

	"github.com/varscope/varscope/internal/variant"
)

// Preset filter identifiers. Any subset may be active at once; active
// presets are AND-combined.
const (
	PresetRare             = "rare"
	PresetHighImpact       = "high_impact"
	PresetClinvarAnnotated = "clinvar_annotated"
	PresetPathogenic       = "pathogenic"
	PresetBenign           = "benign"
	PresetVUS              = "vus"
	PresetReviewed         = "reviewed"
	PresetPending          = "pending"
	PresetHeterozygous     = "heterozygous"
	PresetHomozygous       = "homozygous"
)

// rareThreshold is the max-population allele frequency below which a
// variant counts as rare.
const rareThreshold = 0.001

// highImpactConsequences is the fixed high-severity consequence set for the
// high-impact preset.
var highImpactConsequences = map[string]bool{
	"frameshift_variant":   true,
	"frameshift_insertion": true,
	"frameshift_deletion":  true,
	"stop_gained":          true,
	"stopgain":             true,
	"stop_lost":            true,
}

// GeneResolver is the resolver surface the engine needs for symbol-aware
// gene matching.
type GeneResolver interface {
	Symbol(id string) string
	Search(term string) (ids, symbols []string)
	IDsForSymbols(symbols []string) []string
}

// Params is the declarative filter parameter set for one request. It is
// transient UI state, reconstructed per request and never persisted.
type Params struct {
	Search     string
	Genotype   variant.GenotypeClass // empty or "all" means no restriction
	Chromosome string                // empty or "all" means no restriction
	Presets    map[string]bool
	Samples    []string
}

// Apply narrows rows by the parameter set, in fixed order: sample
// restriction, chromosome, genotype class, free-text search, then presets.
// The input slice is never mutated.
func Apply(rows []variant.Row, p Params, resolver GeneResolver) []variant.Row {
	out := rows

	if len(p.Samples) > 0 {
		want := make(map[string]bool, len(p.Samples))
		for _, s := range p.Samples {
			want[s] = true
		}
		out = keep(out, func(r *variant.Row) bool { return want[r.Sample] })
	}

	if p.Chromosome != "" && p.Chromosome != "all" {
		chrom := variant.NormalizeChrom(p.Chromosome)
		out = keep(out, func(r *variant.Row) bool {
			return variant.NormalizeChrom(r.Chrom) == chrom
		})
	}

	if p.Genotype != "" && p.Genotype != "all" {
		want := genotypeSet(p.Genotype)
		if want != nil {
			out = keep(out, func(r *variant.Row) bool { return want[r.GT] })
		}
	}

	if term := strings.TrimSpace(p.Search); term != "" {
		m := newSearchMatcher(term, resolver)
		out = keep(out, m.matches)
	}

	for _, preset := range activePresets(p.Presets) {
		pred := presetPredicate(preset)
		if pred != nil {
			out = keep(out, pred)
		}
	}

	return out
}

// FilterVAF retains rows whose VAF lies within [lo, hi], inclusive. It is
// applied separately from Apply because it comes from a range-slider
// control rather than the preset set.
func FilterVAF(rows []variant.Row, lo, hi float64) []variant.Row {
	return keep(rows, func(r *variant.Row) bool {
		return r.VAF >= lo && r.VAF <= hi
	})
}

// FilterByPanelGenes retains rows whose gene field contains at least one of
// the panel's genes. Panel genes may be symbols or identifiers; symbols are
// resolved through the reverse lookup. Matching is token-exact on the split
// gene field, never substring, so gene "12" cannot match inside "123".
func FilterByPanelGenes(rows []variant.Row, panelGenes []string, resolver GeneResolver) []variant.Row {
	if len(panelGenes) == 0 {
		return rows
	}

	ids := panelGenes
	if resolver != nil {
		ids = resolver.IDsForSymbols(panelGenes)
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[strings.ToUpper(id)] = true
	}

	return keep(rows, func(r *variant.Row) bool {
		for _, g := range variant.SplitGenes(r.Gene) {
			if want[strings.ToUpper(g)] {
				return true
			}
		}
		return false
	})
}

// keep returns the rows satisfying pred, preserving input order.
func keep(rows []variant.Row, pred func(*variant.Row) bool) []variant.Row {
	out := make([]variant.Row, 0, len(rows))
	for i := range rows {
		if pred(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

func genotypeSet(class variant.GenotypeClass) map[string]bool {
	gts := variant.GenotypesForClass(class)
	if gts == nil {
		return nil
	}
	set := make(map[string]bool, len(gts))
	for _, gt := range gts {
		set[gt] = true
	}
	return set
}

// activePresets returns the enabled preset names in a fixed order so that
// map iteration order can never influence the result.
func activePresets(presets map[string]bool) []string {
	all := []string{
		PresetRare, PresetHighImpact, PresetClinvarAnnotated,
		PresetPathogenic, PresetBenign, PresetVUS,
		PresetReviewed, PresetPending,
		PresetHeterozygous, PresetHomozygous,
	}
	var active []string
	for _, name := range all {
		if presets[name] {
			active = append(active, name)
		}
	}
	return active
}

func presetPredicate(name string) func(*variant.Row) bool {
	switch name {
	case PresetRare:
		return func(r *variant.Row) bool { return maxAF(r) < rareThreshold }
	case PresetHighImpact:
		return func(r *variant.Row) bool { return highImpactConsequences[r.Consequence] }
	case PresetClinvarAnnotated:
		return func(r *variant.Row) bool { return r.ClinvarSig != "" }
	case PresetPathogenic:
		return func(r *variant.Row) bool {
			return r.ClinvarSig == "Pathogenic" || r.ClinvarSig == "Likely pathogenic"
		}
	case PresetBenign:
		return func(r *variant.Row) bool {
			return r.ClinvarSig == "Benign" || r.ClinvarSig == "Likely benign"
		}
	case PresetVUS:
		return func(r *variant.Row) bool {
			return r.ClinvarSig == "VUS" || r.ClinvarSig == "Uncertain significance"
		}
	case PresetReviewed:
		return func(r *variant.Row) bool { return r.ReviewStatus == variant.StatusReviewed }
	case PresetPending:
		return func(r *variant.Row) bool { return r.ReviewStatus == variant.StatusPending }
	case PresetHeterozygous:
		want := genotypeSet(variant.Heterozygous)
		return func(r *variant.Row) bool { return want[r.GT] }
	case PresetHomozygous:
		want := genotypeSet(variant.HomozygousAlt)
		return func(r *variant.Row) bool { return want[r.GT] }
	default:
		return nil
	}
}

// maxAF returns the derived max-population frequency, computing it when the
// dataset did not carry the column.
func maxAF(r *variant.Row) float64 {
	if r.MaxGnomadAF > 0 {
		return r.MaxGnomadAF
	}
	return variant.MaxPopulationAF(r)
}

// searchMatcher implements the free-text search contract: case-insensitive
// substring, OR-combined across sample, consequence, chromosome, position,
// chrom:pos, and the symbol-expanded gene field.
type searchMatcher struct {
	term     string
	posTerm  uint64 // set when the term is a pure integer
	isPos    bool
	geneIDs  map[string]bool // identifiers whose symbol matches the term
	resolver GeneResolver
}

func newSearchMatcher(term string, resolver GeneResolver) *searchMatcher {
	m := &searchMatcher{
		term:     strings.ToLower(term),
		resolver: resolver,
		geneIDs:  make(map[string]bool),
	}
	if pos, err := strconv.ParseUint(m.term, 10, 64); err == nil {
		m.posTerm = pos
		m.isPos = true
	}
	if resolver != nil {
		ids, _ := resolver.Search(term)
		for _, id := range ids {
			m.geneIDs[strings.ToUpper(id)] = true
		}
	}
	return m
}

func (m *searchMatcher) matches(r *variant.Row) bool {
	if strings.Contains(strings.ToLower(r.Sample), m.term) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Consequence), m.term) {
		return true
	}
	chrom := strings.ToLower(variant.NormalizeChrom(r.Chrom))
	if strings.Contains(chrom, strings.TrimPrefix(m.term, "chr")) {
		return true
	}
	if m.isPos && r.Pos == m.posTerm {
		return true
	}
	if strings.Contains(m.term, ":") {
		chromPos := chrom + ":" + strconv.FormatUint(r.Pos, 10)
		if strings.Contains(chromPos, strings.TrimPrefix(m.term, "chr")) {
			return true
		}
	}
	return m.matchesGene(r.Gene)
}



// matchesGene reports whether any identifier in a (possibly multi-valued)
// gene field matches the term directly or through its resolved symbol.
func (m *searchMatcher) matchesGene(field string) bool {
	for _, id := range variant.SplitGenes(field) {
		if strings.Contains(strings.ToLower(id), m.term) {
			return true
		}
		if m.geneIDs[strings.ToUpper(id)] {
			return true
		}
		if m.resolver != nil &&
			strings.Contains(strings.ToLower(m.resolver.Symbol(id)), m.term) {
			return true
		}
	}
	return false
}
