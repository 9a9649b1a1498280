package filter

import (
	"sort"
	"strconv"
	"strings"

	"github.com/varscope/varscope/internal/format"
	"github.com/varscope/varscope/internal/variant"
)

// Sort columns.
const (
	SortSample      = "sample"
	SortPosition    = "position"
	SortGene        = "gene"
	SortGenotype    = "genotype"
	SortConsequence = "consequence"
	SortClinvar     = "clinvar"
	SortVAF         = "vaf"
	SortPopFreq     = "popfreq"
)

// Sort directions.
const (
	Ascending  = "asc"
	Descending = "desc"
)

// NextDirection implements the sort-toggle contract: clicking the active
// column flips direction, clicking a different column resets to ascending.
func NextDirection(activeColumn, clickedColumn, direction string) string {
	if activeColumn != clickedColumn {
		return Ascending
	}
	if direction == Ascending {
		return Descending
	}
	return Ascending
}

// Sort orders rows by a single column. The sort is stable: ties preserve
// the original relative order. The input slice is not mutated.
func Sort(rows []variant.Row, column, direction string, resolver GeneResolver) []variant.Row {
	out := make([]variant.Row, len(rows))
	copy(out, rows)

	// Position sorting is chromosome-aware: chromosome order is fixed
	// (1-22, X, Y, MT) and direction applies to position within it.
	if column == SortPosition {
		desc := direction == Descending
		sort.SliceStable(out, func(i, j int) bool {
			ra, rb := ChromRank(out[i].Chrom), ChromRank(out[j].Chrom)
			if ra != rb {
				return ra < rb
			}
			if desc {
				return out[i].Pos > out[j].Pos
			}
			return out[i].Pos < out[j].Pos
		})
		return out
	}

	less := lessFunc(column, resolver)
	if less == nil {
		return out
	}
	if direction == Descending {
		asc := less
		less = func(a, b *variant.Row) bool { return asc(b, a) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func lessFunc(column string, resolver GeneResolver) func(a, b *variant.Row) bool {
	switch column {
	case SortSample:
		return func(a, b *variant.Row) bool { return a.Sample < b.Sample }
	case SortGene:
		return func(a, b *variant.Row) bool {
			return firstGeneSymbol(a.Gene, resolver) < firstGeneSymbol(b.Gene, resolver)
		}
	case SortGenotype:
		return func(a, b *variant.Row) bool { return a.GT < b.GT }
	case SortConsequence:
		return func(a, b *variant.Row) bool {
			sa, sb := format.ConsequenceSeverity(a.Consequence), format.ConsequenceSeverity(b.Consequence)
			if sa != sb {
				return sa < sb
			}
			return a.Consequence < b.Consequence
		}
	case SortClinvar:
		return func(a, b *variant.Row) bool {
			pa, pb := format.ClinvarPriority(a.ClinvarSig), format.ClinvarPriority(b.ClinvarSig)
			if pa != pb {
				return pa < pb
			}
			return a.ClinvarSig < b.ClinvarSig
		}
	case SortVAF:
		return func(a, b *variant.Row) bool { return a.VAF < b.VAF }
	case SortPopFreq:
		return func(a, b *variant.Row) bool { return maxAF(a) < maxAF(b) }
	default:
		return nil
	}
}

// ChromRank orders chromosomes for position sorting: 1-22 numerically, then
// X (23), Y (24), MT (25). Anything else sorts last.
func ChromRank(chrom string) int {
	switch c := variant.NormalizeChrom(chrom); strings.ToUpper(c) {
	case "X":
		return 23
	case "Y":
		return 24
	case "MT", "M":
		return 25
	default:
		if n, err := strconv.Atoi(c); err == nil && n >= 1 && n <= 22 {
			return n
		}
		return 26
	}
}

// firstGeneSymbol resolves the first listed gene identifier of a row to its
// display symbol, the key the gene sort orders by.
func firstGeneSymbol(field string, resolver GeneResolver) string {
	genes := variant.SplitGenes(field)
	if len(genes) == 0 {
		return ""
	}
	if resolver == nil {
		return strings.ToUpper(genes[0])
	}
	return strings.ToUpper(resolver.Symbol(genes[0]))
}
