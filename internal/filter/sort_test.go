package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varscope/varscope/internal/variant"
)

func TestSort_PositionChromosomeAware(t *testing.T) {
	rows := []variant.Row{
		row("S1", "X", 10, "0/1", "1101", "missense_variant", ""),
		row("S1", "2", 500, "0/1", "1101", "missense_variant", ""),
		row("S1", "MT", 1, "0/1", "1101", "missense_variant", ""),
		row("S1", "1", 900, "0/1", "1101", "missense_variant", ""),
		row("S1", "Y", 20, "0/1", "1101", "missense_variant", ""),
		row("S1", "1", 100, "0/1", "1101", "missense_variant", ""),
	}

	t.Run("ascending", func(t *testing.T) {
		out := Sort(rows, SortPosition, Ascending, testResolver)
		chroms := make([]string, len(out))
		for i, r := range out {
			chroms[i] = r.Chrom
		}
		assert.Equal(t, []string{"1", "1", "2", "X", "Y", "MT"}, chroms)
		assert.Equal(t, uint64(100), out[0].Pos)
		assert.Equal(t, uint64(900), out[1].Pos)
	})

	t.Run("descending keeps chromosome order, flips position", func(t *testing.T) {
		out := Sort(rows, SortPosition, Descending, testResolver)
		chroms := make([]string, len(out))
		for i, r := range out {
			chroms[i] = r.Chrom
		}
		// X and Y still come after all numeric chromosomes, MT last.
		assert.Equal(t, []string{"1", "1", "2", "X", "Y", "MT"}, chroms)
		assert.Equal(t, uint64(900), out[0].Pos)
		assert.Equal(t, uint64(100), out[1].Pos)
	})
}

func TestSort_GeneByResolvedSymbol(t *testing.T) {
	// Identifier "1" resolves to ZZZ, "2" to AAA: sorting ascending must
	// place identifier "2" first.
	rows := []variant.Row{
		row("S1", "1", 100, "0/1", "1", "missense_variant", ""),
		row("S1", "1", 200, "0/1", "2", "missense_variant", ""),
	}
	out := Sort(rows, SortGene, Ascending, testResolver)
	require.Len(t, out, 2)
	assert.Equal(t, "2", out[0].Gene)
	assert.Equal(t, "1", out[1].Gene)

	out = Sort(rows, SortGene, Descending, testResolver)
	assert.Equal(t, "1", out[0].Gene)
}

func TestSort_GeneMultiValueUsesFirstListed(t *testing.T) {
	rows := []variant.Row{
		row("S1", "1", 100, "0/1", "1,2", "missense_variant", ""), // ZZZ first
		row("S1", "1", 200, "0/1", "2,1", "missense_variant", ""), // AAA first
	}
	out := Sort(rows, SortGene, Ascending, testResolver)
	assert.Equal(t, "2,1", out[0].Gene)
}

func TestSort_Clinvar(t *testing.T) {
	rows := []variant.Row{
		row("S1", "1", 1, "0/1", "1101", "missense_variant", "Benign"),
		row("S1", "1", 2, "0/1", "1101", "missense_variant", "Pathogenic"),
		row("S1", "1", 3, "0/1", "1101", "missense_variant", "Uncertain significance"),
	}
	out := Sort(rows, SortClinvar, Descending, testResolver)
	assert.Equal(t, "Pathogenic", out[0].ClinvarSig)
	assert.Equal(t, "Benign", out[2].ClinvarSig)
}

func TestSort_PopFreqPrefersDerivedMax(t *testing.T) {
	a := row("S1", "1", 1, "0/1", "1101", "missense_variant", "")
	a.GnomadAF = 0.5 // general high, but derived max present and low
	a.MaxGnomadAF = 0.001
	b := row("S1", "1", 2, "0/1", "1101", "missense_variant", "")
	b.GnomadAF = 0.01 // no derived max: falls back to general

	out := Sort([]variant.Row{a, b}, SortPopFreq, Ascending, testResolver)
	assert.Equal(t, uint64(1), out[0].Pos)
}

func TestSort_StableOnTies(t *testing.T) {
	rows := []variant.Row{
		row("S3", "1", 100, "0/1", "1101", "missense_variant", ""),
		row("S1", "1", 100, "0/1", "1101", "missense_variant", ""),
		row("S2", "1", 100, "0/1", "1101", "missense_variant", ""),
	}
	out := Sort(rows, SortPosition, Ascending, testResolver)
	samples := []string{out[0].Sample, out[1].Sample, out[2].Sample}
	// All tie on (chrom, pos): original relative order preserved.
	assert.Equal(t, []string{"S3", "S1", "S2"}, samples)
}

func TestSort_UnknownColumnLeavesOrder(t *testing.T) {
	rows := testRows()
	out := Sort(rows, "bogus", Ascending, testResolver)
	assert.Equal(t, rows, out)
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	rows := testRows()
	first := rows[0].Sample
	Sort(rows, SortSample, Descending, testResolver)
	assert.Equal(t, first, rows[0].Sample)
}

func TestNextDirection(t *testing.T) {
	assert.Equal(t, Descending, NextDirection("position", "position", Ascending))
	assert.Equal(t, Ascending, NextDirection("position", "position", Descending))
	// A different column resets to ascending.
	assert.Equal(t, Ascending, NextDirection("position", "gene", Descending))
}

func TestChromRank(t *testing.T) {
	assert.Less(t, ChromRank("22"), ChromRank("X"))
	assert.Less(t, ChromRank("X"), ChromRank("Y"))
	assert.Less(t, ChromRank("Y"), ChromRank("MT"))
	assert.Equal(t, 1, ChromRank("chr1"))
	assert.Equal(t, 26, ChromRank("weird"))
}
