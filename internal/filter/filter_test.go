package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varscope/varscope/internal/variant"
)

// fakeResolver is a fixed id→symbol mapping for engine tests.
type fakeResolver map[string]string

func (f fakeResolver) Symbol(id string) string {
	if s, ok := f[id]; ok {
		return s
	}
	return id
}

func (f fakeResolver) Search(term string) (ids, symbols []string) {
	lower := strings.ToLower(term)
	// Deterministic order: iterate a fixed id list.
	for _, id := range []string{"1", "2", "123", "456", "1100", "1101"} {
		if s, ok := f[id]; ok && strings.Contains(strings.ToLower(s), lower) {
			ids = append(ids, id)
			symbols = append(symbols, s)
		}
	}
	return ids, symbols
}

func (f fakeResolver) IDsForSymbols(symbols []string) []string {
	reverse := make(map[string]string)
	for id, s := range f {
		reverse[strings.ToUpper(s)] = id
	}
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if id, ok := reverse[strings.ToUpper(s)]; ok {
			out = append(out, id)
		} else {
			out = append(out, s)
		}
	}
	return out
}

var testResolver = fakeResolver{
	"1":    "ZZZ",
	"2":    "AAA",
	"123":  "MLH1",
	"456":  "MSH2",
	"1100": "CHEK2",
	"1101": "BRCA1",
}

func row(sample, chrom string, pos uint64, gt, gene, consequence, clinvar string) variant.Row {
	return variant.Row{
		Chrom: chrom, Pos: pos, Ref: "A", Alt: "T",
		Sample: sample, GT: gt, Gene: gene,
		Consequence: consequence, ClinvarSig: clinvar,
		ReviewStatus: variant.StatusPending,
		VariantKey:   variant.Key(chrom, pos, "A", "T"),
	}
}

func testRows() []variant.Row {
	return []variant.Row{
		row("S1", "1", 100, "0/1", "1101", "missense_variant", "Pathogenic"),
		row("S1", "1", 200, "1/1", "1100", "stop_gained", ""),
		row("S1", "X", 300, "0|1", "123,456", "synonymous_variant", "Benign"),
		row("S2", "1", 100, "0/1", "1101", "missense_variant", "Pathogenic"),
		row("S2", "2", 400, "0/0", "456", "frameshift_variant", "Likely pathogenic"),
		row("S2", "Y", 500, "1|0", "2", "stop_lost", "Uncertain significance"),
	}
}

func TestApply_SampleRestriction(t *testing.T) {
	out := Apply(testRows(), Params{Samples: []string{"S1"}}, testResolver)
	require.Len(t, out, 3)
	for _, r := range out {
		assert.Equal(t, "S1", r.Sample)
	}
}

func TestApply_ChromosomeFilter(t *testing.T) {
	out := Apply(testRows(), Params{Chromosome: "1"}, testResolver)
	require.Len(t, out, 3)
	for _, r := range out {
		assert.Equal(t, "1", r.Chrom)
	}

	// "all" and "chr" prefixes are both tolerated.
	assert.Len(t, Apply(testRows(), Params{Chromosome: "all"}, testResolver), 6)
	assert.Len(t, Apply(testRows(), Params{Chromosome: "chr1"}, testResolver), 3)
}

func TestApply_GenotypeClass(t *testing.T) {
	out := Apply(testRows(), Params{Genotype: variant.Heterozygous}, testResolver)
	require.NotEmpty(t, out)
	for _, r := range out {
		norm := strings.ReplaceAll(r.GT, "|", "/")
		assert.Contains(t, []string{"0/1", "1/0"}, norm)
	}
	// Both phasing notations are covered.
	assert.Len(t, out, 4)

	out = Apply(testRows(), Params{Genotype: variant.HomozygousAlt}, testResolver)
	require.Len(t, out, 1)
	assert.Equal(t, "1/1", out[0].GT)
}

func TestApply_Search(t *testing.T) {
	rows := testRows()

	t.Run("sample", func(t *testing.T) {
		out := Apply(rows, Params{Search: "s2"}, testResolver)
		assert.Len(t, out, 3)
	})

	t.Run("consequence", func(t *testing.T) {
		out := Apply(rows, Params{Search: "frameshift"}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, "frameshift_variant", out[0].Consequence)
	})

	t.Run("chromosome with prefix stripped", func(t *testing.T) {
		out := Apply(rows, Params{Search: "chrX"}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, "X", out[0].Chrom)
	})

	t.Run("exact position for integer terms", func(t *testing.T) {
		out := Apply(rows, Params{Search: "400"}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, uint64(400), out[0].Pos)
	})

	t.Run("chrom:pos pattern", func(t *testing.T) {
		out := Apply(rows, Params{Search: "1:200"}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, uint64(200), out[0].Pos)
	})

	t.Run("gene symbol expands through resolver", func(t *testing.T) {
		// BRCA1 is stored as identifier 1101.
		out := Apply(rows, Params{Search: "brca"}, testResolver)
		require.Len(t, out, 2)
		for _, r := range out {
			assert.Equal(t, "1101", r.Gene)
		}
	})

	t.Run("symbol matches inside multi-gene fields", func(t *testing.T) {
		// MSH2 is identifier 456, present in "123,456" and "456".
		out := Apply(rows, Params{Search: "msh2"}, testResolver)
		assert.Len(t, out, 2)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, Apply(rows, Params{Search: "zzzznope"}, testResolver))
	})
}

func TestApply_Presets(t *testing.T) {
	rows := testRows()

	t.Run("high impact", func(t *testing.T) {
		out := Apply(rows, Params{Presets: map[string]bool{PresetHighImpact: true}}, testResolver)
		require.Len(t, out, 3)
		for _, r := range out {
			assert.Contains(t, []string{"stop_gained", "stop_lost", "frameshift_variant"}, r.Consequence)
		}
	})

	t.Run("pathogenic", func(t *testing.T) {
		out := Apply(rows, Params{Presets: map[string]bool{PresetPathogenic: true}}, testResolver)
		require.Len(t, out, 3)
		for _, r := range out {
			assert.Contains(t, []string{"Pathogenic", "Likely pathogenic"}, r.ClinvarSig)
		}
	})

	t.Run("presets AND-combine", func(t *testing.T) {
		out := Apply(rows, Params{Presets: map[string]bool{
			PresetHighImpact: true,
			PresetPathogenic: true,
		}}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, "frameshift_variant", out[0].Consequence)
	})

	t.Run("het and hom presets are independent of the genotype filter", func(t *testing.T) {
		out := Apply(rows, Params{
			Genotype: variant.Heterozygous,
			Presets:  map[string]bool{PresetHeterozygous: true},
		}, testResolver)
		assert.Len(t, out, 4)
	})

	t.Run("rare uses max population frequency", func(t *testing.T) {
		rare := row("S1", "1", 1, "0/1", "1101", "missense_variant", "")
		rare.GnomadAF = 0.0002
		common := row("S1", "1", 2, "0/1", "1101", "missense_variant", "")
		common.GnomadAF = 0.0002
		common.GnomadAFNfe = 0.02 // rare overall, common in one population

		out := Apply([]variant.Row{rare, common}, Params{Presets: map[string]bool{PresetRare: true}}, testResolver)
		require.Len(t, out, 1)
		assert.Equal(t, uint64(1), out[0].Pos)
	})

	t.Run("clinvar annotated", func(t *testing.T) {
		out := Apply(rows, Params{Presets: map[string]bool{PresetClinvarAnnotated: true}}, testResolver)
		assert.Len(t, out, 5)
	})
}

func TestApply_Idempotent(t *testing.T) {
	params := Params{
		Samples:  []string{"S1", "S2"},
		Genotype: variant.Heterozygous,
		Search:   "1",
		Presets:  map[string]bool{PresetClinvarAnnotated: true},
	}
	once := Apply(testRows(), params, testResolver)
	twice := Apply(once, params, testResolver)
	assert.Equal(t, once, twice)
}

func TestApply_EmptyInput(t *testing.T) {
	out := Apply(nil, Params{Samples: []string{"S1"}, Search: "x"}, testResolver)
	assert.Empty(t, out)
}

func TestFilterVAF(t *testing.T) {
	rows := testRows()
	for i := range rows {
		rows[i].VAF = float64(i) / 10 // 0.0 .. 0.5
	}
	out := FilterVAF(rows, 0.1, 0.3)
	require.Len(t, out, 3)
	for _, r := range out {
		assert.GreaterOrEqual(t, r.VAF, 0.1)
		assert.LessOrEqual(t, r.VAF, 0.3)
	}

	// Bounds are inclusive.
	out = FilterVAF(rows, 0.0, 0.5)
	assert.Len(t, out, 6)
}

func TestFilterByPanelGenes(t *testing.T) {
	multi := row("S1", "1", 100, "0/1", "123,456", "missense_variant", "")

	t.Run("token-exact match retains", func(t *testing.T) {
		out := FilterByPanelGenes([]variant.Row{multi}, []string{"456"}, testResolver)
		assert.Len(t, out, 1)
	})

	t.Run("substring does not match", func(t *testing.T) {
		// "12" must not match inside "123".
		out := FilterByPanelGenes([]variant.Row{multi}, []string{"12"}, testResolver)
		assert.Empty(t, out)
	})

	t.Run("panel symbols resolve to identifiers", func(t *testing.T) {
		out := FilterByPanelGenes([]variant.Row{multi}, []string{"MSH2"}, testResolver)
		assert.Len(t, out, 1)
	})

	t.Run("empty panel set is a no-op", func(t *testing.T) {
		out := FilterByPanelGenes([]variant.Row{multi}, nil, testResolver)
		assert.Len(t, out, 1)
	})
}
