package format

// consequenceSeverity ranks consequence terms from modifier (0) to most
// damaging (10). Both VEP and ANNOVAR spellings appear in ingested data.
var consequenceSeverity = map[string]int{
	"transcript_ablation":                10,
	"splice_acceptor_variant":            9,
	"splice_donor_variant":               9,
	"stop_gained":                        9,
	"stopgain":                           9,
	"frameshift_variant":                 9,
	"frameshift_deletion":                9,
	"frameshift_insertion":               9,
	"stop_lost":                          8,
	"start_lost":                         8,
	"transcript_amplification":           7,
	"inframe_insertion":                  6,
	"inframe_deletion":                   6,
	"missense_variant":                   5,
	"nonsynonymous_SNV":                  5,
	"protein_altering_variant":           5,
	"splice_region_variant":              4,
	"incomplete_terminal_codon_variant":  3,
	"start_retained_variant":             3,
	"stop_retained_variant":              3,
	"synonymous_variant":                 2,
	"synonymous_SNV":                     2,
	"coding_sequence_variant":            1,
}

// ConsequenceSeverity returns the ordinal severity of a consequence term;
// unknown terms rank 0.
func ConsequenceSeverity(consequence string) int {
	return consequenceSeverity[consequence]
}

// clinvarPriority ranks ClinVar significance categories for sorting, with
// Pathogenic highest.
var clinvarPriority = map[string]int{
	"Pathogenic":             10,
	"Likely pathogenic":      9,
	"Drug response":          8,
	"Risk factor":            7,
	"Association":            6,
	"Protective":             5,
	"Conflicting":            4,
	"VUS":                    3,
	"Uncertain significance": 3,
	"Likely benign":          2,
	"Benign":                 1,
}

// ClinvarPriority returns the ordinal priority of a ClinVar significance;
// unknown or empty categories rank 0.
func ClinvarPriority(significance string) int {
	return clinvarPriority[significance]
}
