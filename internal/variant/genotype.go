package variant

import "strings"

// GenotypeClass is a coarse classification of a genotype string.
type GenotypeClass string

const (
	Heterozygous  GenotypeClass = "het"
	HomozygousAlt GenotypeClass = "hom_alt"
	HomozygousRef GenotypeClass = "hom_ref"
	Missing       GenotypeClass = "missing"
)

// ClassifyGenotype maps a genotype string to its class, treating phased
// ("|") and unphased ("/") notations identically.
func ClassifyGenotype(gt string) GenotypeClass {
	switch strings.ReplaceAll(gt, "|", "/") {
	case "0/1", "1/0":
		return Heterozygous
	case "1/1":
		return HomozygousAlt
	case "0/0":
		return HomozygousRef
	default:
		return Missing
	}
}

// GenotypesForClass returns the literal genotype strings satisfying a class,
// covering both phasing notations. Unknown classes return nil.
func GenotypesForClass(class GenotypeClass) []string {
	switch class {
	case Heterozygous:
		return []string{"0/1", "1/0", "0|1", "1|0"}
	case HomozygousAlt:
		return []string{"1/1", "1|1"}
	case HomozygousRef:
		return []string{"0/0", "0|0"}
	default:
		return nil
	}
}
