package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeChrom strips a leading "chr" prefix, case-insensitively.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}

// Key builds the CHROM:POS:REF:ALT join key for a variant. The chromosome
// is prefix-normalized so keys are stable across naming conventions.
func Key(chrom string, pos uint64, ref, alt string) string {
	return fmt.Sprintf("%s:%d:%s:%s", NormalizeChrom(chrom), pos, ref, alt)
}

// ParseKey splits a variant key back into its components.
func ParseKey(key string) (chrom string, pos uint64, ref, alt string, err error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return "", 0, "", "", fmt.Errorf("malformed variant key %q", key)
	}
	pos, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", "", fmt.Errorf("malformed position in variant key %q", key)
	}
	return parts[0], pos, parts[2], parts[3], nil
}
