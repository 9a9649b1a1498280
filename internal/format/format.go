// Package format converts numeric annotation fields into display strings
// and semantic buckets.
package format

import (
	"fmt"
	"math"
)

// NotAvailable is the placeholder for unset numeric annotations.
const NotAvailable = "N/A"

// Frequency formats an allele frequency with precision scaled to its
// magnitude: scientific notation for the very rare, fixed point otherwise.
func Frequency(f float64) string {
	if math.IsNaN(f) || f == 0 {
		return NotAvailable
	}
	switch {
	case f < 0.00001:
		return fmt.Sprintf("%.2e", f)
	case f < 0.0001:
		return fmt.Sprintf("%.1e", f)
	case f < 0.001:
		return fmt.Sprintf("%.5f", f)
	case f < 0.01:
		return fmt.Sprintf("%.4f", f)
	case f < 0.1:
		return fmt.Sprintf("%.3f", f)
	default:
		return fmt.Sprintf("%.2f", f)
	}
}

// FrequencyBucket is a semantic rarity class for a population frequency.
type FrequencyBucket string

const (
	BucketNone     FrequencyBucket = "none"      // unset
	BucketVeryRare FrequencyBucket = "very_rare" // < 0.1%
	BucketRare     FrequencyBucket = "rare"      // 0.1% - 1%
	BucketUncommon FrequencyBucket = "uncommon"  // 1% - 5%
	BucketCommon   FrequencyBucket = "common"    // >= 5%
)

// Bucket classifies a population frequency into its rarity bucket.
func Bucket(f float64) FrequencyBucket {
	if math.IsNaN(f) || f == 0 {
		return BucketNone
	}
	switch {
	case f < 0.001:
		return BucketVeryRare
	case f < 0.01:
		return BucketRare
	case f < 0.05:
		return BucketUncommon
	default:
		return BucketCommon
	}
}

// Percent formats a fraction as a percentage with one decimal.
func Percent(f float64) string {
	if math.IsNaN(f) || f == 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", f*100)
}

// Score formats an in-silico pathogenicity score for display.
func Score(f float64) string {
	if math.IsNaN(f) || f == 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.3f", f)
}
