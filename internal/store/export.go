package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/varscope/varscope/internal/variant"
)

// exportColumns is the fixed, documented column subset of a CSV export.
var exportColumns = []string{
	"CHROM", "POS", "REF", "ALT", "SAMPLE", "GT", "VAF", "gene",
	"consequence", "clinvar_sig", "clinvar_id", "clinvar_disease",
	"gnomad_af", "max_gnomad_af",
	"gnomad_af_afr", "gnomad_af_amr", "gnomad_af_asj", "gnomad_af_eas",
	"gnomad_af_fin", "gnomad_af_nfe", "gnomad_af_sas",
	"af_cgen", "ac_cgen", "an_cgen",
	"cadd_score", "review_status",
}

// ExportCSV serializes a filtered row-set to CSV, restricted to the fixed
// export column subset.
func ExportCSV(w io.Writer, rows []variant.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		record := []string{
			r.Chrom,
			strconv.FormatUint(r.Pos, 10),
			r.Ref,
			r.Alt,
			r.Sample,
			r.GT,
			formatFloat(r.VAF),
			r.Gene,
			r.Consequence,
			r.ClinvarSig,
			r.ClinvarID,
			r.ClinvarDisease,
			formatFloat(r.GnomadAF),
			formatFloat(r.MaxGnomadAF),
			formatFloat(r.GnomadAFAfr),
			formatFloat(r.GnomadAFAmr),
			formatFloat(r.GnomadAFAsj),
			formatFloat(r.GnomadAFEas),
			formatFloat(r.GnomadAFFin),
			formatFloat(r.GnomadAFNfe),
			formatFloat(r.GnomadAFSas),
			formatFloat(r.CohortAF),
			strconv.Itoa(r.CohortAC),
			strconv.Itoa(r.CohortAN),
			formatFloat(r.CADD),
			r.ReviewStatus,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
