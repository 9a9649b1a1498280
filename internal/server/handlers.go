package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo"
	"go.uber.org/zap"

	"github.com/varscope/varscope/internal/filter"
	"github.com/varscope/varscope/internal/store"
	"github.com/varscope/varscope/internal/variant"
)

func (s *Server) handleSamples(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"samples": s.store.ListSamples(),
	})
}

// variantQuery is everything the variants and export handlers share:
// sample selection, pushdown chromosome, the in-memory filter parameters,
// panel restriction and sorting.
type variantQuery struct {
	samples   []string
	params    filter.Params
	panelIDs  []string
	highConf  bool
	vafLo     float64
	vafHi     float64
	vafSet    bool
	sortCol   string
	sortDir   string
	loadLimit int
}

func parseVariantQuery(c echo.Context) (variantQuery, error) {
	q := variantQuery{
		samples:  splitParam(c.QueryParam("samples")),
		panelIDs: splitParam(c.QueryParam("panels")),
		highConf: c.QueryParam("high_confidence") == "true",
		sortCol:  c.QueryParam("sort"),
		sortDir:  c.QueryParam("dir"),
		vafLo:    0,
		vafHi:    1,
	}
	q.params = filter.Params{
		Search:     c.QueryParam("search"),
		Genotype:   variant.GenotypeClass(c.QueryParam("genotype")),
		Chromosome: c.QueryParam("chrom"),
		Presets:    presetMap(splitParam(c.QueryParam("presets"))),
		Samples:    q.samples,
	}
	if q.sortDir == "" {
		q.sortDir = filter.Ascending
	}
	if v := c.QueryParam("vaf_lo"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "invalid vaf_lo")
		}
		q.vafLo, q.vafSet = f, true
	}
	if v := c.QueryParam("vaf_hi"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, echo.NewHTTPError(http.StatusBadRequest, "invalid vaf_hi")
		}
		q.vafHi, q.vafSet = f, true
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		q.loadLimit = n
	}
	return q, nil
}

// filteredRows runs the full pipeline: bounded columnar load with sample
// and chromosome pushdown, in-memory filters, panel restriction, VAF
// range, then sorting.
func (s *Server) filteredRows(q variantQuery) []variant.Row {
	var chroms []string
	if ch := q.params.Chromosome; ch != "" && ch != "all" {
		chroms = []string{ch}
	}
	rows := s.store.LoadVariants(q.samples, chroms, q.loadLimit)
	rows = filter.Apply(rows, q.params, s.genes)
	if len(q.panelIDs) > 0 {
		genes := s.panels.GenesForPanels(q.panelIDs, q.highConf)
		rows = filter.FilterByPanelGenes(rows, genes, s.genes)
	}
	if q.vafSet {
		rows = filter.FilterVAF(rows, q.vafLo, q.vafHi)
	}
	if q.sortCol != "" {
		rows = filter.Sort(rows, q.sortCol, q.sortDir, s.genes)
	}
	return rows
}

func (s *Server) handleVariants(c echo.Context) error {
	q, err := parseVariantQuery(c)
	if err != nil {
		return err
	}
	if len(q.samples) == 0 {
		return c.JSON(http.StatusOK, variantsResponse{
			Variants: []variantDTO{},
			Message:  "no samples selected",
		})
	}

	rows := s.filteredRows(q)
	total := len(rows)
	truncated := false
	if total > s.displayCap {
		rows = rows[:s.displayCap]
		truncated = true
	}
	return c.JSON(http.StatusOK, variantsResponse{
		Variants:  toDTOs(rows, s.genes),
		Total:     total,
		Truncated: truncated,
	})
}

func (s *Server) handleVariantDetail(c echo.Context) error {
	row := s.store.GetVariant(c.Param("key"), c.Param("sample"))
	if row == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "variant not found"})
	}
	return c.JSON(http.StatusOK, toDTO(row, s.genes))
}

type commentDTO struct {
	ID         int64  `json:"id"`
	VariantKey string `json:"variant_key"`
	Sample     string `json:"sample"`
	Author     string `json:"author"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
}

func (s *Server) handleComments(c echo.Context) error {
	comments := s.store.Comments(c.Param("key"), c.Param("sample"))
	out := make([]commentDTO, 0, len(comments))
	for _, cm := range comments {
		out = append(out, commentDTO{
			ID: cm.ID, VariantKey: cm.VariantKey, Sample: cm.SampleID,
			Author: cm.UserName, Text: cm.CommentText, Timestamp: cm.Timestamp,
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"comments": out})
}

type addCommentRequest struct {
	VariantKey string `json:"variant_key"`
	Sample     string `json:"sample"`
	Author     string `json:"author"`
	Text       string `json:"text"`
}

func (s *Server) handleAddComment(c echo.Context) error {
	var req addCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.VariantKey == "" || req.Sample == "" || strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "variant_key, sample and text are required"})
	}
	if req.Author == "" {
		req.Author = "Anonymous"
	}
	if !s.store.AddComment(req.VariantKey, req.Sample, req.Author, req.Text) {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "comment not saved"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"saved": true})
}

type reviewRequest struct {
	VariantKey string `json:"variant_key"`
	Sample     string `json:"sample"`
	Status     string `json:"status"`
}

func (s *Server) handleReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if req.Status != variant.StatusPending && req.Status != variant.StatusReviewed {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "status must be Pending or Reviewed"})
	}
	if req.VariantKey == "" || req.Sample == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "variant_key and sample are required"})
	}
	if !s.store.UpdateReviewStatus(req.VariantKey, req.Sample, req.Status) {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "review status not updated"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"updated": true})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Info())
}

func (s *Server) handleExport(c echo.Context) error {
	q, err := parseVariantQuery(c)
	if err != nil {
		return err
	}
	if len(q.samples) == 0 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "no samples selected"})
	}
	rows := s.filteredRows(q)

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="variants_export.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := store.ExportCSV(c.Response(), rows); err != nil {
		s.logger.Error("csv export", zap.Error(err))
		return err
	}
	return nil
}

func presetMap(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// splitParam parses a comma-separated query value, dropping empties.
func splitParam(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
