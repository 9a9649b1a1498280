package panels

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxRegistryPages bounds list pagination against a registry that keeps
// returning next links.
const maxRegistryPages = 100

type registryPanelList struct {
	Count   int             `json:"count"`
	Next    string          `json:"next"`
	Results []registryPanel `json:"results"`
}

type registryPanel struct {
	ID      json.Number `json:"id"`
	Name    string      `json:"name"`
	Version string      `json:"version"`
}

type registryPanelDetail struct {
	ID      json.Number    `json:"id"`
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Genes   []registryGene `json:"genes"`
}

// registryGene holds the confidence candidates as raw JSON because
// registries disagree on both the field name and the value type: some
// send numeric levels, others color or keyword strings.
type registryGene struct {
	GeneData struct {
		GeneSymbol string `json:"gene_symbol"`
	} `json:"gene_data"`
	GeneSymbol      string          `json:"gene_symbol"`
	ConfidenceLevel json.RawMessage `json:"confidence_level"`
	Confidence      json.RawMessage `json:"confidence"`
	EvidenceLevel   json.RawMessage `json:"evidence_level"`
	Rating          json.RawMessage `json:"rating"`
}

func (g registryGene) symbol() string {
	if g.GeneData.GeneSymbol != "" {
		return g.GeneData.GeneSymbol
	}
	return g.GeneSymbol
}

// fetchRegistry pulls every panel from one registry: the paginated list
// first, then a detail call per panel for its gene memberships. A failed
// detail fetch skips that panel only.
func (m *Manager) fetchRegistry(reg Registry) ([]Entry, error) {
	panels, err := m.fetchPanelList(reg)
	if err != nil {
		return nil, err
	}
	m.logger.Info("fetched panel list",
		zap.String("registry", reg.Name), zap.Int("panels", len(panels)))

	updated := time.Now().UTC().Format("2006-01-02")
	var entries []Entry
	for _, p := range panels {
		if m.delay > 0 {
			time.Sleep(m.delay)
		}
		detail, err := m.fetchPanelDetail(reg, p.ID.String())
		if err != nil {
			m.logger.Warn("fetching panel detail",
				zap.String("registry", reg.Name),
				zap.String("panel", p.ID.String()), zap.Error(err))
			continue
		}
		url := fmt.Sprintf("%s/panels/%s/", strings.TrimSuffix(reg.BaseURL, "/"), p.ID.String())
		for _, g := range detail.Genes {
			symbol := strings.TrimSpace(g.symbol())
			if symbol == "" {
				continue
			}
			entries = append(entries, Entry{
				PanelID:        reg.Name + "_" + p.ID.String(),
				PanelName:      p.Name,
				Source:         reg.Name,
				GeneSymbol:     symbol,
				GeneConfidence: normalizeConfidence(g.ConfidenceLevel, g.Confidence, g.EvidenceLevel, g.Rating),
				PanelVersion:   p.Version,
				LastUpdated:    updated,
				PanelURL:       url,
			})
		}
	}
	return entries, nil
}

func (m *Manager) fetchPanelList(reg Registry) ([]registryPanel, error) {
	url := strings.TrimSuffix(reg.BaseURL, "/") + "/panels/"
	var panels []registryPanel
	for page := 0; url != "" && page < maxRegistryPages; page++ {
		var list registryPanelList
		if err := m.getJSON(url, &list); err != nil {
			return nil, fmt.Errorf("panel list page %d: %w", page+1, err)
		}
		panels = append(panels, list.Results...)
		url = list.Next
		if url != "" && m.delay > 0 {
			time.Sleep(m.delay)
		}
	}
	return panels, nil
}

func (m *Manager) fetchPanelDetail(reg Registry, id string) (*registryPanelDetail, error) {
	url := fmt.Sprintf("%s/panels/%s/", strings.TrimSuffix(reg.BaseURL, "/"), id)
	var detail registryPanelDetail
	if err := m.getJSON(url, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (m *Manager) getJSON(url string, out interface{}) error {
	resp, err := m.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// normalizeConfidence maps the first usable confidence candidate onto the
// high/medium/low scale. Registries variously encode confidence as the
// numbers 3/2/1, traffic-light colors, or keywords.
func normalizeConfidence(candidates ...json.RawMessage) string {
	for _, raw := range candidates {
		v := rawConfidenceValue(raw)
		if v == "" {
			continue
		}
		switch {
		case v == "3" || strings.Contains(v, "green") || strings.Contains(v, "high") ||
			strings.Contains(v, "definitive") || strings.Contains(v, "strong"):
			return ConfidenceHigh
		case v == "2" || strings.Contains(v, "amber") || strings.Contains(v, "orange") ||
			strings.Contains(v, "medium") || strings.Contains(v, "moderate"):
			return ConfidenceMedium
		case v == "1" || v == "0" || strings.Contains(v, "red") || strings.Contains(v, "low") ||
			strings.Contains(v, "limited"):
			return ConfidenceLow
		}
	}
	return ConfidenceUnknown
}

func rawConfidenceValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		// Numeric strings like "3.0" collapse to their integer form.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return strconv.Itoa(int(f))
		}
		return strings.ToLower(strings.TrimSpace(s))
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.Itoa(int(f))
	}
	return ""
}
