// Package panels maintains a locally cached set of gene-panel definitions
// sourced from flat files and from paginated external panel registries.
package panels

import (
	"database/sql"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// Panel sources.
const (
	SourceRegistryUK = "registry_uk"
	SourceRegistryAU = "registry_au"
	SourceLocal      = "local"
)

// Normalized gene confidence levels.
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceUnknown = "unknown"
)

// DefaultStaleness is how old the cached panel set may grow before a
// refresh is due.
const DefaultStaleness = 7 * 24 * time.Hour

// defaultRequestDelay spaces out registry calls to stay polite.
const defaultRequestDelay = 500 * time.Millisecond

// Entry is one (panel, gene) membership record. A panel may list the same
// gene more than once with different confidence across source documents;
// consumers deduplicate.
type Entry struct {
	PanelID        string
	PanelName      string
	Source         string
	GeneSymbol     string
	GeneConfidence string
	PanelVersion   string
	LastUpdated    string
	PanelURL       string
}

// PanelOption is a panel as presented for selection.
type PanelOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// PanelInfo summarizes a single panel.
type PanelInfo struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Source              string `json:"source"`
	URL                 string `json:"url"`
	Version             string `json:"version"`
	GeneCount           int    `json:"gene_count"`
	HighConfidenceCount int    `json:"high_confidence_count"`
}

// Metadata records when the cached panel set was last rebuilt.
type Metadata struct {
	LastUpdate  string         `json:"last_update"`
	TotalPanels int            `json:"total_panels"`
	Sources     map[string]int `json:"sources"`
}

// Registry is one external paginated panel API.
type Registry struct {
	Name    string
	BaseURL string
}

// Manager owns the panel dataset: an in-memory entry set mirrored to a
// Parquet cache file plus a JSON metadata sidecar. The in-memory set is
// only ever replaced wholesale, never edited in place.
type Manager struct {
	dataDir    string
	registries []Registry
	client     *http.Client
	db         *sql.DB
	logger     *zap.Logger
	delay      time.Duration
	staleness  time.Duration

	mu      sync.RWMutex
	entries []Entry
	meta    Metadata
}

// NewManager creates a panel manager over a data directory and loads any
// cached panel set from disk; with no cache present it falls back to the
// local panel files.
func NewManager(dataDir string) (*Manager, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	m := &Manager{
		dataDir: dataDir,
		registries: []Registry{
			{Name: SourceRegistryUK, BaseURL: "https://panelapp.genomicsengland.co.uk/api/v1"},
			{Name: SourceRegistryAU, BaseURL: "https://panelapp-aus.org/api/v1"},
		},
		client:    &http.Client{Timeout: 30 * time.Second},
		db:        db,
		logger:    zap.NewNop(),
		delay:     defaultRequestDelay,
		staleness: DefaultStaleness,
	}
	m.loadCache()
	return m, nil
}

// Close closes the cache database connection.
func (m *Manager) Close() error { return m.db.Close() }

// SetLogger sets the logger for refresh progress and errors.
func (m *Manager) SetLogger(l *zap.Logger) { m.logger = l }

// SetRegistries overrides the external registry endpoints.
func (m *Manager) SetRegistries(regs []Registry) { m.registries = regs }

// SetRequestDelay overrides the pause between registry calls.
func (m *Manager) SetRequestDelay(d time.Duration) { m.delay = d }

// SetStaleness overrides the refresh staleness threshold.
func (m *Manager) SetStaleness(d time.Duration) {
	if d > 0 {
		m.staleness = d
	}
}

func (m *Manager) cachePath() string    { return filepath.Join(m.dataDir, "gene_panels.parquet") }
func (m *Manager) metadataPath() string { return filepath.Join(m.dataDir, "panel_metadata.json") }
func (m *Manager) localDir() string     { return filepath.Join(m.dataDir, "local_panels") }

// ListPanels returns the available panels deduplicated by id, sorted by
// source then name. Labels carry a short source tag.
func (m *Manager) ListPanels() []PanelOption {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type panelMeta struct{ name, source string }
	seen := make(map[string]panelMeta)
	var ids []string
	for _, e := range m.entries {
		if _, ok := seen[e.PanelID]; !ok {
			seen[e.PanelID] = panelMeta{name: e.PanelName, source: e.Source}
			ids = append(ids, e.PanelID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := seen[ids[i]], seen[ids[j]]
		if a.source != b.source {
			return a.source < b.source
		}
		return a.name < b.name
	})

	out := make([]PanelOption, 0, len(ids))
	for _, id := range ids {
		p := seen[id]
		out = append(out, PanelOption{ID: id, Label: sourceTag(p.source) + " " + p.name})
	}
	return out
}

func sourceTag(source string) string {
	switch source {
	case SourceRegistryUK:
		return "[UK]"
	case SourceRegistryAU:
		return "[AU]"
	case SourceLocal:
		return "[Local]"
	default:
		return "[?]"
	}
}

// GenesForPanels returns the deduplicated, whitespace-trimmed union of
// gene symbols across the given panels, sorted for determinism. With
// highConfidenceOnly set, only high-confidence memberships count.
func (m *Manager) GenesForPanels(panelIDs []string, highConfidenceOnly bool) []string {
	if len(panelIDs) == 0 {
		return nil
	}
	want := make(map[string]bool, len(panelIDs))
	for _, id := range panelIDs {
		want[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	genes := make(map[string]bool)
	for _, e := range m.entries {
		if !want[e.PanelID] {
			continue
		}
		if highConfidenceOnly && e.GeneConfidence != ConfidenceHigh {
			continue
		}
		if g := strings.TrimSpace(e.GeneSymbol); g != "" {
			genes[g] = true
		}
	}

	out := make([]string, 0, len(genes))
	for g := range genes {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// PanelInfo returns details for one panel, or nil when unknown.
func (m *Manager) PanelInfo(panelID string) *PanelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var info *PanelInfo
	genes := make(map[string]bool)
	high := make(map[string]bool)
	for _, e := range m.entries {
		if e.PanelID != panelID {
			continue
		}
		if info == nil {
			info = &PanelInfo{
				ID: e.PanelID, Name: e.PanelName, Source: e.Source,
				URL: e.PanelURL, Version: e.PanelVersion,
			}
		}
		genes[e.GeneSymbol] = true
		if e.GeneConfidence == ConfidenceHigh {
			high[e.GeneSymbol] = true
		}
	}
	if info == nil {
		return nil
	}
	info.GeneCount = len(genes)
	info.HighConfidenceCount = len(high)
	return info
}

// SearchPanels finds panels whose name contains the term,
// case-insensitively.
func (m *Manager) SearchPanels(term string) []PanelOption {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	lower := strings.ToLower(term)

	var out []PanelOption
	for _, p := range m.ListPanels() {
		if strings.Contains(strings.ToLower(p.Label), lower) {
			out = append(out, p)
		}
	}
	return out
}

// PanelCount returns the number of distinct panels cached.
func (m *Manager) PanelCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[string]bool)
	for _, e := range m.entries {
		ids[e.PanelID] = true
	}
	return len(ids)
}

// Stale reports whether the cached panel set is older than the staleness
// threshold. A missing or unparseable last-update time counts as stale.
func (m *Manager) Stale() bool {
	m.mu.RLock()
	last := m.meta.LastUpdate
	m.mu.RUnlock()

	if last == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, last)
	if err != nil {
		return true
	}
	return time.Since(t) >= m.staleness
}

// Refresh rebuilds the panel dataset: local panel files are re-read, both
// registries are fetched page-by-page, and the whole cached set is
// replaced atomically (in-memory swap plus full cache rewrite). A failed
// panel or registry fetch is logged and skipped, never aborting the
// refresh. Without force, a non-stale cache is left alone.
func (m *Manager) Refresh(force bool) error {
	if !force && !m.Stale() {
		m.logger.Debug("panel cache fresh, skipping refresh")
		return nil
	}

	sources := map[string]int{}
	entries := m.loadLocalPanels()
	sources[SourceLocal] = len(entries)

	for _, reg := range m.registries {
		fetched, err := m.fetchRegistry(reg)
		if err != nil {
			m.logger.Error("fetching panel registry",
				zap.String("registry", reg.Name), zap.Error(err))
			continue
		}
		entries = append(entries, fetched...)
		sources[reg.Name] = len(fetched)
	}

	meta := Metadata{
		LastUpdate: time.Now().UTC().Format(time.RFC3339),
		Sources:    sources,
	}
	meta.TotalPanels = countPanels(entries)

	m.mu.Lock()
	m.entries = entries
	m.meta = meta
	m.mu.Unlock()

	if err := m.saveCache(entries, meta); err != nil {
		m.logger.Error("persisting panel cache", zap.Error(err))
		return err
	}
	m.logger.Info("panel refresh complete",
		zap.Int("entries", len(entries)), zap.Int("panels", meta.TotalPanels))
	return nil
}

func countPanels(entries []Entry) int {
	ids := make(map[string]bool)
	for _, e := range entries {
		ids[e.PanelID] = true
	}
	return len(ids)
}
