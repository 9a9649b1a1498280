package panels

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// loadCache restores the in-memory entry set from the Parquet cache and
// its metadata sidecar. With no cache on disk the local panel files seed
// the set; any read error leaves the manager empty but usable.
func (m *Manager) loadCache() {
	if _, err := os.Stat(m.cachePath()); err != nil {
		entries := m.loadLocalPanels()
		m.mu.Lock()
		m.entries = entries
		m.mu.Unlock()
		return
	}

	rows, err := m.db.Query(fmt.Sprintf(
		`SELECT panel_id, panel_name, source, gene_symbol, gene_confidence,
		        panel_version, last_updated, panel_url
		 FROM read_parquet('%s')`, sqlPath(m.cachePath())))
	if err != nil {
		m.logger.Warn("reading panel cache", zap.Error(err))
		return
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PanelID, &e.PanelName, &e.Source, &e.GeneSymbol,
			&e.GeneConfidence, &e.PanelVersion, &e.LastUpdated, &e.PanelURL); err != nil {
			m.logger.Warn("scanning panel cache row", zap.Error(err))
			return
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		m.logger.Warn("reading panel cache", zap.Error(err))
		return
	}

	meta := Metadata{}
	if data, err := os.ReadFile(m.metadataPath()); err == nil {
		if err := json.Unmarshal(data, &meta); err != nil {
			m.logger.Warn("parsing panel metadata", zap.Error(err))
			meta = Metadata{}
		}
	}

	m.mu.Lock()
	m.entries = entries
	m.meta = meta
	m.mu.Unlock()
	m.logger.Debug("panel cache loaded",
		zap.Int("entries", len(entries)), zap.String("last_update", meta.LastUpdate))
}

// saveCache writes the entry set to the Parquet cache via an in-memory
// staging table and the metadata sidecar as JSON.
func (m *Manager) saveCache(entries []Entry, meta Metadata) error {
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	const table = "panels_buf"
	if _, err := m.db.Exec(fmt.Sprintf(
		`CREATE OR REPLACE TABLE %s (
			panel_id VARCHAR, panel_name VARCHAR, source VARCHAR,
			gene_symbol VARCHAR, gene_confidence VARCHAR,
			panel_version VARCHAR, last_updated VARCHAR, panel_url VARCHAR
		)`, table)); err != nil {
		return fmt.Errorf("creating staging table: %w", err)
	}
	defer m.db.Exec("DROP TABLE IF EXISTS " + table)

	stmt, err := m.db.Prepare(fmt.Sprintf(
		"INSERT INTO %s VALUES (?, ?, ?, ?, ?, ?, ?, ?)", table))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		if _, err := stmt.Exec(e.PanelID, e.PanelName, e.Source, e.GeneSymbol,
			e.GeneConfidence, e.PanelVersion, e.LastUpdated, e.PanelURL); err != nil {
			return fmt.Errorf("staging panel entry: %w", err)
		}
	}

	if _, err := m.db.Exec(fmt.Sprintf(
		"COPY %s TO '%s' (FORMAT PARQUET)", table, sqlPath(m.cachePath()))); err != nil {
		return fmt.Errorf("writing panel cache: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding panel metadata: %w", err)
	}
	if err := os.WriteFile(m.metadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing panel metadata: %w", err)
	}
	return nil
}

// sqlPath escapes a filesystem path for embedding in a single-quoted SQL
// string literal.
func sqlPath(p string) string {
	return strings.ReplaceAll(p, "'", "''")
}
