package panels

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var localFilePattern = regexp.MustCompile(`^(.+?)_(\d+)_v(\d+)$`)

// loadLocalPanels reads every .txt file under the local panels directory.
// Each file is one panel: one gene symbol per line, '#' lines skipped,
// every gene high confidence. A missing directory yields no panels.
func (m *Manager) loadLocalPanels() []Entry {
	dir := m.localDir()
	files, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(files) == 0 {
		return nil
	}
	sort.Strings(files)

	var entries []Entry
	for _, path := range files {
		panelEntries, err := m.loadLocalPanel(path)
		if err != nil {
			m.logger.Warn("reading local panel", zap.String("path", path), zap.Error(err))
			continue
		}
		entries = append(entries, panelEntries...)
	}
	return entries
}

func (m *Manager) loadLocalPanel(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var genes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		genes = append(genes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(genes) == 0 {
		return nil, nil
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name, version := parseLocalPanelName(stem, len(genes))

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	updated := info.ModTime().UTC().Format("2006-01-02")

	entries := make([]Entry, 0, len(genes))
	for _, g := range genes {
		entries = append(entries, Entry{
			PanelID:        "local_" + stem,
			PanelName:      name,
			Source:         SourceLocal,
			GeneSymbol:     g,
			GeneConfidence: ConfidenceHigh,
			PanelVersion:   version,
			LastUpdated:    updated,
		})
	}
	return entries, nil
}

// parseLocalPanelName turns a filename stem like "cardiac_arrhythmia_45_v2"
// into a display name "Cardiac Arrhythmia Version 2 (45 genes)" plus a
// version string. Stems without the trailing count and version markers
// fall back to the title-cased stem and version 1.
func parseLocalPanelName(stem string, geneCount int) (name, version string) {
	version = "1"
	base := stem
	if match := localFilePattern.FindStringSubmatch(stem); match != nil {
		base = match[1]
		version = match[3]
	}
	title := titleCase(strings.ReplaceAll(base, "_", " "))
	name = fmt.Sprintf("%s Version %s (%d genes)", title, version, geneCount)
	return name, version
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
