// Package genemap translates between HGNC-style gene identifiers and
// human-readable gene symbols.
package genemap

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Resolver maps gene identifiers to symbols using a static two-column
// tab-separated lookup file. The mapping is loaded once and held for the
// process lifetime; there is no write path.
type Resolver struct {
	path   string
	logger *zap.Logger

	once    sync.Once
	ids     []string // file order, for deterministic search results
	byID    map[string]string
}

// NewResolver creates a resolver for the given lookup file. The file is not
// read until first use.
func NewResolver(path string) *Resolver {
	return &Resolver{path: path, logger: zap.NewNop()}
}

// SetLogger sets the logger for warning messages.
func (r *Resolver) SetLogger(l *zap.Logger) {
	r.logger = l
}

// load reads the lookup file. A missing file is a warning, not an error:
// the resolver then degrades to identity translation.
func (r *Resolver) load() {
	r.byID = make(map[string]string)

	f, err := os.Open(r.path)
	if err != nil {
		r.logger.Warn("gene mapping file unavailable, falling back to raw identifiers",
			zap.String("path", r.path), zap.Error(err))
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			continue
		}
		id := strings.TrimSpace(fields[0])
		symbol := strings.TrimSpace(fields[1])
		if id == "" || symbol == "" {
			continue
		}
		if _, seen := r.byID[id]; !seen {
			r.ids = append(r.ids, id)
		}
		r.byID[id] = symbol
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("reading gene mapping file", zap.String("path", r.path), zap.Error(err))
	}
	r.logger.Info("loaded gene identifier mapping",
		zap.String("path", r.path), zap.Int("entries", len(r.byID)))
}

// Mapping returns the full identifier-to-symbol map, loading it on first use.
func (r *Resolver) Mapping() map[string]string {
	r.once.Do(r.load)
	return r.byID
}

// Symbol translates an identifier to its gene symbol. Empty or unknown
// identifiers are returned unchanged.
func (r *Resolver) Symbol(id string) string {
	r.once.Do(r.load)
	if symbol, ok := r.byID[id]; ok {
		return symbol
	}
	return id
}

// Search finds identifiers whose symbol (primary) or identifier (secondary)
// contains the term, case-insensitively. The two returned slices are zipped:
// ids[i] maps to symbols[i].
func (r *Resolver) Search(term string) (ids, symbols []string) {
	r.once.Do(r.load)
	if term == "" {
		return nil, nil
	}
	lower := strings.ToLower(term)

	matched := make(map[string]bool)
	for _, id := range r.ids {
		if strings.Contains(strings.ToLower(r.byID[id]), lower) {
			ids = append(ids, id)
			symbols = append(symbols, r.byID[id])
			matched[id] = true
		}
	}
	for _, id := range r.ids {
		if !matched[id] && strings.Contains(strings.ToLower(id), lower) {
			ids = append(ids, id)
			symbols = append(symbols, r.byID[id])
		}
	}
	return ids, symbols
}

// IDsForSymbols maps a set of gene symbols to their identifiers. Symbols
// without a known identifier pass through unchanged, so callers can mix
// symbols and raw identifiers freely.
func (r *Resolver) IDsForSymbols(symbols []string) []string {
	r.once.Do(r.load)

	reverse := make(map[string]string, len(r.byID))
	for id, symbol := range r.byID {
		reverse[strings.ToUpper(symbol)] = id
	}

	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if id, ok := reverse[strings.ToUpper(strings.TrimSpace(s))]; ok {
			out = append(out, id)
		} else {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// String describes the resolver state for diagnostics.
func (r *Resolver) String() string {
	r.once.Do(r.load)
	return fmt.Sprintf("genemap.Resolver(%s, %d entries)", r.path, len(r.byID))
}
