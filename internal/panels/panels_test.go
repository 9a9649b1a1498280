package panels

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	m.SetRequestDelay(0)
	t.Cleanup(func() { m.Close() })
	return m
}

func writeLocalPanel(t *testing.T, m *Manager, name string, lines ...string) {
	t.Helper()
	dir := m.localDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadLocalPanels(t *testing.T) {
	m := newTestManager(t)
	writeLocalPanel(t, m, "lynch_syndrome_3_v2.txt",
		"# colorectal cancer predisposition", "MLH1", "MSH2", "", "EPCAM")

	entries := m.loadLocalPanels()
	require.Len(t, entries, 3)
	assert.Equal(t, "local_lynch_syndrome_3_v2", entries[0].PanelID)
	assert.Equal(t, "Lynch Syndrome Version 2 (3 genes)", entries[0].PanelName)
	assert.Equal(t, SourceLocal, entries[0].Source)
	assert.Equal(t, "2", entries[0].PanelVersion)
	for _, e := range entries {
		assert.Equal(t, ConfidenceHigh, e.GeneConfidence)
	}
	assert.Equal(t, "MLH1", entries[0].GeneSymbol)
	assert.Equal(t, "EPCAM", entries[2].GeneSymbol)
}

func TestLoadLocalPanelsPlainStem(t *testing.T) {
	m := newTestManager(t)
	writeLocalPanel(t, m, "cardiac genes.txt", "MYH7", "TNNT2")

	entries := m.loadLocalPanels()
	require.Len(t, entries, 2)
	assert.Equal(t, "Cardiac Genes Version 1 (2 genes)", entries[0].PanelName)
	assert.Equal(t, "1", entries[0].PanelVersion)
}

func TestLoadLocalPanelsMissingDir(t *testing.T) {
	m := newTestManager(t)
	assert.Empty(t, m.loadLocalPanels())
}

func TestParseLocalPanelName(t *testing.T) {
	tests := []struct {
		stem        string
		count       int
		wantName    string
		wantVersion string
	}{
		{"lynch_syndrome_3_v2", 3, "Lynch Syndrome Version 2 (3 genes)", "2"},
		{"cardiomyopathy_112_v14", 112, "Cardiomyopathy Version 14 (112 genes)", "14"},
		{"mypanel", 5, "Mypanel Version 1 (5 genes)", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.stem, func(t *testing.T) {
			name, version := parseLocalPanelName(tt.stem, tt.count)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func seedEntries(m *Manager) {
	m.entries = []Entry{
		{PanelID: "registry_uk_10", PanelName: "Hereditary cancer", Source: SourceRegistryUK,
			GeneSymbol: "BRCA1", GeneConfidence: ConfidenceHigh, PanelVersion: "4.1",
			PanelURL: "https://example.org/panels/10/"},
		{PanelID: "registry_uk_10", PanelName: "Hereditary cancer", Source: SourceRegistryUK,
			GeneSymbol: "CHEK2", GeneConfidence: ConfidenceMedium},
		{PanelID: "registry_uk_10", PanelName: "Hereditary cancer", Source: SourceRegistryUK,
			GeneSymbol: "ATM", GeneConfidence: ConfidenceLow},
		{PanelID: "registry_au_7", PanelName: "Arrhythmia", Source: SourceRegistryAU,
			GeneSymbol: "KCNQ1", GeneConfidence: ConfidenceHigh},
		{PanelID: "local_lynch", PanelName: "Lynch Version 1 (2 genes)", Source: SourceLocal,
			GeneSymbol: "MLH1", GeneConfidence: ConfidenceHigh},
		{PanelID: "local_lynch", PanelName: "Lynch Version 1 (2 genes)", Source: SourceLocal,
			GeneSymbol: " MSH2 ", GeneConfidence: ConfidenceHigh},
	}
}

func TestListPanels(t *testing.T) {
	m := newTestManager(t)
	seedEntries(m)

	got := m.ListPanels()
	require.Len(t, got, 3)
	assert.Equal(t, "local_lynch", got[0].ID)
	assert.Equal(t, "[Local] Lynch Version 1 (2 genes)", got[0].Label)
	assert.Equal(t, "registry_au_7", got[1].ID)
	assert.Equal(t, "[AU] Arrhythmia", got[1].Label)
	assert.Equal(t, "registry_uk_10", got[2].ID)
	assert.Equal(t, "[UK] Hereditary cancer", got[2].Label)
}

func TestGenesForPanels(t *testing.T) {
	m := newTestManager(t)
	seedEntries(m)

	t.Run("union across panels", func(t *testing.T) {
		got := m.GenesForPanels([]string{"registry_uk_10", "local_lynch"}, false)
		assert.Equal(t, []string{"ATM", "BRCA1", "CHEK2", "MLH1", "MSH2"}, got)
	})
	t.Run("high confidence only", func(t *testing.T) {
		got := m.GenesForPanels([]string{"registry_uk_10"}, true)
		assert.Equal(t, []string{"BRCA1"}, got)
	})
	t.Run("no selection", func(t *testing.T) {
		assert.Nil(t, m.GenesForPanels(nil, false))
	})
	t.Run("unknown panel", func(t *testing.T) {
		assert.Empty(t, m.GenesForPanels([]string{"nope"}, false))
	})
}

func TestPanelInfo(t *testing.T) {
	m := newTestManager(t)
	seedEntries(m)

	info := m.PanelInfo("registry_uk_10")
	require.NotNil(t, info)
	assert.Equal(t, "Hereditary cancer", info.Name)
	assert.Equal(t, SourceRegistryUK, info.Source)
	assert.Equal(t, "4.1", info.Version)
	assert.Equal(t, "https://example.org/panels/10/", info.URL)
	assert.Equal(t, 3, info.GeneCount)
	assert.Equal(t, 1, info.HighConfidenceCount)

	assert.Nil(t, m.PanelInfo("missing"))
}

func TestSearchPanels(t *testing.T) {
	m := newTestManager(t)
	seedEntries(m)

	got := m.SearchPanels("cancer")
	require.Len(t, got, 1)
	assert.Equal(t, "registry_uk_10", got[0].ID)

	assert.Empty(t, m.SearchPanels("zzz"))
	assert.Nil(t, m.SearchPanels("  "))
}

func TestStale(t *testing.T) {
	m := newTestManager(t)

	t.Run("no metadata", func(t *testing.T) {
		assert.True(t, m.Stale())
	})
	t.Run("fresh", func(t *testing.T) {
		m.meta.LastUpdate = time.Now().UTC().Format(time.RFC3339)
		assert.False(t, m.Stale())
	})
	t.Run("old", func(t *testing.T) {
		m.meta.LastUpdate = time.Now().Add(-8 * 24 * time.Hour).UTC().Format(time.RFC3339)
		assert.True(t, m.Stale())
	})
	t.Run("garbage timestamp", func(t *testing.T) {
		m.meta.LastUpdate = "yesterday"
		assert.True(t, m.Stale())
	})
}

func TestNormalizeConfidence(t *testing.T) {
	raw := func(s string) json.RawMessage { return json.RawMessage(s) }
	tests := []struct {
		name string
		in   []json.RawMessage
		want string
	}{
		{"numeric three", []json.RawMessage{raw("3")}, ConfidenceHigh},
		{"numeric string", []json.RawMessage{raw(`"3"`)}, ConfidenceHigh},
		{"green", []json.RawMessage{raw(`"Green"`)}, ConfidenceHigh},
		{"amber", []json.RawMessage{raw(`"Amber"`)}, ConfidenceMedium},
		{"moderate", []json.RawMessage{raw(`"Moderate"`)}, ConfidenceMedium},
		{"red", []json.RawMessage{raw(`"Red"`)}, ConfidenceLow},
		{"numeric one", []json.RawMessage{raw("1")}, ConfidenceLow},
		{"first usable wins", []json.RawMessage{nil, raw("null"), raw(`"green"`)}, ConfidenceHigh},
		{"unrecognized", []json.RawMessage{raw(`"splendid"`)}, ConfidenceUnknown},
		{"nothing", nil, ConfidenceUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeConfidence(tt.in...))
		})
	}
}

func newRegistryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/panels/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/panels/":
			if r.URL.Query().Get("page") == "2" {
				fmt.Fprint(w, `{"count":2,"next":null,"results":[{"id":202,"name":"Arrhythmia","version":"1.3"}]}`)
				return
			}
			fmt.Fprintf(w,
				`{"count":2,"next":"http://%s/panels/?page=2","results":[{"id":101,"name":"Hereditary cancer","version":"4.0"}]}`,
				r.Host)
		case "/panels/101/":
			fmt.Fprint(w, `{"id":101,"name":"Hereditary cancer","version":"4.0","genes":[
				{"gene_data":{"gene_symbol":"BRCA1"},"confidence_level":"3"},
				{"gene_data":{"gene_symbol":"CHEK2"},"confidence_level":"2"},
				{"gene_data":{"gene_symbol":""},"confidence_level":"3"}]}`)
		case "/panels/202/":
			fmt.Fprint(w, `{"id":202,"name":"Arrhythmia","version":"1.3","genes":[
				{"gene_symbol":"KCNQ1","rating":"Green"}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRegistry(t *testing.T) {
	m := newTestManager(t)
	srv := newRegistryServer(t)

	entries, err := m.fetchRegistry(Registry{Name: SourceRegistryUK, BaseURL: srv.URL})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "registry_uk_101", entries[0].PanelID)
	assert.Equal(t, "Hereditary cancer", entries[0].PanelName)
	assert.Equal(t, "BRCA1", entries[0].GeneSymbol)
	assert.Equal(t, ConfidenceHigh, entries[0].GeneConfidence)
	assert.Equal(t, "4.0", entries[0].PanelVersion)
	assert.Equal(t, srv.URL+"/panels/101/", entries[0].PanelURL)

	assert.Equal(t, ConfidenceMedium, entries[1].GeneConfidence)

	assert.Equal(t, "registry_uk_202", entries[2].PanelID)
	assert.Equal(t, "KCNQ1", entries[2].GeneSymbol)
	assert.Equal(t, ConfidenceHigh, entries[2].GeneConfidence)
}

func TestFetchRegistrySkipsFailedPanel(t *testing.T) {
	m := newTestManager(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/panels/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/panels/":
			fmt.Fprint(w, `{"count":2,"next":null,"results":[{"id":1,"name":"Broken","version":"1"},{"id":2,"name":"Fine","version":"1"}]}`)
		case "/panels/2/":
			fmt.Fprint(w, `{"id":2,"name":"Fine","version":"1","genes":[{"gene_data":{"gene_symbol":"TTN"},"confidence_level":"3"}]}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	entries, err := m.fetchRegistry(Registry{Name: SourceRegistryAU, BaseURL: srv.URL})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TTN", entries[0].GeneSymbol)
}

func TestRefreshAndReload(t *testing.T) {
	dir := t.TempDir()
	srv := newRegistryServer(t)

	m, err := NewManager(dir)
	require.NoError(t, err)
	m.SetRequestDelay(0)
	m.SetRegistries([]Registry{{Name: SourceRegistryUK, BaseURL: srv.URL}})
	writeLocalPanel(t, m, "lynch_2_v1.txt", "MLH1", "MSH2")

	require.NoError(t, m.Refresh(true))
	assert.False(t, m.Stale())
	assert.Equal(t, 3, m.PanelCount())
	assert.FileExists(t, filepath.Join(dir, "gene_panels.parquet"))
	assert.FileExists(t, filepath.Join(dir, "panel_metadata.json"))
	require.NoError(t, m.Close())

	// A new manager over the same directory restores everything from disk.
	reopened, err := NewManager(dir)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	assert.Equal(t, 3, reopened.PanelCount())
	assert.False(t, reopened.Stale())
	assert.Equal(t, []string{"BRCA1"},
		reopened.GenesForPanels([]string{"registry_uk_101"}, true))
}

func TestRefreshSkipsWhenFresh(t *testing.T) {
	m := newTestManager(t)
	m.SetRegistries(nil)
	m.meta.LastUpdate = time.Now().UTC().Format(time.RFC3339)
	seedEntries(m)

	require.NoError(t, m.Refresh(false))
	// Entries untouched, no cache written.
	assert.Equal(t, 3, m.PanelCount())
	assert.NoFileExists(t, m.cachePath())
}

func TestRefreshSurvivesRegistryOutage(t *testing.T) {
	m := newTestManager(t)
	m.SetRegistries([]Registry{{Name: SourceRegistryUK, BaseURL: "http://127.0.0.1:1/api"}})
	writeLocalPanel(t, m, "lynch_2_v1.txt", "MLH1", "MSH2")

	require.NoError(t, m.Refresh(true))
	assert.Equal(t, 1, m.PanelCount())
	genes := m.GenesForPanels([]string{"local_lynch_2_v1"}, false)
	assert.Equal(t, []string{"MLH1", "MSH2"}, genes)
}
