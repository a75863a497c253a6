// ABOUTME: In-memory admin API served over httptest for acceptance tests
// ABOUTME: Tracks installed plugins and every call so tests can assert on side effects
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
)

// FakePlugin is one installed plugin as the admin API reports it
type FakePlugin struct {
	ID        string
	Type      string
	Signature string
	Version   string
}

// FakeGrafana serves /healthz and the /api/plugins endpoints
type FakeGrafana struct {
	Server *httptest.Server

	mu        sync.Mutex
	installed map[string]FakePlugin
	calls     []string
	failures  map[string]int    // plugin id -> status returned by install/uninstall
	metrics   map[string]string // plugin id -> exposition payload
}

// NewFakeGrafana starts a server with the given plugins installed
func NewFakeGrafana(installed ...FakePlugin) *FakeGrafana {
	f := &FakeGrafana{
		installed: make(map[string]FakePlugin),
		failures:  make(map[string]int),
		metrics:   make(map[string]string),
	}
	for _, p := range installed {
		f.installed[p.ID] = p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ok"))
	})
	mux.HandleFunc("GET /api/plugins", f.list)
	mux.HandleFunc("POST /api/plugins/{id}/install", f.install)
	mux.HandleFunc("POST /api/plugins/{id}/uninstall", f.uninstall)
	mux.HandleFunc("GET /api/plugins/{id}/metrics", f.pluginMetrics)

	f.Server = httptest.NewServer(mux)
	return f
}

// URL returns the server base URL
func (f *FakeGrafana) URL() string {
	return f.Server.URL
}

// Close stops the server
func (f *FakeGrafana) Close() {
	f.Server.Close()
}

// FailWith makes install and uninstall of id answer with status
func (f *FakeGrafana) FailWith(id string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = status
}

// SetMetrics sets the metrics payload for id
func (f *FakeGrafana) SetMetrics(id, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metrics[id] = payload
}

// Calls returns the mutating calls received, in order, as "install id@version" or "uninstall id"
func (f *FakeGrafana) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Installed returns the version of id and whether it is installed
func (f *FakeGrafana) Installed(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.installed[id]
	return p.Version, ok
}

func (f *FakeGrafana) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.installed))
	for id := range f.installed {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		p := f.installed[id]
		out = append(out, map[string]any{
			"id":        p.ID,
			"name":      p.ID,
			"type":      p.Type,
			"signature": p.Signature,
			"info":      map[string]string{"version": p.Version},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (f *FakeGrafana) install(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body struct {
		Version string `json:"version"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "install "+id+"@"+body.Version)
	if status, ok := f.failures[id]; ok {
		http.Error(w, `{"message":"plugin not found"}`, status)
		return
	}
	f.installed[id] = FakePlugin{ID: id, Type: "panel", Signature: "valid", Version: body.Version}
	w.Write([]byte(`{"message":"Plugin installed"}`))
}

func (f *FakeGrafana) uninstall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, "uninstall "+id)
	if status, ok := f.failures[id]; ok {
		http.Error(w, `{"message":"cannot uninstall"}`, status)
		return
	}
	if _, ok := f.installed[id]; !ok {
		http.Error(w, `{"message":"plugin not installed"}`, http.StatusNotFound)
		return
	}
	delete(f.installed, id)
	w.Write([]byte(`{"message":"Plugin uninstalled"}`))
}

func (f *FakeGrafana) pluginMetrics(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	payload, ok := f.metrics[r.PathValue("id")]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(payload))
}
