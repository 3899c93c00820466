// Package zenodotest runs an in-memory Zenodo API for tests.
package zenodotest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Prefix is the DOI prefix of every reserved DOI
const Prefix = "10.5072/zenodo."

// Deposition is the server-side state of one deposition
type Deposition struct {
	ID        int
	ConceptID int
	VersionOf int
	Published bool
	Metadata  map[string]interface{}
	Files     map[string][]byte

	fileOrder []string
}

// DOI is the deposition's reserved DOI
func (d *Deposition) DOI() string { return Prefix + strconv.Itoa(d.ID) }

// ConceptDOI is the DOI shared by all versions
func (d *Deposition) ConceptDOI() string { return Prefix + strconv.Itoa(d.ConceptID) }

// FileNames lists the deposition's files in upload order
func (d *Deposition) FileNames() []string {
	out := make([]string, len(d.fileOrder))
	copy(out, d.fileOrder)
	return out
}

// Server is a fake Zenodo instance
type Server struct {
	*httptest.Server

	Token string
	// PublishStatus overrides the publish response status when non-zero
	PublishStatus int

	mu          sync.Mutex
	nextID      int
	depositions map[int]*Deposition
}

// New starts a server that accepts token
func New(t testing.TB, token string) *Server {
	t.Helper()
	s := &Server{Token: token, nextID: 100, depositions: make(map[int]*Deposition)}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Route("/api/deposit/depositions", func(r chi.Router) {
		r.Get("/", s.listDepositions)
		r.Post("/", s.createDeposition)
		r.Get("/{id}", s.getDeposition)
		r.Put("/{id}", s.updateMetadata)
		r.Post("/{id}/actions/publish", s.publish)
		r.Post("/{id}/actions/newversion", s.newVersion)
		r.Get("/{id}/files", s.listFiles)
		r.Delete("/{id}/files/{name}", s.deleteFile)
	})
	r.Put("/api/files/{bucket}/{name}", s.upload)
	r.Get("/api/records", s.searchRecords)
	r.Get("/api/records/{id}", s.getRecord)
	r.Get("/api/records/{id}/files/{name}/content", s.download)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// AddPublished seeds a published deposition holding files and returns it
func (s *Server) AddPublished(files map[string]string) *Deposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.newDeposition(0)
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		d.Files[name] = []byte(files[name])
		d.fileOrder = append(d.fileOrder, name)
	}
	d.Published = true
	return d
}

// Deposition returns the state of deposition id
func (s *Server) Deposition(id int) (*Deposition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depositions[id]
	return d, ok
}

// Depositions returns every deposition ordered by id
func (s *Server) Depositions() []*Deposition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Deposition, 0, len(s.depositions))
	for _, d := range s.depositions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) newDeposition(conceptID int) *Deposition {
	s.nextID++
	if conceptID == 0 {
		conceptID = s.nextID * 10
	}
	d := &Deposition{
		ID:        s.nextID,
		ConceptID: conceptID,
		Metadata:  map[string]interface{}{},
		Files:     map[string][]byte{},
	}
	s.depositions[d.ID] = d
	return d
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.URL.Query().Get("access_token") != s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "The server could not verify that you are authorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) view(d *Deposition) map[string]interface{} {
	links := map[string]string{
		"bucket": fmt.Sprintf("%s/api/files/bucket-%d", s.URL, d.ID),
		"html":   fmt.Sprintf("%s/deposit/%d", s.URL, d.ID),
		"latest": fmt.Sprintf("%s/api/records/%d", s.URL, s.latest(d.ConceptID)),
	}
	if d.Published {
		links["record_html"] = fmt.Sprintf("%s/records/%d", s.URL, d.ID)
	}
	md := map[string]interface{}{"prereserve_doi": map[string]string{"doi": d.DOI()}}
	for k, v := range d.Metadata {
		md[k] = v
	}
	return map[string]interface{}{
		"id":         d.ID,
		"doi":        d.DOI(),
		"conceptdoi": d.ConceptDOI(),
		"links":      links,
		"metadata":   md,
	}
}

// latest returns the newest published version of a concept
func (s *Server) latest(conceptID int) int {
	latest := 0
	for _, d := range s.depositions {
		if d.ConceptID == conceptID && d.Published && d.ID > latest {
			latest = d.ID
		}
	}
	return latest
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Deposition, bool) {
	id, _ := strconv.Atoi(chi.URLParam(r, "id"))
	d, ok := s.depositions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "PID does not exist."})
	}
	return d, ok
}

func (s *Server) listDepositions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.depositions))
	for id := range s.depositions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.view(s.depositions[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createDeposition(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusCreated, s.view(s.newDeposition(0)))
}

func (s *Server) getDeposition(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, s.view(d))
	}
}

func (s *Server) updateMetadata(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Metadata == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid metadata"})
		return
	}
	d.Metadata = body.Metadata
	writeJSON(w, http.StatusOK, s.view(d))
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if s.PublishStatus != 0 {
		writeJSON(w, s.PublishStatus, s.view(d))
		return
	}
	d.Published = true
	writeJSON(w, http.StatusAccepted, s.view(d))
}

func (s *Server) newVersion(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	draft := s.newDeposition(d.ConceptID)
	draft.VersionOf = d.ID
	for _, name := range d.fileOrder {
		draft.Files[name] = d.Files[name]
		draft.fileOrder = append(draft.fileOrder, name)
	}
	view := s.view(d)
	view["links"].(map[string]string)["latest_draft"] = fmt.Sprintf("%s/api/deposit/depositions/%d", s.URL, draft.ID)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	out := make([]map[string]interface{}, 0, len(d.fileOrder))
	for _, name := range d.fileOrder {
		out = append(out, map[string]interface{}{
			"id":       name,
			"filename": name,
			"links": map[string]string{
				"self": fmt.Sprintf("%s/api/deposit/depositions/%d/files/%s", s.URL, d.ID, name),
			},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	if _, ok := d.Files[name]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "file not found"})
		return
	}
	delete(d.Files, name)
	for i, n := range d.fileOrder {
		if n == name {
			d.fileOrder = append(d.fileOrder[:i], d.fileOrder[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, _ := strconv.Atoi(strings.TrimPrefix(chi.URLParam(r, "bucket"), "bucket-"))
	d, ok := s.depositions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "bucket not found"})
		return
	}
	name := chi.URLParam(r, "name")
	if _, exists := d.Files[name]; !exists {
		d.fileOrder = append(d.fileOrder, name)
	}
	d.Files[name] = body
	writeJSON(w, http.StatusCreated, map[string]interface{}{"key": name, "size": len(body)})
}

func (s *Server) record(d *Deposition) map[string]interface{} {
	files := make([]map[string]interface{}, 0, len(d.fileOrder))
	for _, name := range d.fileOrder {
		files = append(files, map[string]interface{}{
			"key":  name,
			"size": len(d.Files[name]),
			"links": map[string]string{
				"self": fmt.Sprintf("%s/api/records/%d/files/%s/content", s.URL, d.ID, name),
			},
		})
	}
	return map[string]interface{}{
		"id":         d.ID,
		"doi":        d.DOI(),
		"conceptdoi": d.ConceptDOI(),
		"files":      files,
	}
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if !d.Published {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "record not published"})
		return
	}
	writeJSON(w, http.StatusOK, s.record(d))
}

func (s *Server) searchRecords(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := r.URL.Query().Get("q")
	doi := strings.Trim(strings.TrimPrefix(q, "doi:"), `"`)

	hits := []map[string]interface{}{}
	for _, d := range s.depositions {
		if d.Published && d.DOI() == doi {
			hits = append(hits, s.record(d))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.lookup(w, r)
	if !ok {
		return
	}
	content, ok := d.Files[chi.URLParam(r, "name")]
	if !ok || !d.Published {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "file not found"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
