// Package githubtest serves an in-memory GitHub API for tests. Raw file
// content is served below /raw, so clients use URL+"/raw" as their raw host.
package githubtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Repo is the state of one repository. Only the default branch is modelled.
type Repo struct {
	Owner  string
	Name   string
	Files  map[string][]byte
	Head   string
	Parent *Repo

	commits map[string][]string
}

// PullRequest is a recorded pull request
type PullRequest struct {
	Number int
	Owner  string
	Repo   string
	Title  string
	Body   string
	Head   string
	Base   string
}

// Server is the fake API
type Server struct {
	*httptest.Server

	Token string
	Login string

	mu      sync.Mutex
	repos   map[string]*Repo
	pulls   []PullRequest
	nextSHA int
}

// New starts a server that accepts token and answers /user with login
func New(t testing.TB, token, login string) *Server {
	t.Helper()
	s := &Server{Token: token, Login: login, repos: make(map[string]*Repo)}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Get("/user", s.user)
	r.Route("/repos/{owner}/{repo}", func(r chi.Router) {
		r.Post("/forks", s.fork)
		r.Get("/branches/{branch}", s.branch)
		r.Get("/commits/{sha}", s.commit)
		r.Get("/contents/*", s.contents)
		r.Put("/contents/*", s.createFile)
		r.Post("/pulls", s.createPull)
	})
	r.Get("/raw/{owner}/{repo}/{branch}/*", s.raw)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// RawURL is the base of the raw content host
func (s *Server) RawURL() string {
	return s.URL + "/raw"
}

// AddRepo creates owner/name with files committed in one initial commit
func (s *Server) AddRepo(owner, name string, files map[string]string) *Repo {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo := &Repo{Owner: owner, Name: name, Files: map[string][]byte{}, commits: map[string][]string{}}
	for p, content := range files {
		repo.Files[p] = []byte(content)
	}
	s.commitLocked(repo)
	s.repos[owner+"/"+name] = repo
	return repo
}

// Commit adds or replaces a file on owner/name with a new commit
func (s *Server) Commit(owner, name, filePath, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo := s.repos[owner+"/"+name]
	repo.Files[filePath] = []byte(content)
	s.commitLocked(repo)
}

// File returns the content of a file of owner/name
func (s *Server) File(owner, name, filePath string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[owner+"/"+name]
	if !ok {
		return nil, false
	}
	content, ok := repo.Files[filePath]
	return content, ok
}

// Pulls returns the opened pull requests
func (s *Server) Pulls() []PullRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PullRequest(nil), s.pulls...)
}

func (s *Server) commitLocked(repo *Repo) {
	s.nextSHA++
	sha := fmt.Sprintf("%040x", s.nextSHA)
	var parents []string
	if repo.Head != "" {
		parents = []string{repo.Head}
	}
	repo.commits[sha] = parents
	repo.Head = sha
	if repo.Parent != nil {
		// commits are shared through the network of forks
		repo.Parent.commits[sha] = parents
	}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Repo, bool) {
	repo, ok := s.repos[chi.URLParam(r, "owner")+"/"+chi.URLParam(r, "repo")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
	}
	return repo, ok
}

func repoView(repo *Repo) map[string]interface{} {
	return map[string]interface{}{
		"name":           repo.Name,
		"full_name":      repo.Owner + "/" + repo.Name,
		"owner":          map[string]string{"login": repo.Owner},
		"default_branch": "main",
		"fork":           repo.Parent != nil,
	}
}

func (s *Server) user(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"login": s.Login})
}

func (s *Server) fork(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	upstream, ok := s.lookup(w, r)
	if !ok {
		return
	}
	key := s.Login + "/" + upstream.Name
	if existing, ok := s.repos[key]; ok {
		writeJSON(w, http.StatusAccepted, repoView(existing))
		return
	}
	fork := &Repo{
		Owner:   s.Login,
		Name:    upstream.Name,
		Files:   map[string][]byte{},
		Head:    upstream.Head,
		Parent:  upstream,
		commits: map[string][]string{},
	}
	for p, content := range upstream.Files {
		fork.Files[p] = content
	}
	for sha, parents := range upstream.commits {
		fork.commits[sha] = parents
	}
	s.repos[key] = fork
	writeJSON(w, http.StatusAccepted, repoView(fork))
}

func (s *Server) branch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if chi.URLParam(r, "branch") != "main" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Branch not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":   "main",
		"commit": map[string]string{"sha": repo.Head},
	})
}

func (s *Server) commit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sha := chi.URLParam(r, "sha")
	parents, ok := repo.commits[sha]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No commit found for SHA: " + sha})
		return
	}
	links := make([]map[string]string, 0, len(parents))
	for _, p := range parents {
		links = append(links, map[string]string{"sha": p})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sha": sha, "parents": links})
}

func (s *Server) contents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.lookup(w, r)
	if !ok {
		return
	}
	dir := strings.Trim(chi.URLParam(r, "*"), "/")
	var entries []map[string]interface{}
	for p, content := range repo.Files {
		if path.Dir(p) != dir {
			continue
		}
		entries = append(entries, map[string]interface{}{
			"name":         path.Base(p),
			"path":         p,
			"type":         "file",
			"size":         len(content),
			"download_url": fmt.Sprintf("%s/raw/%s/%s/main/%s", s.URL, repo.Owner, repo.Name, p),
		})
	}
	if entries == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i]["path"].(string) < entries[j]["path"].(string) })
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) createFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request"})
		return
	}
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}
	p := strings.Trim(chi.URLParam(r, "*"), "/")
	if _, exists := repo.Files[p]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `"sha" wasn't supplied.`})
		return
	}
	repo.Files[p] = content
	s.commitLocked(repo)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"content": map[string]string{"path": p},
		"commit":  map[string]string{"sha": repo.Head, "message": body.Message},
	})
}

func (s *Server) createPull(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var body struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Head  string `json:"head"`
		Base  string `json:"base"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Head == "" || body.Base == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Validation Failed"})
		return
	}
	pr := PullRequest{
		Number: len(s.pulls) + 1,
		Owner:  repo.Owner,
		Repo:   repo.Name,
		Title:  body.Title,
		Body:   body.Body,
		Head:   body.Head,
		Base:   body.Base,
	}
	s.pulls = append(s.pulls, pr)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"number":   pr.Number,
		"title":    pr.Title,
		"html_url": fmt.Sprintf("%s/%s/%s/pull/%d", s.URL, repo.Owner, repo.Name, pr.Number),
	})
}

func (s *Server) raw(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	repo, ok := s.repos[chi.URLParam(r, "owner")+"/"+chi.URLParam(r, "repo")]
	if !ok || chi.URLParam(r, "branch") != "main" {
		http.Error(w, "404: Not Found", http.StatusNotFound)
		return
	}
	content, ok := repo.Files[strings.Trim(chi.URLParam(r, "*"), "/")]
	if !ok {
		http.Error(w, "404: Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(content)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
