// Package github is a client for the parts of the GitHub REST API the
// catalog workflow needs: reading catalog files, forking, committing a
// metadata file and opening the pull request.
package github

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/httpapi"
	"github.com/ufo-models/ufometa/internal/logging"
)

const (
	DefaultAPIURL = "https://api.github.com"
	DefaultRawURL = "https://raw.githubusercontent.com"

	apiVersion = "2022-11-28"

	// maxAncestry bounds the first-parent walk of IsAncestor
	maxAncestry = 1000
)

// ErrNotFound is returned when a file or ref does not exist
var ErrNotFound = stderrors.New("not found on GitHub")

// Config configures a Client
type Config struct {
	APIURL    string
	RawURL    string
	Token     string
	RateLimit float64
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to the GitHub API and its raw content host
type Client struct {
	api    *httpapi.Client
	raw    *httpapi.Client
	logger *zap.Logger
}

// New creates a client authenticating with a bearer token
func New(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RawURL == "" {
		cfg.RawURL = DefaultRawURL
	}
	auth := httpapi.BearerToken{Token: cfg.Token}
	return &Client{
		api: httpapi.NewClient(httpapi.Config{
			BaseURL:   cfg.APIURL,
			Auth:      auth,
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			Headers: map[string]string{
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": apiVersion,
			},
		}),
		raw: httpapi.NewClient(httpapi.Config{
			BaseURL:   cfg.RawURL,
			Auth:      auth,
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		}),
		logger: logging.Or(cfg.Logger),
	}
}

// User is a GitHub account
type User struct {
	Login string `json:"login"`
}

// Repository is a repository as the API describes it
type Repository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         User   `json:"owner"`
	DefaultBranch string `json:"default_branch"`
	Fork          bool   `json:"fork"`
}

// ContentEntry is one entry of a directory listing
type ContentEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	SHA         string `json:"sha"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// Branch is a branch head
type Branch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// Commit is a commit with its parent links
type Commit struct {
	SHA     string `json:"sha"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// PullRequestInput describes a pull request to open
type PullRequestInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Head  string `json:"head"`
	Base  string `json:"base"`
}

// PullRequest is an opened pull request
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
}

func repoPath(owner, repo string, parts ...string) string {
	segments := []string{"repos", url.PathEscape(owner), url.PathEscape(repo)}
	return "/" + strings.Join(append(segments, parts...), "/")
}

func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func wrap(op string, err error) error {
	if httpapi.StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return httpapi.NetworkError(op, err)
}

// CurrentUser returns the token's owner. It doubles as the token check.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := c.api.Get(ctx, "/user", nil)
	if err != nil {
		return nil, httpapi.NetworkError("get current user", err)
	}
	var u User
	if err := resp.JSON(&u); err != nil {
		return nil, httpapi.NetworkError("get current user", err)
	}
	return &u, nil
}

// ListContents lists the directory at path
func (c *Client) ListContents(ctx context.Context, owner, repo, path string) ([]ContentEntry, error) {
	resp, err := c.api.Get(ctx, repoPath(owner, repo, "contents", escapePath(path)), nil)
	if err != nil {
		return nil, wrap("list contents", err)
	}
	var out []ContentEntry
	if err := resp.JSON(&out); err != nil {
		return nil, httpapi.NetworkError("list contents", err)
	}
	return out, nil
}

// FetchRaw downloads a file from the raw content host. A missing file
// yields an error wrapping ErrNotFound.
func (c *Client) FetchRaw(ctx context.Context, owner, repo, branch, path string) ([]byte, error) {
	target := strings.Join([]string{url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch), escapePath(path)}, "/")
	resp, err := c.raw.Get(ctx, "/"+target, nil)
	if err != nil {
		return nil, wrap("fetch "+path, err)
	}
	return resp.Body, nil
}

// CreateFork forks owner/repo into the token owner's account. GitHub answers
// with the fork even when it already exists.
func (c *Client) CreateFork(ctx context.Context, owner, repo string) (*Repository, error) {
	resp, err := c.api.Post(ctx, repoPath(owner, repo, "forks"), struct{}{})
	if err != nil {
		return nil, wrap("create fork", err)
	}
	var r Repository
	if err := resp.JSON(&r); err != nil {
		return nil, httpapi.NetworkError("create fork", err)
	}
	c.logger.Debug("forked repository", zap.String("fork", r.FullName))
	return &r, nil
}

// GetBranch returns the head of branch
func (c *Client) GetBranch(ctx context.Context, owner, repo, branch string) (*Branch, error) {
	resp, err := c.api.Get(ctx, repoPath(owner, repo, "branches", url.PathEscape(branch)), nil)
	if err != nil {
		return nil, wrap("get branch", err)
	}
	var b Branch
	if err := resp.JSON(&b); err != nil {
		return nil, httpapi.NetworkError("get branch", err)
	}
	return &b, nil
}

// GetCommit returns the commit sha
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error) {
	resp, err := c.api.Get(ctx, repoPath(owner, repo, "commits", url.PathEscape(sha)), nil)
	if err != nil {
		return nil, wrap("get commit", err)
	}
	var commit Commit
	if err := resp.JSON(&commit); err != nil {
		return nil, httpapi.NetworkError("get commit", err)
	}
	return &commit, nil
}

// IsAncestor reports whether parent is reachable from child by following
// first parents in owner/repo. A commit is its own ancestor.
func (c *Client) IsAncestor(ctx context.Context, owner, repo, child, parent string) (bool, error) {
	sha := child
	for i := 0; i < maxAncestry; i++ {
		if sha == parent {
			return true, nil
		}
		commit, err := c.GetCommit(ctx, owner, repo, sha)
		if err != nil {
			return false, err
		}
		if len(commit.Parents) == 0 {
			return false, nil
		}
		sha = commit.Parents[0].SHA
	}
	c.logger.Warn("ancestry walk stopped", zap.String("child", child), zap.Int("depth", maxAncestry))
	return false, nil
}

// CreateFile commits a new file at path on branch
func (c *Client) CreateFile(ctx context.Context, owner, repo, branch, path, message string, content []byte) error {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
	}
	if branch != "" {
		body["branch"] = branch
	}
	if _, err := c.api.Put(ctx, repoPath(owner, repo, "contents", escapePath(path)), body); err != nil {
		return httpapi.NetworkError("create "+path, err)
	}
	c.logger.Debug("committed file", zap.String("repo", owner+"/"+repo), zap.String("path", path))
	return nil
}

// CreatePullRequest opens a pull request against owner/repo
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo string, in PullRequestInput) (*PullRequest, error) {
	resp, err := c.api.Post(ctx, repoPath(owner, repo, "pulls"), in)
	if err != nil {
		return nil, httpapi.NetworkError("create pull request", err)
	}
	var pr PullRequest
	if err := resp.JSON(&pr); err != nil {
		return nil, httpapi.NetworkError("create pull request", err)
	}
	return &pr, nil
}
