// Package zenodo is a client for the Zenodo deposit and records REST API.
package zenodo

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/httpapi"
	"github.com/ufo-models/ufometa/internal/logging"
)

// DefaultBaseURL is the sandbox instance, which is safe to experiment against
const DefaultBaseURL = "https://sandbox.zenodo.org"

const depositionsPath = "/api/deposit/depositions"

// ErrRecordNotFound is returned when no published record carries a DOI
var ErrRecordNotFound = stderrors.New("zenodo record not found")

// Config configures a Client
type Config struct {
	BaseURL   string
	Token     string
	RateLimit float64
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client talks to one Zenodo instance
type Client struct {
	api    *httpapi.Client
	logger *zap.Logger
}

// New creates a client. The token travels as the access_token query
// parameter on every request.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		api: httpapi.NewClient(httpapi.Config{
			BaseURL:   cfg.BaseURL,
			Auth:      httpapi.QueryToken{Token: cfg.Token},
			RateLimit: cfg.RateLimit,
			Timeout:   cfg.Timeout,
			Headers:   map[string]string{"Accept": "application/json"},
			Transport: cfg.Transport,
		}),
		logger: logging.Or(cfg.Logger),
	}
}

// Creator is one author as the deposit metadata lists it
type Creator struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Metadata is the descriptive metadata attached to a deposition
type Metadata struct {
	Title           string    `json:"title"`
	UploadType      string    `json:"upload_type"`
	Description     string    `json:"description"`
	Creators        []Creator `json:"creators"`
	Version         string    `json:"version,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
}

// Links are the hypermedia links of a deposition
type Links struct {
	Bucket      string `json:"bucket,omitempty"`
	Latest      string `json:"latest,omitempty"`
	LatestDraft string `json:"latest_draft,omitempty"`
	HTML        string `json:"html,omitempty"`
	RecordHTML  string `json:"record_html,omitempty"`
}

// Deposition is a draft or published upload
type Deposition struct {
	ID         int    `json:"id"`
	DOI        string `json:"doi,omitempty"`
	ConceptDOI string `json:"conceptdoi,omitempty"`
	Links      Links  `json:"links"`
	Metadata   struct {
		Title         string `json:"title,omitempty"`
		PrereserveDOI struct {
			DOI string `json:"doi"`
		} `json:"prereserve_doi"`
	} `json:"metadata"`
}

// ReservedDOI is the DOI the deposition will be published under
func (d *Deposition) ReservedDOI() string {
	return d.Metadata.PrereserveDOI.DOI
}

// DraftFile is a file attached to a draft deposition
type DraftFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Links    struct {
		Self     string `json:"self"`
		Download string `json:"download,omitempty"`
	} `json:"links"`
}

// RecordFile is a file of a published record
type RecordFile struct {
	Key   string `json:"key"`
	Size  int64  `json:"size"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
}

// Name returns the file name, falling back to the last path segment of the
// file link
func (f RecordFile) Name() string {
	if f.Key != "" {
		return f.Key
	}
	return LastSegment(strings.TrimSuffix(f.Links.Self, "/content"))
}

// Record is a published record
type Record struct {
	ID         int          `json:"id"`
	DOI        string       `json:"doi"`
	ConceptDOI string       `json:"conceptdoi"`
	Files      []RecordFile `json:"files"`
}

// LastSegment returns the final path segment of a link, which is how the
// API encodes ids in links.latest and links.latest_draft
func LastSegment(link string) string {
	link = strings.TrimSpace(link)
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		link = u.Path
	}
	return path.Base(strings.TrimSuffix(link, "/"))
}

// ListDepositions lists the depositions of the token's owner. It doubles as
// the token check.
func (c *Client) ListDepositions(ctx context.Context) ([]Deposition, error) {
	resp, err := c.api.Get(ctx, depositionsPath, nil)
	if err != nil {
		return nil, httpapi.NetworkError("list depositions", err)
	}
	var out []Deposition
	if err := resp.JSON(&out); err != nil {
		return nil, httpapi.NetworkError("list depositions", err)
	}
	return out, nil
}

// CreateDeposition creates an empty draft
func (c *Client) CreateDeposition(ctx context.Context) (*Deposition, error) {
	resp, err := c.api.Post(ctx, depositionsPath, struct{}{})
	if err != nil {
		return nil, httpapi.NetworkError("create deposition", err)
	}
	return decodeDeposition("create deposition", resp)
}

// GetDeposition fetches a deposition by id
func (c *Client) GetDeposition(ctx context.Context, id string) (*Deposition, error) {
	resp, err := c.api.Get(ctx, depositionsPath+"/"+id, nil)
	if err != nil {
		return nil, httpapi.NetworkError("get deposition", err)
	}
	return decodeDeposition("get deposition", resp)
}

// UploadFile streams r into the deposition bucket under name
func (c *Client) UploadFile(ctx context.Context, bucket, name string, r io.Reader) error {
	target := strings.TrimSuffix(bucket, "/") + "/" + url.PathEscape(name)
	if _, err := c.api.Upload(ctx, target, r); err != nil {
		return httpapi.NetworkError("upload file", err)
	}
	c.logger.Debug("uploaded file", zap.String("name", name))
	return nil
}

// UploadPath uploads the file at path under its base name
func (c *Client) UploadPath(ctx context.Context, bucket, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()
	return c.UploadFile(ctx, bucket, filepath.Base(filePath), f)
}

// UpdateMetadata replaces the draft's descriptive metadata
func (c *Client) UpdateMetadata(ctx context.Context, id int, md Metadata) (*Deposition, error) {
	body := map[string]interface{}{"metadata": md}
	resp, err := c.api.Put(ctx, depositionsPath+"/"+strconv.Itoa(id), body)
	if err != nil {
		return nil, httpapi.NetworkError("update metadata", err)
	}
	return decodeDeposition("update metadata", resp)
}

// Publish publishes a draft. The API answers 202 on success; anything else
// is a failure.
func (c *Client) Publish(ctx context.Context, id int) (*Deposition, error) {
	const op = "publish deposition"
	resp, err := c.api.Post(ctx, depositionsPath+"/"+strconv.Itoa(id)+"/actions/publish", nil)
	if err != nil {
		return nil, httpapi.NetworkError(op, err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, &errors.NetworkError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("expected status %d", http.StatusAccepted),
		}
	}
	return decodeDeposition(op, resp)
}

// NewVersion opens a new-version draft of a published deposition. The draft
// is found at Links.LatestDraft of the result.
func (c *Client) NewVersion(ctx context.Context, id string) (*Deposition, error) {
	resp, err := c.api.Post(ctx, depositionsPath+"/"+id+"/actions/newversion", nil)
	if err != nil {
		return nil, httpapi.NetworkError("new version", err)
	}
	return decodeDeposition("new version", resp)
}

// ListFiles lists the files of a draft
func (c *Client) ListFiles(ctx context.Context, id string) ([]DraftFile, error) {
	resp, err := c.api.Get(ctx, depositionsPath+"/"+id+"/files", nil)
	if err != nil {
		return nil, httpapi.NetworkError("list files", err)
	}
	var out []DraftFile
	if err := resp.JSON(&out); err != nil {
		return nil, httpapi.NetworkError("list files", err)
	}
	return out, nil
}

// DeleteFile deletes a draft file through its self link
func (c *Client) DeleteFile(ctx context.Context, f DraftFile) error {
	if _, err := c.api.Delete(ctx, f.Links.Self); err != nil {
		return httpapi.NetworkError("delete file", err)
	}
	return nil
}

// GetRecord fetches a published record by id
func (c *Client) GetRecord(ctx context.Context, id string) (*Record, error) {
	resp, err := c.api.Get(ctx, "/api/records/"+id, nil)
	if err != nil {
		return nil, httpapi.NetworkError("get record", err)
	}
	var rec Record
	if err := resp.JSON(&rec); err != nil {
		return nil, httpapi.NetworkError("get record", err)
	}
	return &rec, nil
}

// FindRecordByDOI searches published records for doi
func (c *Client) FindRecordByDOI(ctx context.Context, doi string) (*Record, error) {
	query := url.Values{"q": {fmt.Sprintf("doi:%q", doi)}}
	resp, err := c.api.Get(ctx, "/api/records", query)
	if err != nil {
		return nil, httpapi.NetworkError("search records", err)
	}
	var result struct {
		Hits struct {
			Hits []Record `json:"hits"`
		} `json:"hits"`
	}
	if err := resp.JSON(&result); err != nil {
		return nil, httpapi.NetworkError("search records", err)
	}
	if len(result.Hits.Hits) == 0 {
		return nil, fmt.Errorf("%s: %w", doi, ErrRecordNotFound)
	}
	return &result.Hits.Hits[0], nil
}

// ConceptDOI returns the concept DOI shared by every version of the record
// published under doi
func (c *Client) ConceptDOI(ctx context.Context, doi string) (string, error) {
	rec, err := c.FindRecordByDOI(ctx, doi)
	if err != nil {
		return "", err
	}
	return rec.ConceptDOI, nil
}

// DownloadFile streams a record file into dir and returns the written path
func (c *Client) DownloadFile(ctx context.Context, f RecordFile, dir string) (written string, err error) {
	name := f.Name()
	if name == "" || name == "." || name == "/" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("refusing to download file with name %q", name)
	}
	target := filepath.Join(dir, name)
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(target)
		}
	}()

	n, err := c.api.Stream(ctx, f.Links.Self, out)
	if err != nil {
		return "", httpapi.NetworkError("download file", err)
	}
	c.logger.Debug("downloaded file", zap.String("name", name), zap.Int64("bytes", n))
	return target, nil
}

// MatchConcept finds the deposition whose concept DOI shares the last
// dot-separated segment of doi
func MatchConcept(depositions []Deposition, doi string) (*Deposition, error) {
	want := lastDotSegment(doi)
	var match *Deposition
	for i := range depositions {
		if lastDotSegment(depositions[i].ConceptDOI) == want {
			match = &depositions[i]
		}
	}
	if match == nil || want == "" {
		return nil, &errors.MissingPredecessorError{DOI: doi}
	}
	return match, nil
}

func lastDotSegment(s string) string {
	s = strings.TrimSpace(s)
	return s[strings.LastIndex(s, ".")+1:]
}

func decodeDeposition(op string, resp *httpapi.Response) (*Deposition, error) {
	var d Deposition
	if err := resp.JSON(&d); err != nil {
		return nil, httpapi.NetworkError(op, err)
	}
	return &d, nil
}
