// Package resolve checks that DOI, arXiv and homepage references of a
// metadata record point at reachable pages.
package resolve

import (
	"context"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ufo-models/ufometa/internal/cache"
	"github.com/ufo-models/ufometa/internal/errors"
	"github.com/ufo-models/ufometa/internal/httpapi"
	"github.com/ufo-models/ufometa/internal/logging"
)

// Reference names used in UnresolvableReferenceError.Which
const (
	WhichDOI         = "doi"
	WhichArXiv       = "arXiv"
	WhichHomepage    = "Model Homepage"
	WhichExistingDOI = "Existing Model Doi"
	WhichModelDOI    = "Model Doi"
)

// Options configures a Resolver
type Options struct {
	// DOIResolver and ArXivResolver prefix identifiers (defaults
	// https://doi.org/ and https://arxiv.org/abs/)
	DOIResolver   string
	ArXivResolver string

	// Timeout bounds one lookup (default 30s)
	Timeout time.Duration

	// Cache remembers successful lookups. nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration

	Transport httpapi.Config
	Logger    *zap.Logger
}

// Resolver follows references with GET requests. A reference resolves when
// the final response, after redirects, has a status below 400.
type Resolver struct {
	client   *httpapi.Client
	doi      string
	arxiv    string
	timeout  time.Duration
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// New builds a Resolver
func New(opts Options) *Resolver {
	if opts.DOIResolver == "" {
		opts.DOIResolver = "https://doi.org/"
	}
	if opts.ArXivResolver == "" {
		opts.ArXivResolver = "https://arxiv.org/abs/"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Resolver{
		client:   httpapi.NewClient(opts.Transport),
		doi:      opts.DOIResolver,
		arxiv:    opts.ArXivResolver,
		timeout:  opts.Timeout,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		logger:   logging.Or(opts.Logger),
	}
}

// DOIURL returns the resolver URL of doi
func (r *Resolver) DOIURL(doi string) string {
	return r.doi + strings.TrimSpace(doi)
}

// ArXivURL returns the abstract page URL of an arXiv id
func (r *Resolver) ArXivURL(id string) string {
	return r.arxiv + strings.TrimSpace(id)
}

// DOI checks a paper DOI
func (r *Resolver) DOI(ctx context.Context, doi string) error {
	return r.URL(ctx, WhichDOI, r.DOIURL(doi))
}

// ArXiv checks an arXiv identifier
func (r *Resolver) ArXiv(ctx context.Context, id string) error {
	return r.URL(ctx, WhichArXiv, r.ArXivURL(id))
}

// URL checks an arbitrary link. which names the reference in the error.
func (r *Resolver) URL(ctx context.Context, which, url string) error {
	key := cache.ReferenceKey(url)
	if r.cache != nil {
		if _, err := r.cache.Get(ctx, key); err == nil {
			r.logger.Debug("reference resolved from cache", zap.String("which", which), zap.String("url", url))
			return nil
		} else if !cache.IsMiss(err) {
			r.logger.Warn("reference cache unavailable", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.client.Stream(ctx, url, io.Discard)
	if err != nil {
		status := httpapi.StatusOf(err)
		r.logger.Debug("reference does not resolve",
			zap.String("which", which), zap.String("url", url), zap.Int("status", status), zap.Error(err))
		refErr := &errors.UnresolvableReferenceError{Which: which, URL: url, Status: status}
		if status == 0 {
			refErr.Err = err
		}
		return refErr
	}

	r.logger.Debug("reference resolved", zap.String("which", which), zap.String("url", url))
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte("ok"), r.cacheTTL); err != nil {
			r.logger.Warn("failed to cache reference", zap.Error(err))
		}
	}
	return nil
}
