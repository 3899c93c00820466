package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufo-models/ufometa/internal/cache"
	"github.com/ufo-models/ufometa/internal/errors"
)

type stub struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newStub(t *testing.T) *stub {
	t.Helper()
	s := &stub{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.hits.Add(1)
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/doi/10.1016/j.cpc.2012.01.022", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/landing", http.StatusFound)
	})
	r.Get("/landing", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>paper</html>"))
	})
	r.Get("/abs/1108.2040", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("abstract"))
	})
	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stub) resolver(c cache.Cache) *Resolver {
	return New(Options{
		DOIResolver:   s.srv.URL + "/doi/",
		ArXivResolver: s.srv.URL + "/abs/",
		Cache:         c,
	})
}

func TestResolveFollowsRedirects(t *testing.T) {
	s := newStub(t)
	r := s.resolver(nil)

	require.NoError(t, r.DOI(context.Background(), "10.1016/j.cpc.2012.01.022"))
	require.NoError(t, r.ArXiv(context.Background(), " 1108.2040 "))
	require.NoError(t, r.URL(context.Background(), WhichHomepage, s.srv.URL+"/landing"))
}

func TestResolveFailures(t *testing.T) {
	s := newStub(t)
	r := s.resolver(nil)

	err := r.DOI(context.Background(), "10.0000/none")
	var refErr *errors.UnresolvableReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, WhichDOI, refErr.Which)
	assert.Equal(t, http.StatusNotFound, refErr.Status)
	assert.Equal(t, s.srv.URL+"/doi/10.0000/none", refErr.URL)
	assert.Equal(t, errors.ErrUnresolvableRef, errors.Code(err))

	err = r.URL(context.Background(), WhichHomepage, "http://127.0.0.1:1/unreachable")
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, WhichHomepage, refErr.Which)
	assert.Equal(t, 0, refErr.Status)
	assert.Error(t, refErr.Err)
}

func TestResolveCachesSuccesses(t *testing.T) {
	s := newStub(t)
	c := cache.NewMemoryCache(cache.DefaultConfig())
	defer c.Close()
	r := s.resolver(c)
	ctx := context.Background()

	require.NoError(t, r.ArXiv(ctx, "1108.2040"))
	require.NoError(t, r.ArXiv(ctx, "1108.2040"))
	assert.Equal(t, int32(1), s.hits.Load())

	require.Error(t, r.ArXiv(ctx, "0000.0000"))
	require.Error(t, r.ArXiv(ctx, "0000.0000"))
	assert.Equal(t, int32(3), s.hits.Load(), "failures are not cached")
}

func TestResolverURLs(t *testing.T) {
	r := New(Options{})
	assert.Equal(t, "https://doi.org/10.1/x", r.DOIURL("10.1/x"))
	assert.Equal(t, "https://arxiv.org/abs/1108.2040", r.ArXivURL("1108.2040"))
}
