package ui

import (
	"bytes"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerAnimatesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	s := NewSpinner(&out, SpinnerOptions{Message: "Fetching catalog", NoColor: true, Interval: time.Millisecond})
	s.Start()
	s.Start()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Fetching catalog")
	}, time.Second, time.Millisecond)

	s.UpdateMessage("Indexing catalog")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Indexing catalog")
	}, time.Second, time.Millisecond)

	s.Success("Catalog indexed")
	s.Stop()

	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K✓ Catalog indexed\n"), "got %q", out.String())
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	s := NewSpinner(&out, SpinnerOptions{NoColor: true})
	s.Stop()
	assert.Empty(t, out.String())

	s.Error("upload failed")
	assert.Equal(t, "❌ upload failed\n", out.String())
}

func TestWithSpinner(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out syncBuffer
	err := WithSpinner(&out, "Validating GitHub access token", true, func() error { return nil })
	require.NoError(t, err)
	assert.Contains(t, out.String(), "✓ Validating GitHub access token\n")

	boom := stderrors.New("401")
	err = WithSpinner(&out, "Validating Zenodo access token", true, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, out.String(), "❌ Validating Zenodo access token failed\n")
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, ProgressBarOptions{Total: 4, Width: 8, Message: "downloading", NoColor: true})

	bar.Add(1)
	assert.Equal(t, "\r[██░░░░░░]  25% (1/4) downloading", buf.String())

	buf.Reset()
	bar.Add(10)
	assert.Equal(t, "\r[████████] 100% (4/4) downloading", buf.String())

	buf.Reset()
	bar.Set(2)
	assert.Equal(t, "\r[████░░░░]  50% (2/4) downloading", buf.String())

	buf.Reset()
	bar.FinishWithMessage("4 models downloaded")
	assert.Equal(t, "\r[████████] 100% (4/4) downloading\n✓ 4 models downloaded\n", buf.String())
}

func TestProgressBarConcurrentAdds(t *testing.T) {
	var out syncBuffer
	bar := NewProgressBar(&out, ProgressBarOptions{Total: 50, NoColor: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bar.Add(1)
		}()
	}
	wg.Wait()
	assert.True(t, strings.HasSuffix(out.String(), "100% (50/50)"), "got %q", out.String())
}

func TestProgressBarWithoutTotal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(&buf, ProgressBarOptions{NoColor: true})
	bar.Add(3)
	assert.Empty(t, buf.String())
}
