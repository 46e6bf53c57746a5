package dispatch_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/amrit-srivastava/batchgen/internal/dispatch"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/amrit-srivastava/batchgen/internal/retry"
	"github.com/amrit-srivastava/batchgen/internal/store"
)

// scriptedGenerator returns the nth scripted result for the nth call,
// sticking on the last one.
type scriptedGenerator struct {
	mu      sync.Mutex
	results []image.Result
	calls   [][]string
}

func (g *scriptedGenerator) Submit(_ context.Context, prompts []string, _ image.Params) image.Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, append([]string(nil), prompts...))
	return g.results[min(len(g.calls), len(g.results))-1]
}

// promptGenerator scripts one result per prompt, for fan-out tests where
// call order is not deterministic.
type promptGenerator struct {
	mu      sync.Mutex
	results map[string]image.Result
	calls   []string
}

func (g *promptGenerator) Submit(_ context.Context, prompts []string, _ image.Params) image.Result {
	g.mu.Lock()
	g.calls = append(g.calls, prompts...)
	g.mu.Unlock()
	return g.results[prompts[0]]
}

type captureSink struct {
	mu    sync.Mutex
	items []store.Item
	fail  map[int64]error
}

func (s *captureSink) Persist(_ context.Context, item store.Item) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[item.Seed]; err != nil {
		return "", err
	}
	s.items = append(s.items, item)
	return ref(item.Seed), nil
}

func ref(seed int64) string {
	return fmt.Sprintf("https://img.test/%d.png", seed)
}

func artifact(seed int64) image.Artifact {
	return image.Artifact{
		Base64: base64.StdEncoding.EncodeToString([]byte("png-bytes")),
		Seed:   seed,
	}
}

func success(seeds ...int64) image.Result {
	res := image.Result{Status: image.StatusSuccess}
	for _, s := range seeds {
		res.Artifacts = append(res.Artifacts, artifact(s))
	}
	return res
}

var rateLimited = image.Result{Status: image.StatusRateLimited}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func newDispatcher(g image.Generator, sink store.Sink, sleeps *sleepRecorder) *dispatch.Dispatcher {
	return &dispatch.Dispatcher{
		Generator: g,
		Policy:    &retry.Policy{MaxAttempts: 3, BaseDelay: 5 * time.Second},
		Sink:      sink,
		Sleep:     sleeps.sleep,
	}
}
