package dispatch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amrit-srivastava/batchgen/internal/dispatch"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(prompts ...string) dispatch.Request {
	return dispatch.Request{
		UserID:  "u1",
		Prompts: prompts,
		Params:  image.Params{Width: 1024, Height: 1024, CfgScale: 7.0, Steps: 30, Samples: 1},
	}
}

func TestDispatchCorrelatesArtifactsByPosition(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{success(111, 222, 333)}}
	sink := &captureSink{}
	d := newDispatcher(gen, sink, &sleepRecorder{})

	refs := d.Dispatch(context.Background(), request("cat", "dog", "bird"))

	require.Equal(t, []string{ref(111), ref(222), ref(333)}, refs)
	require.Len(t, sink.items, 3)
	for i, prompt := range []string{"cat", "dog", "bird"} {
		assert.Equal(t, prompt, sink.items[i].Prompt)
		assert.Equal(t, []int64{111, 222, 333}[i], sink.items[i].Seed)
		assert.Equal(t, "u1", sink.items[i].UserID)
		assert.Equal(t, []byte("png-bytes"), sink.items[i].Data)
	}
}

func TestDispatchBacksOffOnRateLimits(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{rateLimited, rateLimited, success(42)}}
	sink := &captureSink{}
	sleeps := &sleepRecorder{}
	d := newDispatcher(gen, sink, sleeps)

	refs := d.Dispatch(context.Background(), request("cat"))

	assert.Equal(t, []string{ref(42)}, refs)
	assert.Len(t, gen.calls, 3)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeps.delays)
}

func TestDispatchGivesUpWhenRateLimitPersists(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{rateLimited}}
	sink := &captureSink{}
	sleeps := &sleepRecorder{}
	d := newDispatcher(gen, sink, sleeps)

	refs := d.Dispatch(context.Background(), request("x"))

	assert.Empty(t, refs)
	assert.Empty(t, sink.items)
	assert.Len(t, gen.calls, 3)

	// 5 then 10, and no delay after the final attempt.
	require.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeps.delays)
	var total time.Duration
	for _, d := range sleeps.delays {
		total += d
	}
	assert.Equal(t, 15*time.Second, total)
}

func TestDispatchDoesNotRetryClientErrors(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{{
		Status: image.StatusClientError,
		Code:   400,
		Body:   `{"message":"bad prompt"}`,
	}}}
	sink := &captureSink{}
	sleeps := &sleepRecorder{}
	d := newDispatcher(gen, sink, sleeps)

	refs := d.Dispatch(context.Background(), request("cat"))

	assert.Empty(t, refs)
	assert.Empty(t, sink.items)
	assert.Len(t, gen.calls, 1)
	assert.Empty(t, sleeps.delays)
}

func TestDispatchDoesNotRetryTransportFailures(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{{
		Status: image.StatusTransportFailure,
		Cause:  errors.New("connection reset"),
	}}}
	sink := &captureSink{}
	d := newDispatcher(gen, sink, &sleepRecorder{})

	refs := d.Dispatch(context.Background(), request("cat"))

	assert.Empty(t, refs)
	assert.Len(t, gen.calls, 1)
}

func TestDispatchPersistsOnlyCorrelatedPrefix(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{success(111, 222)}}
	sink := &captureSink{}
	d := newDispatcher(gen, sink, &sleepRecorder{})

	refs := d.Dispatch(context.Background(), request("a", "b", "c"))

	require.Equal(t, []string{ref(111), ref(222)}, refs)
	require.Len(t, sink.items, 2)
	assert.Equal(t, "a", sink.items[0].Prompt)
	assert.Equal(t, "b", sink.items[1].Prompt)
	assert.LessOrEqual(t, len(refs), 3)
}

func TestDispatchSkipsArtifactsThatFailToPersist(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{success(111, 222)}}
	sink := &captureSink{fail: map[int64]error{111: errors.New("insert failed")}}
	d := newDispatcher(gen, sink, &sleepRecorder{})

	refs := d.Dispatch(context.Background(), request("cat", "dog"))

	assert.Equal(t, []string{ref(222)}, refs)
	require.Len(t, sink.items, 1)
	assert.Equal(t, "dog", sink.items[0].Prompt)
}

func TestDispatchEmptyBatchMakesNoCalls(t *testing.T) {
	gen := &scriptedGenerator{results: []image.Result{success(1)}}
	d := newDispatcher(gen, &captureSink{}, &sleepRecorder{})

	refs := d.Dispatch(context.Background(), request())

	assert.Empty(t, refs)
	assert.Empty(t, gen.calls)
}
