package dispatch

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/amrit-srivastava/batchgen/internal/retry"
	"github.com/amrit-srivastava/batchgen/internal/store"
	"github.com/samber/do"
)

// Request is one logical batch: an ordered prompt list and the shared
// generation parameters. Prompt order is the correlation key between a
// submitted prompt and its returned artifact.
type Request struct {
	UserID  string
	Prompts []string
	Params  image.Params
}

// Dispatcher drives one batch through the generation service under the
// retry policy and persists whatever was fully correlated. Failures never
// escape as errors; a prompt that produced nothing simply yields no ref.
type Dispatcher struct {
	Generator image.Generator
	Policy    *retry.Policy
	Sink      store.Sink

	// Sleep is overridable so tests can observe backoff without waiting.
	Sleep func(context.Context, time.Duration) error
}

func NewDispatcher(i *do.Injector) (*Dispatcher, error) {
	return &Dispatcher{
		Generator: do.MustInvoke[image.Generator](i),
		Policy:    do.MustInvoke[*retry.Policy](i),
		Sink:      do.MustInvoke[store.Sink](i),
	}, nil
}

// Dispatch submits the full batch, retrying on rate limits only, and
// returns the refs of the artifacts that were generated and persisted, in
// prompt order. The returned slice never exceeds len(req.Prompts).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) []string {
	log := log.FromContextOrDiscard(ctx).WithGroup("dispatcher").With("user", req.UserID, "prompts", len(req.Prompts))

	if len(req.Prompts) == 0 {
		return nil
	}

	for attempt := 1; ; attempt++ {
		res := d.Generator.Submit(ctx, req.Prompts, req.Params)

		switch res.Status {
		case image.StatusSuccess:
			return d.persist(ctx, req, res.Artifacts)
		case image.StatusRateLimited:
			if !d.Policy.ShouldRetry(attempt, res.Status) {
				log.Warn("rate limited, retries exhausted", "attempts", attempt)
				return nil
			}
			delay := d.Policy.NextDelay(attempt)
			log.Info("rate limited, backing off", "attempt", attempt, "delay", delay)
			if err := d.sleep(ctx, delay); err != nil {
				log.Warn("backoff abandoned", "err", err)
				return nil
			}
		case image.StatusClientError:
			log.Error("generation rejected", "code", res.Code, "body", res.Body)
			return nil
		default:
			log.Error("generation transport failure", "err", res.Cause)
			return nil
		}
	}
}

func (d *Dispatcher) persist(ctx context.Context, req Request, artifacts []image.Artifact) []string {
	log := log.FromContextOrDiscard(ctx).WithGroup("dispatcher").With("user", req.UserID)

	// Only fully correlated prompt/artifact pairs are trusted; anything
	// past the shorter length is dropped.
	if len(artifacts) != len(req.Prompts) {
		log.Error("artifact count mismatch", "prompts", len(req.Prompts), "artifacts", len(artifacts))
	}
	n := min(len(artifacts), len(req.Prompts))

	refs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		data, err := base64.StdEncoding.DecodeString(artifacts[i].Base64)
		if err != nil {
			log.Error("artifact payload not decodable", "prompt", req.Prompts[i], "seed", artifacts[i].Seed, "err", err)
			continue
		}

		ref, err := d.Sink.Persist(ctx, store.Item{
			UserID: req.UserID,
			Prompt: req.Prompts[i],
			Params: req.Params,
			Seed:   artifacts[i].Seed,
			Data:   data,
		})
		if err != nil {
			// The artifact was generated but is not durably recorded.
			log.Error("artifact generated but not persisted", "prompt", req.Prompts[i], "seed", artifacts[i].Seed, "err", err)
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func (d *Dispatcher) sleep(ctx context.Context, delay time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, delay)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
