package dispatch

import (
	"context"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Coordinator fans out one independent dispatch per prompt, so one prompt's
// permanent failure cannot abort its siblings. The alternative, submitting
// the whole batch in a single call, is what Dispatcher itself does when
// handed a multi-prompt Request; callers wanting all-or-nothing retry
// semantics can use it directly.
type Coordinator struct {
	Dispatcher *Dispatcher
	MaxPrompts int
	Defaults   image.Params
}

func NewCoordinator(i *do.Injector) (*Coordinator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Coordinator{
		Dispatcher: do.MustInvoke[*Dispatcher](i),
		MaxPrompts: cfg.MaxPrompts,
		Defaults: image.Params{
			Width:    cfg.DefaultWidth,
			Height:   cfg.DefaultHeight,
			CfgScale: cfg.DefaultCfgScale,
			Steps:    cfg.DefaultSteps,
			Samples:  cfg.DefaultSamples,
		},
	}, nil
}

// Run generates one image per prompt for the given user and returns the
// refs of everything produced, preserving the relative order of the input
// prompts. Prompts beyond the configured maximum are dropped; prompts that
// fail are silently omitted.
func (c *Coordinator) Run(ctx context.Context, userID string, prompts []string) []string {
	log := log.FromContextOrDiscard(ctx).WithGroup("coordinator").With("user", userID)

	if len(prompts) > c.MaxPrompts {
		log.Info("truncating prompt list", "submitted", len(prompts), "max", c.MaxPrompts)
		prompts = prompts[:c.MaxPrompts]
	}
	if len(prompts) == 0 {
		return nil
	}

	// Every task runs to a terminal state before aggregation; failures
	// collapse to an empty slot rather than an error.
	results := make([][]string, len(prompts))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(c.MaxPrompts)
	for idx, prompt := range prompts {
		idx, prompt := idx, prompt
		group.Go(func() error {
			results[idx] = c.Dispatcher.Dispatch(ctx, Request{
				UserID:  userID,
				Prompts: []string{prompt},
				Params:  c.Defaults,
			})
			return nil
		})
	}
	_ = group.Wait()

	refs := lo.Flatten(results)
	log.Info("generation run finished", "requested", len(prompts), "produced", len(refs))
	return refs
}
