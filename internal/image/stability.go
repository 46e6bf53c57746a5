package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type StabilityGenerator struct {
	Client *http.Client
	Host   string
	Engine string
	Key    string
}

func NewStabilityGenerator(i *do.Injector) (Generator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &StabilityGenerator{
		Client: do.MustInvoke[*http.Client](i),
		Host:   cfg.APIHost,
		Engine: cfg.Engine,
		Key:    do.MustInvokeNamed[string](i, "stability_key"),
	}, nil
}

type textPrompt struct {
	Text string `json:"text"`
}

type textToImageRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    float64      `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

type artifactPayload struct {
	Base64 string `json:"base64"`
	Seed   int64  `json:"seed"`
}

type textToImageResponse struct {
	Artifacts []artifactPayload `json:"artifacts"`
}

func (g *StabilityGenerator) Submit(ctx context.Context, prompts []string, params Params) Result {
	log := log.FromContextOrDiscard(ctx).WithGroup("stability").With("prompts", len(prompts), "engine", g.Engine)
	log.Info("submitting generation batch")

	payload := textToImageRequest{
		TextPrompts: lo.Map(prompts, func(p string, _ int) textPrompt {
			return textPrompt{Text: p}
		}),
		CfgScale: params.CfgScale,
		Height:   params.Height,
		Width:    params.Width,
		Samples:  params.Samples,
		Steps:    params.Steps,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Status: StatusTransportFailure, Cause: err}
	}

	url := fmt.Sprintf("%s/v1/generation/%s/text-to-image", g.Host, g.Engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Status: StatusTransportFailure, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.Key)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Result{Status: StatusTransportFailure, Cause: err}
	}
	defer resp.Body.Close()

	// Classification comes from the response status itself.
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Warn("generation rate limited")
		return Result{Status: StatusRateLimited}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		data, _ := io.ReadAll(resp.Body)
		return Result{Status: StatusClientError, Code: resp.StatusCode, Body: string(data)}
	}

	var out textToImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Status: StatusTransportFailure, Cause: fmt.Errorf("decoding response: %w", err)}
	}

	artifacts := lo.Map(out.Artifacts, func(a artifactPayload, _ int) Artifact {
		return Artifact{Base64: a.Base64, Seed: a.Seed}
	})

	log.Info("received artifacts", "count", len(artifacts))
	return Result{Status: StatusSuccess, Artifacts: artifacts}
}
