package store

import (
	"context"
	"fmt"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/samber/do"
)

// Item is one successfully generated artifact paired with the prompt that
// produced it, ready to be persisted.
type Item struct {
	UserID string
	Prompt string
	Params image.Params
	Seed   int64
	Data   []byte
}

// Sink persists one artifact and returns its public reference. A sink
// failure after a successful generation is the caller's signal that the
// artifact exists but was not durably recorded.
type Sink interface {
	Persist(context.Context, Item) (string, error)
}

// ArtifactSink uploads the image payload to object storage and then inserts
// the record row. The row is written only after the payload is durable, so
// every recorded URL resolves.
type ArtifactSink struct {
	Uploader Uploader
	Recorder Recorder
	BaseURL  string
}

func NewArtifactSink(i *do.Injector) (Sink, error) {
	return &ArtifactSink{
		Uploader: do.MustInvoke[Uploader](i),
		Recorder: do.MustInvoke[Recorder](i),
		BaseURL:  do.MustInvoke[*config.Config](i).PublicBaseURL,
	}, nil
}

func (s *ArtifactSink) Persist(ctx context.Context, item Item) (string, error) {
	name := fmt.Sprintf("%d.png", item.Seed)

	err := s.Uploader.Upload(ctx, UploadParams{
		Name:        name,
		Data:        item.Data,
		ContentType: "image/png",
		Metadata: map[string]string{
			"user":   item.UserID,
			"prompt": item.Prompt,
			"seed":   fmt.Sprintf("%d", item.Seed),
		},
	})
	if err != nil {
		return "", fmt.Errorf("uploading payload: %w", err)
	}

	url := s.BaseURL + "/" + name
	_, err = s.Recorder.Create(ctx, Record{
		UserID:   item.UserID,
		Prompt:   item.Prompt,
		ImageURL: url,
		Width:    item.Params.Width,
		Height:   item.Params.Height,
		CfgScale: item.Params.CfgScale,
		Steps:    item.Params.Steps,
		Seed:     item.Seed,
	})
	if err != nil {
		return "", fmt.Errorf("recording uploaded artifact: %w", err)
	}
	return url, nil
}
