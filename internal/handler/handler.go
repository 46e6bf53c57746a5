package handler

import (
	"context"
	"errors"

	"github.com/amrit-srivastava/batchgen/internal/dispatch"
	"github.com/amrit-srivastava/batchgen/internal/gallery"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/amrit-srivastava/batchgen/internal/store"
	"github.com/samber/do"
)

type Input struct {
	UserID  string   `json:"user_id"`
	Prompts []string `json:"prompts"`
}

type Output struct {
	ImageURLs []string `json:"image_urls"`
	Generated int      `json:"generated"`
}

type Handler struct {
	coordinator *dispatch.Coordinator
	gallery     *gallery.Generator
	uploader    store.Uploader
	invalidator store.Invalidator
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		coordinator: do.MustInvoke[*dispatch.Coordinator](i),
		gallery:     do.MustInvoke[*gallery.Generator](i),
		uploader:    do.MustInvoke[store.Uploader](i),
		invalidator: do.MustInvoke[store.Invalidator](i),
	}, nil
}

func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("handler").With("user", input.UserID, "prompts", len(input.Prompts))
	log.Info("handling generation request")

	if input.UserID == "" {
		return Output{}, errors.New("user_id is required")
	}
	if len(input.Prompts) == 0 {
		return Output{}, errors.New("at least one prompt is required")
	}

	urls := h.coordinator.Run(ctx, input.UserID, input.Prompts)

	if len(urls) > 0 {
		// The images are already durable; a stale gallery is not worth
		// failing the whole run over.
		if err := h.refreshGallery(ctx, input.UserID); err != nil {
			log.Error("gallery refresh failed", "err", err)
		}
	}

	return Output{ImageURLs: urls, Generated: len(urls)}, nil
}

func (h *Handler) refreshGallery(ctx context.Context, userID string) error {
	rss, err := h.gallery.Generate(ctx, userID)
	if err != nil {
		return err
	}

	name := "gallery/" + userID + ".xml"
	err = h.uploader.Upload(ctx, store.UploadParams{
		Name:        name,
		Data:        rss,
		ContentType: "application/rss+xml",
		Metadata:    map[string]string{"user": userID},
	})
	if err != nil {
		return err
	}

	return h.invalidator.Invalidate(ctx, []string{"/" + name})
}
