package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/amrit-srivastava/batchgen/internal/store"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
)

// Generator renders a user's most recent generations as an RSS feed, which
// gets served as a static object next to the images themselves.
type Generator struct {
	Recorder store.Recorder
	Limit    int
}

func NewGenerator(i *do.Injector) (*Generator, error) {
	return &Generator{
		Recorder: do.MustInvoke[store.Recorder](i),
		Limit:    do.MustInvoke[*config.Config](i).GalleryLimit,
	}, nil
}

func (g *Generator) Generate(ctx context.Context, userID string) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("gallery").With("user", userID)
	log.Info("generating gallery feed")

	records, err := g.Recorder.ListRecent(ctx, userID, g.Limit)
	if err != nil {
		return nil, err
	}

	feed := feeds.Feed{
		Title:       "batchgen",
		Description: "Generated images for " + userID,
		Link:        &feeds.Link{Href: "https://github.com/amrit-srivastava/batchgen"},
		Updated:     time.Now().UTC(),
	}
	for _, r := range records {
		feed.Add(&feeds.Item{
			Title:   fmt.Sprintf("%s (seed %d)", r.Prompt, r.Seed),
			Link:    &feeds.Link{Href: r.ImageURL},
			Created: r.CreatedAt,
		})
	}

	rss, err := feed.ToRss()
	return []byte(rss), err
}
