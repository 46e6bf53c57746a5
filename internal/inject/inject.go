package inject

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/amrit-srivastava/batchgen/internal/config"
	"github.com/amrit-srivastava/batchgen/internal/dispatch"
	"github.com/amrit-srivastava/batchgen/internal/gallery"
	"github.com/amrit-srivastava/batchgen/internal/handler"
	"github.com/amrit-srivastava/batchgen/internal/image"
	"github.com/amrit-srivastava/batchgen/internal/log"
	"github.com/amrit-srivastava/batchgen/internal/param"
	"github.com/amrit-srivastava/batchgen/internal/retry"
	"github.com/amrit-srivastava/batchgen/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/samber/do"
)

func Setup(ctx context.Context) *do.Injector {
	log := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			log.Info(fmt.Sprintf(format, args...))
		},
	})

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return awsconfig.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.ProvideValue[*http.Client](injector, http.DefaultClient)

	do.Provide[*config.Config](injector, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})
	do.Provide[*sql.DB](injector, func(i *do.Injector) (*sql.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		db, err := sql.Open("postgres", cfg.DSN())
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
		return db, nil
	})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	do.ProvideNamed[string](injector, "stability_key", func(i *do.Injector) (string, error) {
		if key := os.Getenv("STABILITY_API_KEY"); key != "" {
			return key, nil
		}
		return do.MustInvoke[param.Fetcher](i).Fetch(ctx, os.Getenv("STABILITY_KEY_PARAM"))
	})

	do.Provide[image.Generator](injector, image.NewStabilityGenerator)
	do.Provide[*retry.Policy](injector, retry.NewPolicy)
	do.Provide[store.Recorder](injector, store.NewPostgresRecorder)
	do.Provide[store.Uploader](injector, store.NewS3Uploader)
	do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
	do.Provide[store.Sink](injector, store.NewArtifactSink)
	do.Provide[*dispatch.Dispatcher](injector, dispatch.NewDispatcher)
	do.Provide[*dispatch.Coordinator](injector, dispatch.NewCoordinator)
	do.Provide[*gallery.Generator](injector, gallery.NewGenerator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	return injector
}
