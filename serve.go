package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/9seconds/geotally/api"
	"github.com/9seconds/geotally/tallylib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const serverShutdownTimeout = 10 * time.Second

// tallyService keeps a published tally in sync with the input list and
// the dataset.
type tallyService struct {
	pipeline *pipeline
	state    *api.State
}

// Refresh reruns the pipeline and publishes its result. Previous
// result stays published on errors.
func (t *tallyService) Refresh(ctx context.Context) error {
	result, err := t.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("cannot update a tally: %w", err)
	}

	t.state.Publish(result.Snapshot())
	log.Info().
		Int("addresses", len(result.Addresses)).
		Int("total", result.Table.Total()).
		Msg("Tally has been updated")

	return nil
}

// Reopen swaps a dataset and refreshes the tally.
func (t *tallyService) Reopen(ctx context.Context, path string) error {
	if err := t.pipeline.Open(path); err != nil {
		return fmt.Errorf("cannot reopen a dataset %s: %w", path, err)
	}

	return t.Refresh(ctx)
}

// FileChanged reacts on a changed file: a dataset is reopened, for
// anything else the tally is recalculated.
func (t *tallyService) FileChanged(ctx context.Context, path string) {
	var err error

	if datasetPath, _ := filepath.Abs(t.pipeline.DatasetPath()); path == datasetPath {
		err = t.Reopen(ctx, path)
	} else {
		err = t.Refresh(ctx)
	}

	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Cannot process changed file")
	}
}

func runServe(ctx context.Context, conf *config) error {
	logger := newLogger()

	p, err := newPipeline(afero.NewOsFs(), conf, logger)
	if err != nil {
		return err
	}

	datasetPath := conf.GetDataset()
	opts := api.Options{
		BasicAuthUser:     conf.BasicAuthUser,
		BasicAuthPassword: conf.BasicAuthPassword,
		TrustProxyHeaders: conf.TrustProxyHeaders,
	}

	var fetcher *tallylib.Fetcher

	if canFetch(conf) {
		fetcher, err = makeFetcher(conf, logger)
		if err != nil {
			return err
		}

		if path, err := fetcher.Current(); err == nil {
			datasetPath = path
		}

		opts.Stats = append(opts.Stats, fetcher.UsageStats())
	}

	if err := p.Open(datasetPath); err != nil {
		return err
	}

	defer p.Close()

	service := &tallyService{
		pipeline: p,
		state:    &api.State{},
	}

	if err := service.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Cannot calculate initial tally")
	}

	w, err := newWatcher(func(path string) {
		service.FileChanged(ctx, path)
	}, conf.GetInput(), datasetPath)
	if err != nil {
		return err
	}

	go w.Run(ctx)

	if fetcher != nil {
		go runUpdater(ctx, fetcher, conf.GetUpdateEvery(), datasetPath, func(path string) {
			if err := service.Reopen(ctx, path); err != nil {
				log.Error().Err(err).Msg("Cannot use updated dataset")
			}
		})
	}

	server := &http.Server{
		Addr:    conf.GetListen(),
		Handler: api.MakeServer(p, service.state, opts),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()

		server.Shutdown(shutdownCtx) // nolint: errcheck
	}()

	log.Info().Str("listen", conf.GetListen()).Msg("Start server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server has failed: %w", err)
	}

	return nil
}
