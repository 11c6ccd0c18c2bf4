package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/9seconds/geotally/api"
	"github.com/9seconds/geotally/tallylib"
	"github.com/spf13/afero"
)

var errPipelineIsNotReady = errors.New("dataset is not opened yet")

// pipeline owns a dataset with its resolver and runs
// load -> resolve -> aggregate -> join over an input file. A dataset
// can be replaced at runtime.
type pipeline struct {
	fs         afero.Fs
	conf       *config
	logger     tallylib.Logger
	normalizer *tallylib.Normalizer
	boundaries []tallylib.Boundary

	mutex       sync.RWMutex
	dataset     tallylib.Dataset
	datasetPath string
	resolver    *tallylib.Resolver
}

type pipelineResult struct {
	Addresses   []string
	Resolutions []tallylib.Resolution
	Table       tallylib.FrequencyTable
	Rows        []tallylib.ChoroplethRow
}

func (r pipelineResult) Snapshot() api.Snapshot {
	return api.Snapshot{
		Table:     r.Table,
		Rows:      r.Rows,
		Addresses: len(r.Addresses),
	}
}

// Open opens a dataset and swaps it with the current one.
func (p *pipeline) Open(path string) error {
	dataset, err := makeDataset(p.conf, path)
	if err != nil {
		return err
	}

	resolver, err := tallylib.NewResolver(dataset, p.normalizer, p.logger, tallylib.ResolverOpts{
		WorkerPoolSize:   p.conf.GetWorkerPoolSize(),
		ConversionPolicy: p.conf.GetConversionPolicy(),
	})
	if err != nil {
		dataset.Close()

		return fmt.Errorf("cannot create a resolver: %w", err)
	}

	p.mutex.Lock()
	oldDataset, oldResolver := p.dataset, p.resolver
	p.dataset, p.resolver, p.datasetPath = dataset, resolver, path
	p.mutex.Unlock()

	p.release(oldDataset, oldResolver)

	return nil
}

func (p *pipeline) DatasetPath() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.datasetPath
}

func (p *pipeline) Close() {
	p.mutex.Lock()
	oldDataset, oldResolver := p.dataset, p.resolver
	p.dataset, p.resolver = nil, nil
	p.mutex.Unlock()

	p.release(oldDataset, oldResolver)
}

func (p *pipeline) release(dataset tallylib.Dataset, resolver *tallylib.Resolver) {
	if resolver != nil {
		resolver.Shutdown()
	}

	if dataset != nil {
		dataset.Close()
	}
}

func (p *pipeline) current() (*tallylib.Resolver, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.resolver == nil {
		return nil, errPipelineIsNotReady
	}

	return p.resolver, nil
}

// Run executes the whole pipeline over the configured input file.
func (p *pipeline) Run(ctx context.Context) (pipelineResult, error) {
	rv := pipelineResult{}

	addresses, err := tallylib.LoadAddresses(p.fs, p.conf.GetInput())
	if err != nil {
		return rv, fmt.Errorf("cannot load addresses: %w", err)
	}

	resolutions, err := p.Resolve(ctx, addresses)
	if err != nil {
		return rv, err
	}

	rv.Addresses = addresses
	rv.Resolutions = resolutions
	rv.Table = tallylib.Aggregate(tallylib.Codes(resolutions))
	rv.Rows = tallylib.Join(rv.Table, p.boundaries)

	return rv, nil
}

func (p *pipeline) Resolve(ctx context.Context, addresses []string) ([]tallylib.Resolution, error) {
	return p.ResolveWithPolicy(ctx, addresses, p.conf.GetConversionPolicy())
}

func (p *pipeline) ResolveWithPolicy(ctx context.Context, addresses []string,
	policy tallylib.ConversionPolicy) ([]tallylib.Resolution, error) {
	resolver, err := p.current()
	if err != nil {
		return nil, err
	}

	resolutions, err := resolver.ResolveWithPolicy(ctx, addresses, policy)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve addresses: %w", err)
	}

	return resolutions, nil
}

func (p *pipeline) Normalizer() *tallylib.Normalizer {
	return p.normalizer
}

// UsageStats returns stats of the current dataset. After a dataset
// swap counters start from scratch.
func (p *pipeline) UsageStats() *tallylib.UsageStats {
	resolver, err := p.current()
	if err != nil {
		return &tallylib.UsageStats{}
	}

	return resolver.UsageStats()
}

func newPipeline(fs afero.Fs, conf *config, logger tallylib.Logger) (*pipeline, error) {
	normalizer, err := tallylib.NewNormalizer(tallylib.DefaultNormalizerCacheSize)
	if err != nil {
		return nil, fmt.Errorf("cannot create a normalizer: %w", err)
	}

	boundaries, err := loadBoundaries(fs, conf)
	if err != nil {
		return nil, fmt.Errorf("cannot load boundaries: %w", err)
	}

	return &pipeline{
		fs:         fs,
		conf:       conf,
		logger:     logger,
		normalizer: normalizer,
		boundaries: boundaries,
	}, nil
}
