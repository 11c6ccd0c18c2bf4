package tallylib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultWorkerPoolSize is 1: addresses are looked up one by one.
	DefaultWorkerPoolSize = 1

	workerPoolExpireTime = time.Minute
)

// ResolverOpts is a set of optional parameters of Resolver.
type ResolverOpts struct {
	// WorkerPoolSize is a number of concurrent lookups. Order of
	// results does not depend on it.
	WorkerPoolSize int

	// ConversionPolicy defines how to treat countries which cannot be
	// converted into alpha-3 codes.
	ConversionPolicy ConversionPolicy
}

// Resolver maps raw addresses into countries using a dataset.
type Resolver struct {
	dataset    Dataset
	normalizer *Normalizer
	logger     Logger
	policy     ConversionPolicy
	usageStats *UsageStats
	workerPool *ants.PoolWithFunc
	rwmutex    sync.RWMutex
	closeOnce  sync.Once
	closed     bool
}

// Resolve returns a resolution for each given address in the same
// order. Addresses which cannot be resolved are present in the result
// but have non-resolved status.
func (r *Resolver) Resolve(ctx context.Context, addresses []string) ([]Resolution, error) {
	return r.ResolveWithPolicy(ctx, addresses, r.policy)
}

// ResolveWithPolicy is Resolve with a conversion policy given per
// call instead of the one of the resolver.
func (r *Resolver) ResolveWithPolicy(ctx context.Context, addresses []string,
	policy ConversionPolicy) ([]Resolution, error) {
	r.rwmutex.RLock()
	defer r.rwmutex.RUnlock()

	if r.closed {
		return nil, ErrResolverShutdown
	}

	rv := make([]Resolution, len(addresses))
	errs := make([]error, len(addresses))
	groupRequest := newPoolGroupRequest(ctx, r.workerPool, policy)

	var scheduleErr error

	for i, v := range addresses {
		if scheduleErr = groupRequest.Do(v, &rv[i], &errs[i]); scheduleErr != nil {
			break
		}
	}

	groupRequest.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolving was interrupted: %w", err)
	}

	if scheduleErr != nil {
		return nil, scheduleErr
	}

	return rv, nil
}

// ResolveCodes returns alpha-3 codes of resolved addresses only.
// Length of the result is never greater than a number of addresses.
func (r *Resolver) ResolveCodes(ctx context.Context, addresses []string) ([]string, error) {
	resolutions, err := r.Resolve(ctx, addresses)
	if err != nil {
		return nil, err
	}

	return Codes(resolutions), nil
}

// UsageStats returns usage statistics of the underlying dataset.
func (r *Resolver) UsageStats() *UsageStats {
	return r.usageStats
}

// Normalizer returns a normalizer which is used by this resolver.
func (r *Resolver) Normalizer() *Normalizer {
	return r.normalizer
}

// Shutdown releases a worker pool. It does not close a dataset: it
// is owned by a caller.
func (r *Resolver) Shutdown() {
	r.rwmutex.Lock()
	defer r.rwmutex.Unlock()

	r.closed = true

	r.closeOnce.Do(func() {
		r.workerPool.Release()
	})
}

func (r *Resolver) resolveTask(args interface{}) {
	params := args.(*resolveRequest)
	defer params.wg.Done()

	result, err := r.resolveAddress(params.ctx, params.address, params.policy)

	*params.result = result

	if err != nil {
		*params.err = err

		params.cancel()
	}
}

func (r *Resolver) resolveAddress(ctx context.Context, address string, policy ConversionPolicy) (Resolution, error) {
	rv := Resolution{
		Address: address,
	}

	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		rv.Status = StatusInvalidAddress

		return rv, nil
	}

	rv.IP = ip

	res, err := r.dataset.Lookup(ctx, ip)

	r.usageStats.Used(err)

	switch {
	case errors.Is(err, ErrNoMatch):
		rv.Status = StatusNoMatch

		return rv, nil
	case err != nil:
		r.logger.LookupError(ip, r.dataset.Name(), err)
		rv.Status = StatusNoMatch

		return rv, nil
	}

	rv.Country = res.CountryName
	if rv.Country == "" {
		rv.Country = res.CountryCode
	}

	alpha3, ok := r.convert(res)
	if ok {
		rv.Code = alpha3
		rv.Status = StatusResolved

		return rv, nil
	}

	rv.Status = StatusUnconvertible

	if policy == ConversionFail {
		return rv, fmt.Errorf("%w: %q of %s", ErrCannotConvert, rv.Country, ip)
	}

	r.logger.ConversionError(ip, rv.Country)

	return rv, nil
}

// convert prefers an alpha-2 code of the dataset: names are
// normalized heuristically and a code is not.
func (r *Resolver) convert(res DatasetLookupResult) (string, bool) {
	if res.CountryCode != "" {
		if alpha3, ok := r.normalizer.Alpha2ToAlpha3(res.CountryCode); ok {
			return alpha3, true
		}
	}

	if res.CountryName != "" {
		return r.normalizer.Alpha3(res.CountryName)
	}

	return "", false
}

// Codes extracts alpha-3 codes of resolved addresses keeping their
// order.
func Codes(resolutions []Resolution) []string {
	rv := make([]string, 0, len(resolutions))

	for i := range resolutions {
		if resolutions[i].OK() {
			rv = append(rv, resolutions[i].Code)
		}
	}

	return rv
}

// NewResolver creates a new resolver. Zero opts are ok: it resolves
// sequentially and drops countries which cannot be converted.
func NewResolver(dataset Dataset, normalizer *Normalizer, logger Logger, opts ResolverOpts) (*Resolver, error) {
	if normalizer == nil {
		n, err := NewNormalizer(DefaultNormalizerCacheSize)
		if err != nil {
			return nil, fmt.Errorf("cannot create a normalizer: %w", err)
		}

		normalizer = n
	}

	rv := &Resolver{
		dataset:    dataset,
		normalizer: normalizer,
		logger:     logger,
		policy:     opts.ConversionPolicy,
		usageStats: &UsageStats{Name: dataset.Name()},
	}

	poolSize := opts.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = DefaultWorkerPoolSize
	}

	pool, err := ants.NewPoolWithFunc(poolSize, rv.resolveTask,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		return nil, fmt.Errorf("cannot create a worker pool: %w", err)
	}

	rv.workerPool = pool

	return rv, nil
}
