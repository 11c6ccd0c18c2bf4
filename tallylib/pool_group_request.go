package tallylib

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type resolveRequest struct {
	ctx     context.Context
	cancel  context.CancelFunc
	address string
	policy  ConversionPolicy
	result  *Resolution
	err     *error
	wg      *sync.WaitGroup
}

type poolGroupRequest struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	pool   *ants.PoolWithFunc
	policy ConversionPolicy
}

func (p *poolGroupRequest) Do(address string, result *Resolution, err *error) error {
	select {
	case <-p.ctx.Done():
		return ErrContextIsClosed
	default:
	}

	p.wg.Add(1)

	req := &resolveRequest{
		ctx:     p.ctx,
		cancel:  p.cancel,
		address: address,
		policy:  p.policy,
		result:  result,
		err:     err,
		wg:      p.wg,
	}

	if err := p.pool.Invoke(req); err != nil {
		p.wg.Done()
		p.cancel()

		return fmt.Errorf("cannot schedule a task: %w", err)
	}

	return nil
}

func (p *poolGroupRequest) Wait() {
	p.wg.Wait()
	p.cancel()
}

func newPoolGroupRequest(ctx context.Context, pool *ants.PoolWithFunc, policy ConversionPolicy) *poolGroupRequest {
	ctx, cancel := context.WithCancel(ctx)

	return &poolGroupRequest{
		ctx:    ctx,
		cancel: cancel,
		wg:     &sync.WaitGroup{},
		pool:   pool,
		policy: policy,
	}
}
