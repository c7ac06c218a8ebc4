package workgroup

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/johnhoman/kubeflow-centraldashboard/kube"
)

// DefaultPlatformTTL is how long platform info is served from memory
const DefaultPlatformTTL = 5 * time.Minute

// platformFetchTimeout bounds a fetch, which runs detached from the
// request that started it.
const platformFetchTimeout = 30 * time.Second

// PlatformSource fetches cluster metadata. kube.Interface satisfies it.
type PlatformSource interface {
	PlatformInfo(ctx context.Context) (kube.PlatformInfo, error)
}

// platformCache shares one fetch between concurrent callers and keeps
// the result for ttl. A ttl <= 0 keeps it until the process exits.
// Failed fetches are never stored. A caller that gives up stops waiting
// without cancelling the fetch other callers share.
type platformCache struct {
	source  PlatformSource
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	group singleflight.Group
	// waiting counts callers that joined a fetch and have not returned
	waiting int32

	mu      sync.RWMutex
	info    kube.PlatformInfo
	fetched time.Time
	valid   bool
}

func newPlatformCache(source PlatformSource, ttl time.Duration) *platformCache {
	return &platformCache{
		source:  source,
		ttl:     ttl,
		timeout: platformFetchTimeout,
		now:     time.Now,
	}
}

func (p *platformCache) cached() (kube.PlatformInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.valid {
		return kube.PlatformInfo{}, false
	}
	if p.ttl > 0 && p.now().Sub(p.fetched) >= p.ttl {
		return kube.PlatformInfo{}, false
	}
	return p.info, true
}

func (p *platformCache) Get(ctx context.Context) (kube.PlatformInfo, error) {
	if info, ok := p.cached(); ok {
		return info, nil
	}

	ch := p.group.DoChan("platform", p.fetch)
	atomic.AddInt32(&p.waiting, 1)
	defer atomic.AddInt32(&p.waiting, -1)

	select {
	case <-ctx.Done():
		return kube.PlatformInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return kube.PlatformInfo{}, res.Err
		}
		return res.Val.(kube.PlatformInfo), nil
	}
}

func (p *platformCache) fetch() (any, error) {
	if info, ok := p.cached(); ok {
		return info, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	info, err := p.source.PlatformInfo(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.info = info
	p.fetched = p.now()
	p.valid = true
	p.mu.Unlock()
	return info, nil
}
