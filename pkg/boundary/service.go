package boundary

import (
	"sync"
	"time"

	"github.com/cuemby/hostbroker/pkg/lifecycle"
	"github.com/cuemby/hostbroker/pkg/storage"
	"github.com/cuemby/hostbroker/pkg/template"
)

// Service wires the five boundary operations to the lifecycle engine, the
// template store, and the raw storage strategy (needed for the two
// listing operations, GetRequestStatus's all=true and GetReturnRequests,
// which have no dedicated Engine method since they read across requests
// rather than acting on one).
type Service struct {
	Engine    *lifecycle.Engine
	Templates *template.Store
	Strategy  storage.Strategy
	Limiter   *Limiter

	returnRequestsCacheMu  sync.Mutex
	returnRequestsCachedAt time.Time
	returnRequestsCached   GetReturnRequestsOutput
}

// NewService builds a Service. limiter may be nil, equivalent to a
// disabled Limiter.
func NewService(engine *lifecycle.Engine, templates *template.Store, strategy storage.Strategy, limiter *Limiter) *Service {
	return &Service{Engine: engine, Templates: templates, Strategy: strategy, Limiter: limiter}
}
