package ingest

import (
	"context"
	"sync"
	"time"

	"osprey-cad/core/cad"
	"osprey-cad/core/reconcile"
	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

// OutcomeFunc receives every successful reconciliation outcome after it has
// been persisted.
type OutcomeFunc func(ctx context.Context, out *reconcile.Outcome)

// Pipeline runs one message end to end: durability gate, decode, reconcile,
// persist. Messages for different incidents process in parallel under a
// bounded semaphore; messages for the same incident number serialize on a
// keyed lock so the read-modify-write of an aggregate never races.
type Pipeline struct {
	gate       *Gate
	incidents  store.IncidentsStore
	reconciler *reconcile.Reconciler
	logger     *utils.Logger
	notify     OutcomeFunc
	timeout    time.Duration
	sem        chan struct{}
	locks      keyedLocks
}

func NewPipeline(gate *Gate, incidents store.IncidentsStore, rec *reconcile.Reconciler, maxConcurrent int, timeout time.Duration, logger *utils.Logger) *Pipeline {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Pipeline{
		gate:       gate,
		incidents:  incidents,
		reconciler: rec,
		logger:     logger,
		timeout:    timeout,
		sem:        make(chan struct{}, maxConcurrent),
	}
}

// SetNotifier registers the consumer of reconciliation outcomes.
func (p *Pipeline) SetNotifier(fn OutcomeFunc) {
	p.notify = fn
}

// Process handles a single raw message. A decode failure drops the message
// (raw copy retained); a reconciliation or persistence failure records a
// replayable failure. Errors are local to this message and never affect
// other incidents.
func (p *Pipeline) Process(ctx context.Context, raw []byte, source string) (*reconcile.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	handle := p.gate.BeforeProcessing(ctx, raw, source)
	return p.run(ctx, raw, handle)
}

// ProcessArchived re-runs a payload that is already behind the durability
// gate, reusing its artifact id instead of archiving a second copy. This is
// the replay path for recorded failures.
func (p *Pipeline) ProcessArchived(ctx context.Context, raw []byte, artifactID string) (*reconcile.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	return p.run(ctx, raw, ArtifactHandle{ID: artifactID, Stored: true})
}

func (p *Pipeline) run(ctx context.Context, raw []byte, handle ArtifactHandle) (*reconcile.Outcome, error) {
	rpt, err := cad.Decode(raw)
	if err != nil {
		p.logger.Warnf("decode (artifact=%s): %v", handle.ID, err)
		p.gate.OnFailure(ctx, handle, FailureContext{Stage: "decode"}, err)
		return nil, err
	}

	fctx := FailureContext{
		IncidentNumber: rpt.IncidentNumber,
		ReportKind:     string(rpt.Kind),
		Stage:          "reconcile",
	}

	release := p.locks.acquire(rpt.IncidentNumber)
	defer release()

	prior, err := p.incidents.GetIncidentByNumber(ctx, rpt.IncidentNumber)
	if err != nil {
		p.gate.OnFailure(ctx, handle, fctx, err)
		return nil, err
	}
	out, err := p.reconciler.Apply(ctx, rpt, prior, handle.ID)
	if err != nil {
		p.gate.OnFailure(ctx, handle, fctx, err)
		return nil, err
	}

	fctx.Stage = "persist"
	if prior == nil {
		err = p.incidents.CreateIncident(ctx, out.Aggregate)
	} else {
		err = p.incidents.UpdateIncident(ctx, out.Aggregate, prior.Version)
	}
	if err != nil {
		p.gate.OnFailure(ctx, handle, fctx, err)
		return nil, err
	}

	if p.notify != nil {
		p.notify(ctx, out)
	}
	return out, nil
}

// keyedLocks serializes work per incident number while leaving other keys
// fully parallel. Entries are reference counted and removed when idle.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedLocks) acquire(key string) (release func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*lockEntry{}
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
