// Package ingest orchestrates message processing: durable capture, decode,
// reconcile, persist.
package ingest

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"osprey-cad/core/store"
	"osprey-cad/core/utils"
)

// ArtifactHandle references a durably stored raw payload. Stored is false
// when archiving failed; processing continues regardless, the handle just
// carries no backup.
type ArtifactHandle struct {
	ID     string
	Stored bool
}

// FailureContext carries what was known about a message when it failed, so
// the replay record is useful to an operator.
type FailureContext struct {
	IncidentNumber string
	ReportKind     string
	Stage          string
}

// Gate is the durability gate: every raw payload is archived before any
// parsing is attempted, and failures downstream become durable replay
// records. Both operations are best effort and log-only on error; a broken
// archive must never block ingestion.
type Gate struct {
	archive store.ArchiveStore
	logger  *utils.Logger
}

func NewGate(archive store.ArchiveStore, logger *utils.Logger) *Gate {
	return &Gate{archive: archive, logger: logger}
}

// gateWriteTimeout bounds the gate's own store writes. Gate writes run on a
// context detached from the message's: the failure being recorded is often
// the message context's own timeout, and the record must still land.
const gateWriteTimeout = 5 * time.Second

func (g *Gate) BeforeProcessing(ctx context.Context, raw []byte, source string) ArtifactHandle {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gateWriteTimeout)
	defer cancel()

	id, err := uuid.NewV4()
	if err != nil {
		g.logger.Errorf("durability gate: uuid: %v", err)
		return ArtifactHandle{}
	}
	handle := ArtifactHandle{ID: id.String()}
	err = g.archive.SaveRawMessage(ctx, &store.RawMessage{
		ID:         handle.ID,
		Source:     source,
		Body:       raw,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		g.logger.Errorf("durability gate: archive raw message: %v", err)
		return handle
	}
	handle.Stored = true
	return handle
}

func (g *Gate) OnFailure(ctx context.Context, handle ArtifactHandle, fctx FailureContext, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gateWriteTimeout)
	defer cancel()

	id, err := uuid.NewV4()
	if err != nil {
		g.logger.Errorf("durability gate: uuid: %v", err)
		return
	}
	rec := &store.IngestFailure{
		ID:             id.String(),
		ArtifactID:     handle.ID,
		IncidentNumber: fctx.IncidentNumber,
		ReportKind:     fctx.ReportKind,
		Stage:          fctx.Stage,
		Error:          cause.Error(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := g.archive.SaveFailure(ctx, rec); err != nil {
		g.logger.Errorf("durability gate: record failure (stage=%s incident=%s): %v", fctx.Stage, fctx.IncidentNumber, err)
	}
}
