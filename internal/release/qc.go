package release

import (
	"fmt"

	"github.com/firmos/backend/internal/guardian"
)

// QCRunner runs quality control for a release request and returns the
// full Guardian report.
type QCRunner interface {
	RunQC(req Request) (*guardian.Report, error)
}

// SnapshotSource resolves a workstream id to its current snapshot.
// Implemented by the workstream registry in the database package.
type SnapshotSource interface {
	Snapshot(workstreamID string) (guardian.WorkstreamContext, bool)
}

// GuardianQC adapts the Guardian check engine to the workflow's QC step:
// it fetches the workstream snapshot named by the request and runs the
// full battery against it.
type GuardianQC struct {
	engine    *guardian.Engine
	snapshots SnapshotSource
}

// NewGuardianQC creates the standard QC runner.
func NewGuardianQC(engine *guardian.Engine, snapshots SnapshotSource) *GuardianQC {
	return &GuardianQC{engine: engine, snapshots: snapshots}
}

// RunQC runs the Guardian battery against the request's workstream.
func (g *GuardianQC) RunQC(req Request) (*guardian.Report, error) {
	ctx, ok := g.snapshots.Snapshot(req.WorkstreamID)
	if !ok {
		return nil, fmt.Errorf("workstream %s not found for release %s", req.WorkstreamID, req.ReleaseID)
	}
	return g.engine.Run(ctx)
}
