package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/domain"
)

// PersistTree overwrites the session's tree snapshot. Cache errors are
// reported but the caller is expected to keep relaying live.
func (o *Orchestrator) PersistTree(ctx context.Context, sid domain.SessionID, nodes []domain.TreeNode) error {
	if err := o.Store.PutTree(ctx, sid, nodes); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("session", string(sid)).
			Msg("tree snapshot not persisted")
		return err
	}
	return nil
}

// PersistOpenFile stores the latest full-content snapshot for a path.
// Strictly last-write-wins: whichever update lands here last is what late
// joiners and subsequent reads observe.
func (o *Orchestrator) PersistOpenFile(ctx context.Context, sid domain.SessionID, file domain.OpenFile) error {
	if err := o.Store.PutOpenFile(ctx, sid, file); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("session", string(sid)).
			Str("path", file.Path).Msg("open file not persisted")
		return err
	}
	return nil
}
