package core

import (
	"context"

	"github.com/coderush/relay/internal/domain"
)

// TreeStore persists the last-known tree snapshot and open-file contents
// per session in an external cache. At most one snapshot per session; a put
// overwrites, never versions. Callers treat errors as degraded mode, not
// failure of the surrounding operation.
type TreeStore interface {
	PutTree(ctx context.Context, sid domain.SessionID, nodes []domain.TreeNode) error
	// GetTree reports ok=false when no snapshot exists for the session.
	GetTree(ctx context.Context, sid domain.SessionID) (nodes []domain.TreeNode, ok bool, err error)
	PutOpenFile(ctx context.Context, sid domain.SessionID, file domain.OpenFile) error
	GetOpenFile(ctx context.Context, sid domain.SessionID, path string) (file domain.OpenFile, ok bool, err error)
}
