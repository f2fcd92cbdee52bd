package dataref

import (
	"context"

	"github.com/gcmshadow/pipe-base/internal/ctxlog"
	"github.com/gcmshadow/pipe-base/internal/dataid"
	"github.com/gcmshadow/pipe-base/internal/repo"
)

// Materialize resolves each identifier to its matching references at level
// and drops references without existing data. An identifier yielding no
// surviving references logs a warning and is skipped; that is not fatal.
// Surviving references concatenate in identifier order.
func Materialize(ctx context.Context, ids []dataid.Typed, r *repo.Repository, datasetType, level string) ([]*repo.Ref, error) {
	logger := ctxlog.FromContext(ctx)
	var out []*repo.Ref
	for _, id := range ids {
		refs, err := r.Subset(ctx, datasetType, level, id)
		if err != nil {
			return nil, err
		}
		var surviving []*repo.Ref
		for _, ref := range refs {
			if Exists(ref) {
				surviving = append(surviving, ref)
			}
		}
		if len(surviving) == 0 {
			logger.Warn("No data found for identifier.", "id", id.String())
			continue
		}
		out = append(out, surviving...)
	}
	return out, nil
}

// Exists reports whether a reference has data: a leaf exists iff its bytes
// are present, and a reference with sub-references exists if any descendant
// does.
func Exists(ref *repo.Ref) bool {
	subs := ref.SubItems()
	if len(subs) == 0 {
		return ref.Exists()
	}
	for _, sub := range subs {
		if Exists(sub) {
			return true
		}
	}
	return false
}
