package pipeline

import (
	"context"
	"fmt"
)

// Clean re-validates every record of an existing manifest: timestamps are
// re-resolved (explicit value first, then filename), out-of-window and
// unresolvable records are dropped, and duplicate paths collapse to their
// last occurrence. The result reports how many records were removed.
// A missing manifest returns ErrManifestNotFound.
func (b *Builder) Clean(ctx context.Context) (Result, error) {
	lock, err := b.lock()
	if err != nil {
		return Result{}, err
	}
	defer releaseLock(lock, b.logger)

	raw, found, err := b.readRaw(ctx)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Result{}, fmt.Errorf("%w: %s", ErrManifestNotFound, b.cfg.VerboseKey)
	}

	m, stats := b.canonicalizer().BuildWithStats(raw)
	res, err := b.commit(ctx, ModeClean, m, stats)
	if err != nil {
		return Result{}, err
	}

	b.logger.Info("manifest cleaned", map[string]any{
		"removed": res.Removed(),
		"kept":    res.Kept(),
	})
	return res, nil
}
