// Package versioning keeps a bounded, per-character ledger of state versions
// and applies change sets against it with optimistic concurrency.
//
// The character repository is the source of truth for current state. The
// ledger is a derived audit trail held in memory: losing it degrades conflict
// detection (older base versions are no longer resolvable) but never the
// stored character data.
//
// # Components
//
//   - Store: ledger access, lazy seeding, retention and the per-entity lock table.
//   - Resolver: the divergent path of ApplyChanges, key-level conflict detection.
//   - Manager: the public entry point used by HTTP handlers, event subscribers
//     and the CLI. It also runs the background retention cleanup.
//
// # Usage
//
//	mgr := versioning.NewManager(repo, cfg.Versioning, log,
//		versioning.WithRecorder(recorder))
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop(context.Background())
//	v, merged, err := mgr.ApplyChanges(ctx, id, changes, &base)
package versioning
