package cmd

import (
	"context"
	"fmt"
	"time"

	"character-sync/core/config"
	"character-sync/core/database"
	"character-sync/core/fieldmerge"
	"character-sync/core/metrics"
	"character-sync/core/reconcile"
	"character-sync/core/storage"
	"character-sync/core/versioning"
	"character-sync/feature/character"
	"character-sync/feature/integrity"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime bundles the services shared by the commands.
type runtime struct {
	db        *gorm.DB
	client    storage.Client
	repo      *character.Repository
	manager   *versioning.Manager
	service   *character.Service
	recorder  *metrics.PrometheusRecorder
	integrity *integrity.Service
}

// defaultFieldModes are the sync modes of well-known character fields.
var defaultFieldModes = map[string]fieldmerge.Mode{
	"gold":       fieldmerge.ModeIncremental,
	"experience": fieldmerge.ModeIncremental,
	"inventory":  fieldmerge.ModeMerge,
	"tags":       fieldmerge.ModeMerge,
}

// buildRuntime connects the database and optional archive and assembles the
// character service. The version manager is returned unstarted.
func buildRuntime(ctx context.Context, cfg *config.Config, l *zap.Logger) (*runtime, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	repo := character.NewRepository(db)
	if err := repo.Prepare(cfg.Database.AutoMigrate); err != nil {
		return nil, err
	}

	rt := &runtime{db: db, repo: repo}
	opts := []versioning.Option{}
	if cfg.Metrics.Enabled {
		rt.recorder = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, versioning.WithRecorder(rt.recorder))
	}

	var archive character.ArchiveReader
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := storage.EnsureBucket(bucketCtx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, fmt.Errorf("version archive unavailable: %w", err)
		}
		rt.client = client
		archiver := versioning.NewObjectArchiver(client, cfg.Storage.Bucket, cfg.Storage.Prefix)
		opts = append(opts, versioning.WithArchiver(archiver))
		archive = archiver
		l.Info("Version archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	}

	rt.manager = versioning.NewManager(repo, cfg.Versioning, l, opts...)
	reconciler := reconcile.NewReconciler(&reconcile.Spec{FieldModes: defaultFieldModes}, l)
	rt.service = character.NewService(repo, rt.manager, reconciler, archive, l)
	rt.integrity = integrity.NewService(db, rt.client, cfg.Storage, rt.manager, repo, l)
	return rt, nil
}
