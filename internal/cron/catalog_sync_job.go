package cron

import (
	"context"
	"errors"

	"github.com/angelmondragon/elibrary-backend/internal/catalog"
	"github.com/angelmondragon/elibrary-backend/pkg/logger"
)

type catalogSyncer interface {
	SyncCategories(ctx context.Context) (catalog.SyncStats, error)
}

type catalogSyncJob struct {
	logg   *logger.Logger
	syncer catalogSyncer
}

// NewCatalogSyncJob refreshes every category with books from the public catalogs.
func NewCatalogSyncJob(logg *logger.Logger, syncer catalogSyncer) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if syncer == nil {
		return nil, errors.New("catalog syncer required")
	}
	return &catalogSyncJob{logg: logg, syncer: syncer}, nil
}

func (j *catalogSyncJob) Name() string { return "catalog_sync" }

// Run logs the counts even when some subjects failed; the combined error is returned.
func (j *catalogSyncJob) Run(ctx context.Context) error {
	stats, err := j.syncer.SyncCategories(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"categories": stats.Categories,
		"subjects":   stats.Subjects,
		"books":      stats.Books,
	})
	j.logg.Info(logCtx, "catalog sync pass finished")
	return err
}
