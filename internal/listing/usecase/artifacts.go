package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
)

const (
	phaseOrphan   = "orphan"
	phaseRollback = "rollback"
)

// ArtifactLifecycle orders artifact writes around document transactions:
// stage before, delete the replaced artifact after commit, delete the staged
// one after abort. Deletions are best effort.
type ArtifactLifecycle struct {
	artifacts      domain.ArtifactStore
	logger         *logger.Logger
	metrics        *metrics.Metrics
	cleanupTimeout time.Duration
}

func NewArtifactLifecycle(artifacts domain.ArtifactStore, log *logger.Logger, m *metrics.Metrics, cleanupTimeout time.Duration) *ArtifactLifecycle {
	if cleanupTimeout <= 0 {
		cleanupTimeout = 5 * time.Second
	}
	return &ArtifactLifecycle{
		artifacts:      artifacts,
		logger:         log.Named("artifacts"),
		metrics:        m,
		cleanupTimeout: cleanupTimeout,
	}
}

// StageNew stores blob and returns its reference. Until a transaction
// commits the reference, the caller must hand it to RollbackStaged on any
// failure.
func (a *ArtifactLifecycle) StageNew(ctx context.Context, blob domain.Blob) (string, error) {
	ref, err := a.artifacts.Put(ctx, blob)
	if err != nil {
		a.logger.Error("ArtifactLifecycle.StageNew: failed to store artifact", "name", blob.Name, "error", err)
		return "", fmt.Errorf("stage artifact: %w", err)
	}
	a.metrics.ArtifactsStagedTotal.Inc()
	a.logger.Debug("ArtifactLifecycle.StageNew: artifact staged", "ref", ref)
	return ref, nil
}

// CommitOrphan deletes a reference that a committed write just replaced.
func (a *ArtifactLifecycle) CommitOrphan(ctx context.Context, ref string) {
	a.release(ctx, ref, phaseOrphan)
}

// RollbackStaged deletes a staged reference whose transaction did not commit.
func (a *ArtifactLifecycle) RollbackStaged(ctx context.Context, ref string) {
	a.release(ctx, ref, phaseRollback)
}

func (a *ArtifactLifecycle) release(ctx context.Context, ref, phase string) {
	if ref == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cleanupTimeout)
	defer cancel()

	if err := a.artifacts.Delete(ctx, ref); err != nil {
		a.metrics.ArtifactCleanupFailuresTotal.WithLabelValues(phase).Inc()
		a.logger.Error("ArtifactLifecycle: artifact cleanup failed, blob leaked",
			"phase", phase, "ref", ref, "error", fmt.Errorf("%w: %v", domain.ErrArtifactCleanupFailed, err))
		return
	}
	a.metrics.ArtifactsDeletedTotal.WithLabelValues(phase).Inc()
	a.logger.Debug("ArtifactLifecycle: artifact deleted", "phase", phase, "ref", ref)
}
