// Package updater drives the update loop that keeps the worker process
// in sync with the chain's published release, and the shutdown
// coordinator that races that loop against OS signals.
package updater

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/chain"
	"github.com/interlay/vault-runner/internal/diagnostics"
	"github.com/interlay/vault-runner/internal/fetch"
	"github.com/interlay/vault-runner/internal/fsmanager"
	"github.com/interlay/vault-runner/internal/retry"
	"github.com/interlay/vault-runner/internal/supervisor"
)

// BlockTime is the parachain block time: the cadence at which the
// update loop polls the chain for the current release.
const BlockTime = 6 * time.Second

// Loop holds everything needed to run one worker process and keep it in
// sync with the chain. It is mutated only by the single goroutine
// running Run — no concurrent access from elsewhere.
type Loop struct {
	logger *zap.Logger

	chainClient *chain.Client
	fetcher     *fetch.Client
	sup         *supervisor.Supervisor

	downloadDir string
	vaultArgs   []string
	stdout      io.Writer

	current *chain.DownloadedRelease
}

// New creates a Loop. stdout is where the worker's stdout is directed —
// pass os.Stdout in production.
func New(
	logger *zap.Logger,
	chainClient *chain.Client,
	fetcher *fetch.Client,
	sup *supervisor.Supervisor,
	downloadDir string,
	vaultArgs []string,
	stdout io.Writer,
) *Loop {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Loop{
		logger:      logger.Named("updater"),
		chainClient: chainClient,
		fetcher:     fetcher,
		sup:         sup,
		downloadDir: downloadDir,
		vaultArgs:   vaultArgs,
		stdout:      stdout,
	}
}

// Run executes the Start step, then polls forever at BlockTime,
// replacing the running worker whenever the chain publishes a release
// with a different URI. It returns only on error or context
// cancellation — a clean exit is not expected (the shutdown coordinator
// treats any return from Run as AutoUpdaterTerminated).
func (l *Loop) Run(ctx context.Context) error {
	if err := os.MkdirAll(l.downloadDir, 0750); err != nil {
		return err
	}

	current, err := l.chainClient.TryGetRelease(ctx, false)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNoInitialRelease
	}

	downloaded, err := l.downloadAndDeploy(ctx, *current)
	if err != nil {
		return err
	}
	l.current = downloaded

	ticker := time.NewTicker(BlockTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := l.tick(ctx); err != nil {
			return err
		}
	}
}

// tick runs one poll cycle: a diagnostics snapshot, a query of the
// (unconsulted) pending release for observability, and the
// current-release comparison that drives replace-in-place.
func (l *Loop) tick(ctx context.Context) error {
	if snap, err := diagnostics.Collect(ctx); err != nil {
		l.logger.Warn("diagnostics snapshot failed", zap.Error(err))
	} else {
		l.logger.Info("diagnostics snapshot",
			zap.Float64("cpu_percent", snap.CPUPercent),
			zap.Float64("mem_percent", snap.MemPercent),
			zap.Float64("disk_percent", snap.DiskPercent),
		)
	}

	// The pending release is queryable but never consulted by the
	// replace decision below — kept and logged at DEBUG so a future
	// staged-rollout policy has a ready hook (SPEC_FULL.md §9).
	if pending, err := l.chainClient.TryGetRelease(ctx, true); err == nil && pending != nil {
		l.logger.Debug("pending release observed (not yet consulted)", zap.String("uri", pending.URI))
	}

	latest, err := l.chainClient.TryGetRelease(ctx, false)
	if err != nil {
		return err
	}
	if latest == nil {
		// No change: the existing worker keeps running.
		return nil
	}
	if l.current != nil && latest.URI == l.current.Release.URI {
		return nil
	}

	l.logger.Info("new release detected, replacing worker",
		zap.String("old_uri", l.currentURI()),
		zap.String("new_uri", latest.URI),
	)

	// terminate -> delete -> download -> spawn, strictly sequenced, so
	// only one process can ever hold shared external resources (e.g. a
	// wallet file): the worker must be fully reaped before its binary
	// is removed.
	if _, err := l.sup.TerminateAndWait(ctx); err != nil {
		return err
	}

	if l.current != nil {
		oldPath := l.current.Path
		if err := retry.DoVoid(ctx, l.logger, "delete release", func() error {
			return fsmanager.DeleteRelease(oldPath)
		}); err != nil {
			return err
		}
	}

	downloaded, err := l.downloadAndDeploy(ctx, *latest)
	if err != nil {
		return err
	}
	l.current = downloaded
	return nil
}

func (l *Loop) currentURI() string {
	if l.current == nil {
		return ""
	}
	return l.current.Release.URI
}

// downloadAndDeploy derives the binary's path, fetches its bytes,
// writes them to disk, and spawns the worker.
func (l *Loop) downloadAndDeploy(ctx context.Context, release chain.ClientRelease) (*chain.DownloadedRelease, error) {
	name, path, err := fsmanager.BinPath(l.downloadDir, release.URI)
	if err != nil {
		return nil, err
	}

	var permanent error
	data, err := retry.Do(ctx, l.logger, "fetch binary", func() ([]byte, error) {
		body, err := l.fetcher.Get(ctx, release.URI)
		if errors.Is(err, fetch.ErrFetchFailed) {
			// Permanent failure: stop retrying and surface it below.
			permanent = err
			return nil, nil
		}
		return body, err
	})
	if permanent != nil {
		return nil, permanent
	}
	if err != nil {
		return nil, err
	}

	if err := retry.DoVoid(ctx, l.logger, "write binary", func() error {
		return fsmanager.WriteBinary(path, data)
	}); err != nil {
		return nil, err
	}

	downloaded := chain.DownloadedRelease{
		Release: release,
		Path:    path,
		BinName: name,
	}

	if err := l.sup.Spawn(ctx, downloaded, l.vaultArgs, l.stdout); err != nil {
		return nil, err
	}

	return &downloaded, nil
}
