package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/artpar/bgplan/internal/core/domain"
	"github.com/artpar/bgplan/internal/core/tfstate"
)

// Result is the outcome of one snapshot load.
type Result struct {
	State   domain.DeploymentState
	Found   bool
	Serial  int64
	Lineage string

	// Problems lists snapshot records that were skipped.
	Problems []*tfstate.RecordError
}

// Loader reads a service's snapshot once and extracts its deployment state.
// It fails open: a missing, unreadable or unparsable snapshot yields the
// empty state, as for a service that was never deployed.
type Loader struct {
	source  Source
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader creates a loader. A zero timeout leaves fetches bounded only by
// the caller's context.
func NewLoader(source Source, timeout time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		source:  source,
		timeout: timeout,
		logger:  logger.With("component", "snapshot"),
	}
}

// Load fetches the snapshot at loc and extracts service's deployment state.
func (l *Loader) Load(ctx context.Context, service string, loc Locator) Result {
	logger := l.logger.With("service", service, "locator", loc.String())

	fetchCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	data, err := l.source.Fetch(fetchCtx, loc)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Info("no snapshot found, assuming nothing is deployed")
		} else {
			logger.Warn("snapshot unavailable, assuming nothing is deployed", "error", err)
		}
		return Result{State: domain.EmptyState()}
	}

	doc, err := tfstate.Parse(data)
	if err != nil {
		logger.Warn("snapshot unreadable, assuming nothing is deployed", "error", err)
		return Result{State: domain.EmptyState()}
	}

	state, problems := tfstate.BuildState(doc.Resources, service)
	for _, p := range problems {
		logger.Warn("skipped snapshot record", "type", p.Type, "name", p.Name, "error", p.Message)
	}

	logger.Debug("loaded snapshot",
		"serial", doc.Serial,
		"presence", state.Presence().String(),
		"skipped", len(problems),
	)

	return Result{
		State:    state,
		Found:    true,
		Serial:   doc.Serial,
		Lineage:  doc.Lineage,
		Problems: problems,
	}
}
