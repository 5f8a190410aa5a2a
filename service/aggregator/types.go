package aggregator

import (
	"context"

	"github.com/thirukguru/aws-ic-report/model"
	"github.com/thirukguru/aws-ic-report/service/accounts"
	awsidentity "github.com/thirukguru/aws-ic-report/service/identitystore"
	awssso "github.com/thirukguru/aws-ic-report/service/ssoadmin"
)

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	// Workers bounds how many accounts are aggregated concurrently.
	Workers int
	// MaxAttempts is the per-call retry budget for throttled/transient errors.
	MaxAttempts int
	// FailFast aborts the whole run on the first account failure instead of
	// degrading to a partial report.
	FailFast bool
	// Sort applies the canonical (account, permission set, principal,
	// resolved user) sort for reproducible diffs across runs. Without it rows
	// keep traversal order, which is stable only within one run.
	Sort bool
}

const defaultWorkers = 4

// Result is the outcome of one aggregation run. Failures covers both
// hard per-account failures and degraded-reference warnings; it is reported
// separately from the row data.
type Result struct {
	Rows     []model.ReportRow
	Failures []model.AccountFailure
	Summary  model.RunSummary
}

// Service is the aggregation and flattening engine.
type Service interface {
	Aggregate(ctx context.Context, accountIDs []string) (*Result, error)
}

type service struct {
	instance awssso.Instance
	sso      awssso.Service
	identity awsidentity.Service
	meta     accounts.Store
	opts     Options
	retry    *retrier
}

// NewService creates a new aggregation engine for one Identity Center
// instance. The metadata store and both gateways are injected so the engine
// never touches ambient credential or prompt state.
func NewService(instance awssso.Instance, ssoSvc awssso.Service, identitySvc awsidentity.Service, metaStore accounts.Store, opts Options) Service {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if metaStore == nil {
		metaStore = accounts.NewStore(nil)
	}
	return &service{
		instance: instance,
		sso:      ssoSvc,
		identity: identitySvc,
		meta:     metaStore,
		opts:     opts,
		retry:    newRetrier(opts.MaxAttempts),
	}
}
