package installation

import "context"

// Store is the capability contract shared by all installation store
// backends.
//
// StoreInstallation persists one grant event. Backends derive the tenant
// partition (client ID, enterprise, team-or-null, user) from the
// installation itself; malformed installations are the caller's
// responsibility and only storage driver errors are returned.
//
// FetchInstallation reconstructs the current view for a query. In
// historical mode that is the latest matching row overlaid with the latest
// bot row for the same scope. It returns *NotFoundError when nothing
// matches and is otherwise side-effect free.
type Store interface {
	StoreInstallation(ctx context.Context, inst *Installation) error
	FetchInstallation(ctx context.Context, query Query) (*Installation, error)
}

// Deleter is the optional deletion capability. DeleteInstallation removes
// every row matching the query's tenant/scope filters, not just the latest,
// and is idempotent. Callers must type-assert a Store before invoking it.
type Deleter interface {
	DeleteInstallation(ctx context.Context, query Query) error
}

// Closer is the optional resource-release capability. A store closes only
// connections it created itself, never one supplied by the caller.
type Closer interface {
	Close() error
}
