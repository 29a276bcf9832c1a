package repository

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"boltstore/internal/domain/installation"
	"boltstore/internal/infrastructure/persistence/mappers"
	"boltstore/internal/infrastructure/persistence/models"
	"boltstore/internal/shared/db"
	"boltstore/internal/shared/errors"
	"boltstore/internal/shared/logger"
)

// Verify interface compliance
var (
	_ installation.Store   = (*InstallationRepository)(nil)
	_ installation.Deleter = (*InstallationRepository)(nil)
	_ installation.Closer  = (*InstallationRepository)(nil)
)

// StoreInstallationCallback is invoked with the about-to-be-persisted row.
// Callers can encrypt columns or stamp custom fields before the write.
type StoreInstallationCallback func(ctx context.Context, row *models.InstallationModel, inst *installation.Installation) error

// FetchInstallationCallback is invoked with the merged row and the
// installation about to be returned.
type FetchInstallationCallback func(ctx context.Context, query installation.Query, row *models.InstallationModel, inst *installation.Installation) error

// DeleteInstallationCallback is invoked before rows matching the query are
// removed.
type DeleteInstallationCallback func(ctx context.Context, query installation.Query) error

// InstallationRepositoryOptions configures a GORM-backed installation store.
// Either DB or ConnectionProvider is required.
type InstallationRepositoryOptions struct {
	// DB is a caller-owned connection. Close never releases it.
	DB *gorm.DB

	// ConnectionProvider supplies a connection per use. The store caches the
	// provided connection unless DisableConnectionCache is set, and Close
	// releases only connections obtained this way.
	ConnectionProvider     func() (*gorm.DB, error)
	DisableConnectionCache bool

	// ClientID is the tenant discriminator. Nil stores and matches rows
	// whose client_id column is NULL.
	ClientID *string

	// HistoricalDataEnabled selects append-only persistence (default true).
	// Nil means true.
	HistoricalDataEnabled *bool

	// TableName overrides the default installations table name.
	TableName string

	// SortColumn orders rows for latest-wins lookups (default "id").
	SortColumn string

	Logger logger.Interface

	OnStoreInstallation  StoreInstallationCallback
	OnFetchInstallation  FetchInstallationCallback
	OnDeleteInstallation DeleteInstallationCallback
}

// InstallationRepository implements installation.Store on a relational
// database through GORM, with Model/Mapper separation.
type InstallationRepository struct {
	callerDB   *gorm.DB
	provider   func() (*gorm.DB, error)
	cacheConn  bool
	mu         sync.Mutex
	cached     *gorm.DB
	clientID   *string
	historical bool
	table      string
	sortColumn string
	mapper     mappers.InstallationMapper
	logger     logger.Interface

	onStore  StoreInstallationCallback
	onFetch  FetchInstallationCallback
	onDelete DeleteInstallationCallback
}

// NewInstallationRepository creates a new InstallationRepository. It fails
// fast when neither a connection nor a connection provider is supplied.
func NewInstallationRepository(opts InstallationRepositoryOptions) (*InstallationRepository, error) {
	if opts.DB == nil && opts.ConnectionProvider == nil {
		return nil, errors.NewConfigurationError("either DB or ConnectionProvider is required to initialize the installation store")
	}

	r := &InstallationRepository{
		callerDB:   opts.DB,
		provider:   opts.ConnectionProvider,
		cacheConn:  !opts.DisableConnectionCache,
		clientID:   opts.ClientID,
		historical: opts.HistoricalDataEnabled == nil || *opts.HistoricalDataEnabled,
		table:      opts.TableName,
		sortColumn: opts.SortColumn,
		mapper:     mappers.NewInstallationMapper(),
		logger:     opts.Logger,
		onStore:    opts.OnStoreInstallation,
		onFetch:    opts.OnFetchInstallation,
		onDelete:   opts.OnDeleteInstallation,
	}
	if r.table == "" {
		r.table = models.InstallationModel{}.TableName()
	}
	if r.sortColumn == "" {
		r.sortColumn = "id"
	}
	if r.logger == nil {
		r.logger = logger.NewNop()
	}
	r.logger.Debug("installation store initialized",
		"client_id", strDeref(r.clientID), "table", r.table, "historical", r.historical)
	return r, nil
}

// StoreInstallation persists one grant event. In historical mode every call
// appends a new row; otherwise the row for the derived scope is updated in
// place, or inserted when missing. The read-then-write upsert is not atomic:
// two concurrent non-historical stores for one scope may lose an update.
func (r *InstallationRepository) StoreInstallation(ctx context.Context, inst *installation.Installation) error {
	q := inst.Query()
	r.logger.Debug("#storeInstallation starts " + q.LogPart())

	conn, err := r.conn()
	if err != nil {
		return err
	}
	tx := conn.WithContext(ctx)

	row := r.mapper.ToModel(r.clientID, inst)
	if !r.historical {
		var existing []*models.InstallationModel
		err := tx.Table(r.table).
			Scopes(r.buildScopes(q)...).
			Order(r.sortColumn + " DESC").Limit(1).
			Find(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to look up existing installation: %w", err)
		}
		if len(existing) > 0 {
			row.ID = existing[0].ID
		}
	}
	if r.onStore != nil {
		if err := r.onStore(ctx, row, inst); err != nil {
			return err
		}
	}
	if row.ID != 0 {
		if err := tx.Table(r.table).Save(row).Error; err != nil {
			return fmt.Errorf("failed to update installation: %w", err)
		}
	} else {
		if err := tx.Table(r.table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to create installation: %w", err)
		}
	}

	r.logger.Debug("#storeInstallation successfully completed " + q.LogPart())
	return nil
}

// FetchInstallation reconstructs the current installation for the query.
// In historical mode the latest row matching the full filter is overlaid
// with the bot columns of the latest row matching the same scope without
// the user filter, so the shared bot token reflects whichever user
// authorized most recently. The two reads are not transactional; a
// concurrent store may produce a torn combination of user and bot rows.
func (r *InstallationRepository) FetchInstallation(ctx context.Context, query installation.Query) (*installation.Installation, error) {
	r.logger.Debug("#fetchInstallation starts " + query.LogPart())

	conn, err := r.conn()
	if err != nil {
		return nil, err
	}
	tx := conn.WithContext(ctx)

	row, err := r.findLatest(tx, query)
	if err != nil {
		return nil, err
	}
	if query.UserID != nil {
		botRow, err := r.findLatest(tx, query.WithoutUser())
		if err != nil {
			return nil, err
		}
		if botRow != nil && botRow.BotID != nil {
			if row != nil {
				r.mapper.OverlayBot(row, botRow)
			} else {
				row = botRow
			}
		}
	}
	if row == nil {
		r.logger.Debug("#fetchInstallation didn't return any installation data " + query.LogPart())
		return nil, installation.NewNotFoundError(query)
	}

	r.logger.Debug("#fetchInstallation found the installation data " + query.LogPart())
	inst := r.mapper.ToDomain(row)
	if r.onFetch != nil {
		if err := r.onFetch(ctx, query, row, inst); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// DeleteInstallation removes every row matching the query's filters.
// Deleting a non-existent match is not an error.
func (r *InstallationRepository) DeleteInstallation(ctx context.Context, query installation.Query) error {
	r.logger.Debug("#deleteInstallation starts " + query.LogPart())

	if r.onDelete != nil {
		if err := r.onDelete(ctx, query); err != nil {
			return err
		}
	}

	conn, err := r.conn()
	if err != nil {
		return err
	}
	result := conn.WithContext(ctx).Table(r.table).
		Scopes(r.buildScopes(query)...).
		Delete(&models.InstallationModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete installations: %w", result.Error)
	}

	r.logger.Debug(fmt.Sprintf("#deleteInstallation deleted %d rows %s", result.RowsAffected, query.LogPart()))
	return nil
}

// Close releases the connection the store obtained from its provider.
// A caller-supplied DB is never closed here.
func (r *InstallationRepository) Close() error {
	r.mu.Lock()
	cached := r.cached
	r.cached = nil
	r.mu.Unlock()

	if cached == nil {
		return nil
	}
	sqlDB, err := cached.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}

func (r *InstallationRepository) conn() (*gorm.DB, error) {
	if r.callerDB != nil {
		return r.callerDB, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheConn && r.cached != nil {
		return r.cached, nil
	}
	conn, err := r.provider()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain database connection: %w", err)
	}
	if r.cacheConn {
		r.cached = conn
	}
	return conn, nil
}

// buildScopes translates the query into presence-aware filters. Org-wide
// queries force team_id IS NULL so they never match team-scoped rows.
func (r *InstallationRepository) buildScopes(q installation.Query) []func(*gorm.DB) *gorm.DB {
	scopes := []func(*gorm.DB) *gorm.DB{
		db.EqOrNull("client_id", r.clientID),
		db.EqIfPresent("enterprise_id", q.EnterpriseID),
	}
	if q.IsEnterpriseInstall {
		scopes = append(scopes, db.IsNull("team_id"))
	} else {
		scopes = append(scopes, db.EqIfPresent("team_id", q.TeamID))
	}
	scopes = append(scopes, db.EqIfPresent("user_id", q.UserID))
	return scopes
}

func (r *InstallationRepository) findLatest(tx *gorm.DB, q installation.Query) (*models.InstallationModel, error) {
	var rows []*models.InstallationModel
	err := tx.Table(r.table).
		Scopes(r.buildScopes(q)...).
		Order(r.sortColumn + " DESC").Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query installations: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func strDeref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
