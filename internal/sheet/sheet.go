// Package sheet opens the shared worksheet store in read-only or read-write
// mode and defines the store-level error taxonomy.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketsync/internal/config"
	"marketsync/internal/db"
	"marketsync/internal/repository"
	gormrepository "marketsync/internal/repository/gorm"
	"marketsync/internal/repository/memory"
)

var (
	ErrSourceUnavailable      = errors.New("source unavailable")
	ErrCredentialsUnavailable = errors.New("credentials unavailable")
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Spreadsheet is an open handle on the worksheet store.
type Spreadsheet struct {
	Repo     repository.WorksheetRepository
	DB       *db.DB
	ReadOnly bool
}

func (s *Spreadsheet) Close() error {
	if s == nil {
		return nil
	}
	return db.Close(s.DB)
}

// Dialer connects to a Postgres-backed store.
type Dialer func(cfg config.StoreConfig, dsn string, migrate bool) (repository.WorksheetRepository, *db.DB, error)

type Opener struct {
	Config config.StoreConfig
	Logger *zap.Logger
	// Memory backs the "memory" driver; created lazily.
	Memory *memory.Store
	Dial   Dialer
}

// Open returns a handle in the requested mode. Write access without a
// read-write DSN fails with ErrCredentialsUnavailable.
func (o *Opener) Open(ctx context.Context, readOnly bool) (*Spreadsheet, error) {
	_ = ctx
	driver := strings.ToLower(strings.TrimSpace(o.Config.Driver))
	if driver == "" {
		driver = DriverPostgres
	}
	switch driver {
	case DriverMemory:
		if o.Memory == nil {
			o.Memory = memory.NewStore()
		}
		return wrap(o.Memory, nil, readOnly), nil
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", ErrSourceUnavailable, driver)
	}

	dsn := strings.TrimSpace(o.Config.DSN)
	if readOnly {
		if ro := strings.TrimSpace(o.Config.ReadOnlyDSN); ro != "" {
			dsn = ro
		}
		if dsn == "" {
			return nil, fmt.Errorf("%w: no store dsn configured", ErrSourceUnavailable)
		}
	} else if dsn == "" {
		return nil, fmt.Errorf("%w: read-write access needs store.dsn", ErrCredentialsUnavailable)
	}

	dial := o.Dial
	if dial == nil {
		dial = DialPostgres
	}
	repo, conn, err := dial(o.Config, dsn, !readOnly && o.Config.AutoMigrate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return wrap(repo, conn, readOnly), nil
}

// OpenForRead prefers a read-write session and falls back to read-only when
// no credentials exist.
func (o *Opener) OpenForRead(ctx context.Context) (*Spreadsheet, error) {
	s, err := o.Open(ctx, false)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrCredentialsUnavailable) {
		return nil, err
	}
	if o.Logger != nil {
		o.Logger.Info("no credentials found, falling back to read-only mode")
	}
	return o.Open(ctx, true)
}

func DialPostgres(cfg config.StoreConfig, dsn string, migrate bool) (repository.WorksheetRepository, *db.DB, error) {
	conn, err := db.Open(cfg, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(conn); err != nil {
		_ = db.Close(conn)
		return nil, nil, err
	}
	if err := db.SetTimezone(conn, cfg.Timezone); err != nil {
		_ = db.Close(conn)
		return nil, nil, err
	}
	if migrate {
		if err := db.AutoMigrate(conn); err != nil {
			_ = db.Close(conn)
			return nil, nil, err
		}
	}
	return gormrepository.New(conn.Gorm), conn, nil
}

func wrap(repo repository.WorksheetRepository, conn *db.DB, readOnly bool) *Spreadsheet {
	if readOnly {
		repo = ReadOnly{Repo: repo}
	}
	return &Spreadsheet{Repo: repo, DB: conn, ReadOnly: readOnly}
}

// ReadOnly rejects every mutation with repository.ErrReadOnly.
type ReadOnly struct {
	Repo repository.WorksheetReader
}

func (r ReadOnly) Values(ctx context.Context, worksheet string) ([][]string, error) {
	return r.Repo.Values(ctx, worksheet)
}

func (r ReadOnly) Header(ctx context.Context, worksheet string) ([]string, error) {
	return r.Repo.Header(ctx, worksheet)
}

func (r ReadOnly) DeleteRows(ctx context.Context, worksheet string, start, end int) error {
	return fmt.Errorf("delete rows of %q: %w", worksheet, repository.ErrReadOnly)
}

func (r ReadOnly) AppendRow(ctx context.Context, worksheet string, values []string) error {
	return fmt.Errorf("append row to %q: %w", worksheet, repository.ErrReadOnly)
}

// Shared hands out views of one already-open handle, for long-running
// processes that should not dial per request. Closing a view is a no-op.
type Shared struct {
	Handle *Spreadsheet
}

func (s *Shared) Open(ctx context.Context, readOnly bool) (*Spreadsheet, error) {
	_ = ctx
	if s == nil || s.Handle == nil {
		return nil, fmt.Errorf("%w: store not open", ErrSourceUnavailable)
	}
	if !readOnly && s.Handle.ReadOnly {
		return nil, fmt.Errorf("%w: store opened read-only", ErrCredentialsUnavailable)
	}
	if readOnly && !s.Handle.ReadOnly {
		return wrap(s.Handle.Repo, nil, true), nil
	}
	return &Spreadsheet{Repo: s.Handle.Repo, ReadOnly: s.Handle.ReadOnly}, nil
}

func (s *Shared) OpenForRead(ctx context.Context) (*Spreadsheet, error) {
	if s == nil || s.Handle == nil {
		return nil, fmt.Errorf("%w: store not open", ErrSourceUnavailable)
	}
	return s.Open(ctx, s.Handle.ReadOnly)
}
