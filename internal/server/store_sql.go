package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"stockroom/internal/shared"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const itemColumns = `id, name, quantity, price, created_at`

// SQLStore keeps items in the items table of a SQLite or Postgres database.
// Every call checks a connection out of the pool and returns it before
// the call ends, on error paths too.
type SQLStore struct {
	DB     *sql.DB
	Driver string
	// TracerProvider receives the db.* spans; nil means the global provider.
	TracerProvider trace.TracerProvider
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{DB: db, Driver: driver}
}

// OpenStore turns DB_PATH into a ready Store: ":memory:" for a process-local
// store, a postgres URL, or a SQLite file path (its directory is created).
func OpenStore(path string, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if path == ":memory:" {
		logger.Printf("db: in-memory store, items are not persisted")
		return NewMemoryStore(), nil
	}

	driver := DriverFor(path)
	if driver == DriverSQLite {
		dbDir := filepath.Dir(path)
		if dbDir != "." && dbDir != "" {
			if err := os.MkdirAll(dbDir, 0700); err != nil {
				return nil, fmt.Errorf("create db dir %s: %w", dbDir, err)
			}
		}
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, driver), nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) tracer() trace.Tracer {
	tp := s.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("stockroom/db")
}

func (s *SQLStore) withConn(ctx context.Context, op, query string, fn func(ctx context.Context, conn *sql.Conn, query string) error) error {
	ctx, span := s.tracer().Start(ctx, "db."+op, trace.WithAttributes(
		attribute.String("db.system", s.system()),
		attribute.String("db.operation", op),
		attribute.String("db.statement", query),
	))
	defer span.End()

	err := func() error {
		conn, err := s.DB.Conn(ctx)
		if err != nil {
			return fmt.Errorf("checkout connection: %w", err)
		}
		defer conn.Close()
		return fn(ctx, conn, rebind(s.Driver, query))
	}()
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *SQLStore) system() string {
	if s.Driver == DriverPostgres {
		return "postgresql"
	}
	return "sqlite"
}

func (s *SQLStore) ListItems(ctx context.Context) ([]shared.Item, error) {
	items := make([]shared.Item, 0)
	err := s.withConn(ctx, "SELECT", `SELECT `+itemColumns+` FROM items`,
		func(ctx context.Context, conn *sql.Conn, q string) error {
			rows, err := conn.QueryContext(ctx, q)
			if err != nil {
				return err
			}
			defer rows.Close()

			for rows.Next() {
				var it shared.Item
				if err := rows.Scan(&it.ID, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt); err != nil {
					return err
				}
				items = append(items, it)
			}
			return rows.Err()
		})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *SQLStore) CreateItem(ctx context.Context, name string, quantity int64, price float64) (*shared.Item, error) {
	it := shared.Item{
		ID:        newItemID(),
		Name:      name,
		Quantity:  quantity,
		Price:     price,
		CreatedAt: timestamp(time.Now()),
	}
	err := s.withConn(ctx, "INSERT",
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?)`,
		func(ctx context.Context, conn *sql.Conn, q string) error {
			_, err := conn.ExecContext(ctx, q, it.ID, it.Name, it.Quantity, it.Price, it.CreatedAt)
			return err
		})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &it, nil
}

func (s *SQLStore) GetItem(ctx context.Context, id string) (*shared.Item, error) {
	var it shared.Item
	err := s.withConn(ctx, "SELECT", `SELECT `+itemColumns+` FROM items WHERE id = ?`,
		func(ctx context.Context, conn *sql.Conn, q string) error {
			err := conn.QueryRowContext(ctx, q, id).
				Scan(&it.ID, &it.Name, &it.Quantity, &it.Price, &it.CreatedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return &it, nil
}

func (s *SQLStore) DeleteItem(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.withConn(ctx, "DELETE", `DELETE FROM items WHERE id = ?`,
		func(ctx context.Context, conn *sql.Conn, q string) error {
			res, err := conn.ExecContext(ctx, q, id)
			if err != nil {
				return err
			}
			n, err = res.RowsAffected()
			return err
		})
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", id, err)
	}
	return n > 0, nil
}
