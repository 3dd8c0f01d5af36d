package stock

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/innovativedesigner773/Best-Brightness-sub000/internal/domain"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLLookup reads stock from the inventory table of a sqlite database.
type SQLLookup struct {
	db *sql.DB
}

func NewSQLLookup(dbPath string) (*SQLLookup, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLLookup{db: db}, nil
}

func (l *SQLLookup) RunMigrations() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(l.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (l *SQLLookup) GetStock(ctx context.Context, productIDs []string) (map[string]domain.StockInfo, error) {
	result := make(map[string]domain.StockInfo, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(productIDs)), ",")
	query := `
		SELECT product_id, stock_count, in_stock
		FROM inventory
		WHERE product_id IN (` + placeholders + `)
	`
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.StockInfo
		if err := rows.Scan(&s.ProductID, &s.StockCount, &s.InStock); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		result[s.ProductID] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// SetStock upserts the inventory row of one product.
func (l *SQLLookup) SetStock(ctx context.Context, productID string, count int, inStock bool) error {
	if count < 0 {
		return ErrInvalidStock
	}

	query := `
		INSERT INTO inventory (product_id, stock_count, in_stock, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(product_id) DO UPDATE SET
			stock_count = excluded.stock_count,
			in_stock = excluded.in_stock,
			updated_at = excluded.updated_at
	`
	if _, err := l.db.ExecContext(ctx, query, productID, count, inStock); err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

func (l *SQLLookup) Close() error {
	return l.db.Close()
}
