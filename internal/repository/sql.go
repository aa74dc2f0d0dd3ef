package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"listingfilter/internal/model"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// connect opens and pings the database; the DSN is passed to the driver as given
var connect = sqlx.Connect

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know about
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLRepository reads listings from a SQL table (postgres or sqlite)
type SQLRepository struct {
	db    *sqlx.DB
	table string
}

// NewSQLRepository connects to the dataset database
func NewSQLRepository(driver, dsn, table string, maxConn int) (*SQLRepository, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset table name %q", table)
	}

	db, err := connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if maxConn > 0 {
		db.SetMaxOpenConns(maxConn)
		db.SetMaxIdleConns(maxConn)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return &SQLRepository{db: db, table: table}, nil
}

// NewSQLRepositoryFromDB wraps an existing connection
func NewSQLRepositoryFromDB(db *sqlx.DB, table string) (*SQLRepository, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid dataset table name %q", table)
	}
	return &SQLRepository{db: db, table: table}, nil
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// LoadListings returns every row ordered by id
func (r *SQLRepository) LoadListings(ctx context.Context) ([]model.Listing, error) {
	query := fmt.Sprintf(`
		SELECT id, image, address, price, rooms
		FROM %s
		ORDER BY id
	`, r.table)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, query); err != nil {
		return nil, fmt.Errorf("failed to fetch listings: %w", err)
	}
	return listings, nil
}

// String names the source in logs
func (r *SQLRepository) String() string {
	return r.db.DriverName() + ":" + r.table
}
