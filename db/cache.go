package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-wrapped/models"
)

// Backend names a cache storage backend
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendMySQL    Backend = "mysql"
	BackendPostgres Backend = "postgres"
	BackendNone     Backend = "none"
)

const (
	tableName         = "wrapped_cache"
	defaultSQLitePath = "./wrapped.db"
)

// ParseBackend maps a configured backend name to a Backend
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return BackendSQLite, nil
	case "mysql":
		return BackendMySQL, nil
	case "postgres", "postgresql", "pgx":
		return BackendPostgres, nil
	case "none":
		return BackendNone, nil
	default:
		return "", fmt.Errorf("unsupported cache backend %q: must be sqlite, mysql, postgres or none", name)
	}
}

// Cache stores analysis results keyed by username with an absolute expiry
type Cache struct {
	db      *sql.DB
	backend Backend
	dsn     string
	mutex   sync.Mutex
	log     *logrus.Logger
	now     func() time.Time
}

// NewCache opens the cache backend and creates its table if needed
func NewCache(backend Backend, dsn string, log *logrus.Logger) (*Cache, error) {
	cache := &Cache{
		backend: backend,
		dsn:     dsn,
		log:     log,
		now:     time.Now,
	}

	var driverName string
	switch backend {
	case BackendSQLite:
		driverName = "sqlite3"
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		// if we are storing the db in a nested directory, create the directory
		if dir := filepath.Dir(dsn); dir != "." && dir != "" && !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		cache.dsn = dsn

	case BackendMySQL:
		// user:password@tcp(host:port)/dbname
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return nil, fmt.Errorf("invalid MySQL DSN, expected user:password@tcp(host:port)/dbname: %w", err)
		}
		driverName = "mysql"

	case BackendPostgres:
		// host=localhost port=5432 user=postgres password=secret dbname=wrapped
		driverName = "pgx"

	case BackendNone:
		log.Info("Result cache disabled")
		return cache, nil

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}

	db, err := sql.Open(driverName, cache.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", backend, err)
	}

	if backend == BackendSQLite {
		// a single connection avoids "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s cache: %w", backend, err)
	}

	cache.db = db
	if err := cache.initTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.WithField("backend", backend).Info("Result cache ready")
	return cache, nil
}

// Backend returns the backend the cache was opened with
func (c *Cache) Backend() Backend {
	return c.backend
}

// Close closes the database connection
func (c *Cache) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) initTables() error {
	var query string
	switch c.backend {
	case BackendMySQL:
		query = `
		CREATE TABLE IF NOT EXISTS wrapped_cache (
			cache_key VARCHAR(255) PRIMARY KEY,
			cache_value LONGBLOB NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`
	case BackendPostgres:
		query = `
		CREATE TABLE IF NOT EXISTS wrapped_cache (
			cache_key TEXT PRIMARY KEY,
			cache_value BYTEA NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`
	default:
		query = `
		CREATE TABLE IF NOT EXISTS wrapped_cache (
			cache_key TEXT PRIMARY KEY,
			cache_value BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`
	}

	_, err := c.db.Exec(query)
	return err
}

// Get returns the value stored under key. Expired entries are reported as
// misses and removed.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.db == nil {
		return nil, false, nil
	}

	query := fmt.Sprintf("SELECT cache_value, expires_at FROM %s WHERE cache_key = %s", tableName, c.placeholder(1))

	var value []byte
	var expiresAt int64
	err := c.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if now := c.now().Unix(); expiresAt <= now {
		if err := c.deleteExpired(ctx, key, now); err != nil {
			c.log.WithError(err).WithField("key", key).Warn("Failed to remove expired cache entry")
		}
		return nil, false, nil
	}

	return value, true, nil
}

// Set stores value under key until ttl elapses, replacing any existing entry
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.db == nil {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	if _, err := c.db.ExecContext(ctx, c.upsertQuery(), key, value, now.Unix(), now.Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"key": key,
		"ttl": ttl.String(),
	}).Debug("Cached result")
	return nil
}

// deleteExpired removes the entry under key only if it is still expired at now,
// so an entry rewritten since it was read survives
func (c *Cache) deleteExpired(ctx context.Context, key string, now int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s AND expires_at <= %s", tableName, c.placeholder(1), c.placeholder(2))
	if _, err := c.db.ExecContext(ctx, query, key, now); err != nil {
		return fmt.Errorf("failed to delete expired cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry stored under key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c.db == nil {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE cache_key = %s", tableName, c.placeholder(1))
	if _, err := c.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired entry and returns how many were removed
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	if c.db == nil {
		return 0, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at <= %s", tableName, c.placeholder(1))
	result, err := c.db.ExecContext(ctx, query, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}
	return result.RowsAffected()
}

// Clear removes every entry and returns how many were removed
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if c.db == nil {
		return 0, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	result, err := c.db.ExecContext(ctx, "DELETE FROM "+tableName)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}
	return result.RowsAffected()
}

// Status reports entry counts, age range and approximate size of the cache
func (c *Cache) Status(ctx context.Context) (models.CacheStatus, error) {
	status := models.CacheStatus{
		Backend:   string(c.backend),
		Connected: c.db != nil,
	}
	if c.db == nil {
		return status, nil
	}

	query := fmt.Sprintf("SELECT COUNT(*), COALESCE(MIN(created_at), 0), COALESCE(MAX(created_at), 0) FROM %s", tableName)
	if err := c.db.QueryRowContext(ctx, query).Scan(&status.TotalEntries, &status.OldestEntry, &status.NewestEntry); err != nil {
		return status, fmt.Errorf("failed to get cache entry counts: %w", err)
	}

	query = fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE expires_at <= %s", tableName, c.placeholder(1))
	if err := c.db.QueryRowContext(ctx, query, c.now().Unix()).Scan(&status.ExpiredEntries); err != nil {
		return status, fmt.Errorf("failed to get expired entry count: %w", err)
	}

	status.SizeBytes = c.sizeBytes(ctx, status.TotalEntries)
	return status, nil
}

// sizeBytes asks the backend for the table size, falling back to a rough estimate
func (c *Cache) sizeBytes(ctx context.Context, entries int) int64 {
	estimate := int64(entries) * 4096

	var size int64
	var err error
	switch c.backend {
	case BackendSQLite:
		err = c.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&size)
	case BackendMySQL:
		cfg, parseErr := mysql.ParseDSN(c.dsn)
		if parseErr != nil || cfg.DBName == "" {
			return estimate
		}
		err = c.db.QueryRowContext(ctx,
			"SELECT data_length + index_length FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			cfg.DBName, tableName).Scan(&size)
	case BackendPostgres:
		err = c.db.QueryRowContext(ctx, "SELECT pg_total_relation_size($1)", tableName).Scan(&size)
	default:
		return estimate
	}

	if err != nil {
		return estimate
	}
	return size
}

// placeholder returns the n-th bind parameter for the backend
func (c *Cache) placeholder(n int) string {
	if c.backend == BackendPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (c *Cache) upsertQuery() string {
	switch c.backend {
	case BackendMySQL:
		return `INSERT INTO wrapped_cache (cache_key, cache_value, created_at, expires_at) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE cache_value = new.cache_value, created_at = new.created_at, expires_at = new.expires_at`
	case BackendPostgres:
		return `INSERT INTO wrapped_cache (cache_key, cache_value, created_at, expires_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (cache_key) DO UPDATE SET cache_value = EXCLUDED.cache_value, created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at`
	default:
		return `INSERT OR REPLACE INTO wrapped_cache (cache_key, cache_value, created_at, expires_at) VALUES (?, ?, ?, ?)`
	}
}
