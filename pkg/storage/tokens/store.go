package tokens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"pushrelay/pkg/storage"
)

// Config selects the database backing for the tokens table.
type Config struct {
	Driver      string
	DSN         string
	Table       string
	AutoMigrate bool
}

// Store implements storage.TokenStore on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

type row struct {
	Identity    string    `gorm:"column:identity;size:128;not null;uniqueIndex"`
	AccessToken string    `gorm:"column:access_token;not null"`
	Scopes      string    `gorm:"column:scopes;size:512"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Open creates a GORM-backed token store.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = "pushrelay_tokens"
	}
	store := &Store{db: gormDB, table: table}
	if cfg.AutoMigrate {
		if err := store.tableDB().AutoMigrate(&row{}); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Upsert inserts or overwrites the record for an identity. Concurrent
// writers for the same identity resolve last-write-wins inside the
// database's conflict clause.
func (s *Store) Upsert(ctx context.Context, record storage.TokenRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if record.Identity == "" {
		return errors.New("identity is required")
	}
	if record.AccessToken == "" {
		return errors.New("access token is required")
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	data := toRow(record)
	return s.tableDB().
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "scopes", "updated_at"}),
		}).
		Create(&data).Error
}

// Get fetches the record for an identity, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, identity string) (*storage.TokenRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	var data row
	err := s.tableDB().
		WithContext(ctx).
		Where("identity = ?", identity).
		Take(&data).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := fromRow(data)
	return &record, nil
}

func (s *Store) tableDB() *gorm.DB {
	return s.db.Table(s.table)
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	opts := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), opts)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), opts)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), opts)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

func toRow(record storage.TokenRecord) row {
	return row{
		Identity:    record.Identity,
		AccessToken: record.AccessToken,
		Scopes:      strings.Join(record.Scopes, ","),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func fromRow(data row) storage.TokenRecord {
	record := storage.TokenRecord{
		Identity:    data.Identity,
		AccessToken: data.AccessToken,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
	}
	if data.Scopes != "" {
		record.Scopes = strings.Split(data.Scopes, ",")
	}
	return record
}
