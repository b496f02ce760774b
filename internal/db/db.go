package db

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/USA-RedDragon/wander-server/internal/db/models"
	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dialector(database config.Database) (gorm.Dialector, error) {
	switch database.Driver {
	case config.DatabaseDriverSQLite:
		dsn := database.Database + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
		if database.ExtraParameters != "" {
			dsn += "&" + database.ExtraParameters
		}
		return sqlite.Open(dsn), nil
	case config.DatabaseDriverMySQL:
		port := database.Port
		if port == 0 {
			port = 3306
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			database.Username, database.Password, database.Host, port, database.Database)
		if database.ExtraParameters != "" {
			dsn += "&" + database.ExtraParameters
		}
		return mysql.Open(dsn), nil
	case config.DatabaseDriverPostgres:
		port := database.Port
		if port == 0 {
			port = 5432
		}
		params := []string{
			"host=" + database.Host,
			fmt.Sprintf("port=%d", port),
			"dbname=" + database.Database,
		}
		if database.Username != "" {
			params = append(params, "user="+database.Username)
		}
		if database.Password != "" {
			params = append(params, "password="+database.Password)
		}
		if database.ExtraParameters != "" {
			params = append(params, database.ExtraParameters)
		}
		return postgres.Open(strings.Join(params, " ")), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", database.Driver)
	}
}

func MakeDB(config *config.Config) (db *gorm.DB, err error) {
	dial, err := dialector(config.Persistence.Database)
	if err != nil {
		return nil, err
	}
	db, err = gorm.Open(dial, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	if config.HTTP.Tracing.Enabled {
		if err = db.Use(otelgorm.NewPlugin()); err != nil {
			return db, fmt.Errorf("failed to trace database: %w", err)
		}
	}

	err = db.AutoMigrate(&models.Note{})
	if err != nil {
		return db, fmt.Errorf("failed to migrate database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return db, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB.SetMaxIdleConns(runtime.GOMAXPROCS(0))
	const connsPerCPU = 10
	sqlDB.SetMaxOpenConns(runtime.GOMAXPROCS(0) * connsPerCPU)
	const maxIdleTime = 10 * time.Minute
	sqlDB.SetConnMaxIdleTime(maxIdleTime)

	return
}
