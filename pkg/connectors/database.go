// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package connectors

import (
	"context"
	"fmt"

	"github.com/rapidaai/voice-capture/pkg/commons"
	"github.com/rapidaai/voice-capture/pkg/configs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseConnector hands out gorm sessions bound to a request context.
type DatabaseConnector interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
	DB(ctx context.Context) *gorm.DB
}

type databaseConnector struct {
	cfg    configs.DatabaseConfig
	logger commons.Logger
	db     *gorm.DB
}

func NewDatabaseConnector(cfg configs.DatabaseConfig, logger commons.Logger) DatabaseConnector {
	return &databaseConnector{cfg: cfg, logger: logger}
}

func (d *databaseConnector) Connect(ctx context.Context) error {
	var dialector gorm.Dialector
	switch d.cfg.Driver {
	case "postgres":
		dialector = postgres.Open(d.cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(d.cfg.DSN())
	default:
		return fmt.Errorf("unsupported database driver %q", d.cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("opening %s database: %w", d.cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if d.cfg.MaxOpenConnection > 0 {
		sqlDB.SetMaxOpenConns(d.cfg.MaxOpenConnection)
	}
	if d.cfg.MaxIdealConnection > 0 {
		sqlDB.SetMaxIdleConns(d.cfg.MaxIdealConnection)
	}
	if d.cfg.Driver == "sqlite" {
		// a single connection keeps ":memory:" databases shared
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging %s database: %w", d.cfg.Driver, err)
	}

	d.db = db
	d.logger.Infof("connected to %s database %s", d.cfg.Driver, d.cfg.DBName)
	return nil
}

func (d *databaseConnector) Disconnect(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *databaseConnector) IsConnected(ctx context.Context) bool {
	if d.db == nil {
		return false
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (d *databaseConnector) DB(ctx context.Context) *gorm.DB {
	return d.db.WithContext(ctx)
}
