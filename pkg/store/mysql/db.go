/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mysql stores the inventory and availability tables in MySQL through gorm.
package mysql

import (
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/carverauto/netinventory/pkg/models"
)

const defaultPort = 3306

// Config describes the MySQL connection. DSN, when set, wins over the discrete fields.
type Config struct {
	DSN             string          `json:"dsn" yaml:"dsn"`
	Host            string          `json:"host" yaml:"host"`
	Port            int             `json:"port" yaml:"port"`
	Database        string          `json:"database" yaml:"database"`
	Username        string          `json:"username" yaml:"username"`
	Password        string          `json:"password" yaml:"password"`
	MaxOpenConns    int             `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int             `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime models.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	CreateDatabase  bool            `json:"create_database" yaml:"create_database"`
}

func (cfg *Config) addr() string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

// FormatDSN renders the go-sql-driver DSN. Timestamps are read and written in UTC.
func (cfg *Config) FormatDSN() string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.addr(), cfg.Database)
}

// Open connects with gorm, creating the database first when allowed.
func Open(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(gormmysql.Open(cfg.FormatDSN()), gormCfg)
	if err != nil {
		if !cfg.CreateDatabase || !strings.Contains(err.Error(), "Unknown database") {
			return nil, err
		}

		if cerr := createDatabase(cfg); cerr != nil {
			return nil, fmt.Errorf("create database %s: %w", cfg.Database, cerr)
		}

		db, err = gorm.Open(gormmysql.Open(cfg.FormatDSN()), gormCfg)
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime.Or(time.Hour))

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return db, nil
}

func createDatabase(cfg *Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/", cfg.Username, cfg.Password, cfg.addr())

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4", cfg.Database))

	return err
}
