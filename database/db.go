/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Declare a package-level variable to hold the singleton instance.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn        *sql.DB
	Driver      string
	EpochWindow int
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		driver, _, parseErr := ParseDNS(configuration.DataSource.Dns)
		if parseErr != nil {
			err = parseErr
			return
		}
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Driver: driver, EpochWindow: configuration.Epoch.Window}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// ParseDNS picks the SQL driver for a data source. sqlite://path and
// file: sources open sqlite, everything else is handed to postgres.
func ParseDNS(dns string) (driver, source string, err error) {
	dns = strings.TrimSpace(dns)
	switch {
	case dns == "":
		return "", "", errors.New("data source dns is empty")
	case strings.HasPrefix(dns, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(dns, "sqlite://"), nil
	case strings.HasPrefix(dns, "sqlite3://"):
		return DriverSQLite, strings.TrimPrefix(dns, "sqlite3://"), nil
	case strings.HasPrefix(dns, "file:"):
		return DriverSQLite, dns, nil
	default:
		return DriverPostgres, dns, nil
	}
}

// ConnectDB opens and pings the database. Schema changes are applied by the
// migrate command, not here.
func ConnectDB(dns string) (*sql.DB, error) {
	driver, source, err := ParseDNS(dns)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverSQLite:
		// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err = db.Ping(); err != nil {
		logrus.WithField("driver", driver).Errorf("database connection error: %v", err)
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection pool.
func (d *Datasource) Close() error {
	return d.Conn.Close()
}
