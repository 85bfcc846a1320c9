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
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

// Migrate applies or rolls back migrations from source using the dialect
// that matches driver.
func Migrate(db *sql.DB, driver string, source migrate.MigrationSource, direction migrate.MigrationDirection) (int, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return 0, fmt.Errorf("unsupported migration driver %q", driver)
	}
	return migrate.Exec(db, driver, source, direction)
}
