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

package main

import (
	"errors"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	shadowpay "github.com/Radrdotfun/radr-http-434-private-payment-proof"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/database"
)

var errNoDataSource = errors.New("data_source.dns is not configured, nothing to migrate")

func migrateCommands(app *shadowpayInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the gate's database schema",
	}

	cmd.AddCommand(migrateDirectionCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(app, "down", migrate.Down))

	return cmd
}

func migrateDirectionCommand(app *shadowpayInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: "migrate " + use,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runMigrations(app.cnf, direction)
			if err != nil {
				return fmt.Errorf("error migrating %s: %w", use, err)
			}
			logrus.Infof("Applied %d migrations (%s)", n, use)
			return nil
		},
	}
}

func runMigrations(cnf *config.Configuration, direction migrate.MigrationDirection) (int, error) {
	if cnf.DataSource.Dns == "" {
		return 0, errNoDataSource
	}
	driver, _, err := database.ParseDNS(cnf.DataSource.Dns)
	if err != nil {
		return 0, err
	}

	db, err := database.ConnectDB(cnf.DataSource.Dns)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: shadowpay.SQLFiles,
		Root:       "sql",
	}
	return database.Migrate(db, driver, migrations, direction)
}
