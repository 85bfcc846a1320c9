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
	"path/filepath"
	"testing"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/config"
)

func TestRunMigrations_SQLite(t *testing.T) {
	cnf := &config.Configuration{DataSource: config.DataSourceConfig{Dns: "sqlite://" + filepath.Join(t.TempDir(), "gate.db")}}

	n, err := runMigrations(cnf, migrate.Up)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = runMigrations(cnf, migrate.Up)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = runMigrations(cnf, migrate.Down)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRunMigrations_NoDataSource(t *testing.T) {
	_, err := runMigrations(&config.Configuration{}, migrate.Up)
	assert.ErrorIs(t, err, errNoDataSource)
}

func TestInitializeWorkerServer_NoRedis(t *testing.T) {
	_, err := initializeWorkerServer(&config.Configuration{})
	assert.ErrorIs(t, err, errNoRedis)
}

func TestNewCLI_Commands(t *testing.T) {
	cli := NewCLI()
	names := map[string]bool{}
	for _, c := range cli.cmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"start", "workers", "migrate", "config"} {
		assert.True(t, names[name], name)
	}
}
