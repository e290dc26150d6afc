// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/jackc/pgx/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliosync/mdsync/db"
	"github.com/foliosync/mdsync/healthcheck"
	"github.com/foliosync/mdsync/store"
)

type initSettings struct {
	DB struct {
		URL string `toml:"url"`
	} `toml:"db"`
	Healthchecks struct {
		APIKey  string `toml:"apikey,omitempty"`
		CheckID string `toml:"checkid,omitempty"`
	} `toml:"healthchecks"`
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Gather database configuration and setup schema",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		settings := initSettings{}

		form := huh.NewForm(
			// Get details about the database
			huh.NewGroup(
				huh.NewInput().
					Title("Provide the DSN for connecting to your PostgreSQL database (postgres://[user[:password]@][netloc][:port][/dbname][?param1=value1&...])").
					Value(&settings.DB.URL).
					Validate(func(dsn string) error {
						_, err := pgx.ParseConfig(dsn)
						return err
					}),
			),

			// Optional healthchecks.io integration
			huh.NewGroup(
				huh.NewInput().
					Title("healthchecks.io API key (leave blank to skip)").
					Value(&settings.Healthchecks.APIKey),
			),
		)

		err := form.Run()
		if err != nil {
			log.Fatal().Err(err).Msg("error gathering database settings")
		}

		log.Info().Msg("creating database tables")

		// run migration
		dbURL := strings.Replace(settings.DB.URL, "postgres://", "pgx5://", -1)
		err = db.Migrate(dbURL)
		if err != nil {
			log.Fatal().Err(err).Msg("error running database migration")
		}

		log.Info().Msg("database tables created")

		// verify connectivity
		myStore, err := store.NewFromDB(ctx, settings.DB.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		myStore.Close()

		if settings.Healthchecks.APIKey != "" {
			checkID, err := healthcheckCreate(settings.Healthchecks.APIKey)
			if err != nil {
				log.Error().Err(err).Msg("could not create health check; continuing without one")
			} else {
				settings.Healthchecks.CheckID = checkID
			}
		}

		// save settings to config file
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal().Err(err).Msg("could not determine user home directory")
		}

		configFN := filepath.Join(home, ".mdsync.toml")
		log.Info().Str("ConfigFile", configFN).Msg("Saving database connection info to config file")
		configData, err := toml.Marshal(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("could not marshal configuration data")
		}

		err = os.WriteFile(configFN, configData, 0644)
		if err != nil {
			log.Fatal().Err(err).Str("FileName", configFN).Msg("could not save configuration to file")
		}

		log.Info().Msg("Your datastore has been initialized")
	},
}

// healthcheckCreate registers a check for the scheduled run.
func healthcheckCreate(apiKey string) (string, error) {
	viper.Set("healthchecks.apikey", apiKey)
	return healthcheck.Create("mdsync daily update", []string{"mdsync"}, defaultSchedule)
}

func init() {
	rootCmd.AddCommand(initCmd)
}
