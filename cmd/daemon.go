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
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliosync/mdsync/healthcheck"
	"github.com/foliosync/mdsync/pipeline"
)

// defaultSchedule runs after US market close on weekdays.
const defaultSchedule = "0 21 * * 1-5"

var daemonSchedule string

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled synchronization passes until stopped",
	Long: `The daemon sub-command schedules a scheduled-type run on a cron
schedule and keeps running until interrupted. Each completed pass pings the
configured health check so a silent failure surfaces as a missed ping.`,
	Run: func(cmd *cobra.Command, args []string) {
		nyc, err := time.LoadLocation("America/New_York")
		if err != nil {
			log.Fatal().Err(err).Msg("could not load timezone")
		}

		scheduler := gocron.NewScheduler(nyc)

		_, err = scheduler.Cron(daemonSchedule).Do(func() {
			ctx := context.Background()

			cfg, err := pipeline.ResolveEvent(nil)
			if err != nil {
				log.Error().Err(err).Msg("could not resolve scheduled run configuration")
				return
			}

			result := executeRun(ctx, cfg)
			log.Info().Str("Status", result.Status().String()).
				Int("NumTickers", result.NumTickers).
				Int("NumRecords", result.NumRecords).
				Msg("scheduled run complete")

			checkID := viper.GetString("healthchecks.checkid")
			var pingErr error
			if result.Status() == pipeline.StatusFailed {
				pingErr = healthcheck.PingFailure(checkID)
			} else {
				pingErr = healthcheck.Ping(checkID)
			}
			if pingErr != nil {
				log.Error().Err(pingErr).Msg("could not ping health check")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("Schedule", daemonSchedule).Msg("could not schedule run")
		}

		log.Info().Str("Schedule", daemonSchedule).Msg("daemon started")
		scheduler.StartBlocking()
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().StringVar(&daemonSchedule, "schedule", defaultSchedule, "cron schedule for synchronization passes")
}
