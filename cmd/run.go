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
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliosync/mdsync/healthcheck"
	"github.com/foliosync/mdsync/pipeline"
	"github.com/foliosync/mdsync/provider"
	"github.com/foliosync/mdsync/store"
)

var (
	runEvent         string
	runTickers       []string
	runStartDate     string
	runParallel      bool
	runBatchSize     int
	runMaxWorkers    int
	runSuggestTrades bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [event-type]",
	Short: "Run a synchronization pass against the data provider",
	Long: `The run sub-command executes one synchronization pass. The optional
argument selects the trigger event type (scheduled, update, initialize,
backfill, batch, update_indices, update_etfs, update_equities, update_forex);
with no argument a scheduled run is performed. A full event payload can be
provided as JSON with --event; individual flags override the payload.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := resolveRunConfig(args)
		if err != nil {
			log.Error().Err(err).Msg("invalid run configuration")
			os.Exit(3)
		}

		result := executeRun(ctx, cfg)

		fmt.Print(result.Summary())

		status := result.Status()
		if checkID := viper.GetString("healthchecks.checkid"); checkID != "" {
			var pingErr error
			if status == pipeline.StatusFailed {
				pingErr = healthcheck.PingFailure(checkID)
			} else {
				pingErr = healthcheck.Ping(checkID)
			}
			if pingErr != nil {
				log.Error().Err(pingErr).Msg("could not ping health check")
			}
		}

		os.Exit(status.ExitCode())
	},
}

// resolveRunConfig builds the run configuration from the event payload and
// command line flags. Flags win over the payload; the positional event type
// wins over the payload's type field.
func resolveRunConfig(args []string) (*pipeline.Config, error) {
	payload := []byte(runEvent)
	if len(args) > 0 && runEvent == "" {
		payload = []byte(fmt.Sprintf(`{"type": %q}`, args[0]))
	}

	cfg, err := pipeline.ResolveEvent(payload)
	if err != nil {
		return nil, err
	}

	if len(runTickers) > 0 {
		cfg.Symbols = runTickers
	}

	if runStartDate != "" {
		startDate, err := time.Parse("2006-01-02", runStartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --start-date %q: %w", runStartDate, err)
		}
		cfg.StartDate = &startDate
	}

	if runParallel {
		cfg.Parallel = true
	}

	if runBatchSize > 0 {
		cfg.BatchSize = runBatchSize
	}

	if runMaxWorkers > 0 {
		cfg.MaxWorkers = runMaxWorkers
	}

	if runSuggestTrades {
		cfg.SuggestTrades = true
	}

	return cfg, nil
}

// executeRun connects the store and provider and drives the pipeline.
func executeRun(ctx context.Context, cfg *pipeline.Config) *pipeline.RunResult {
	myStore, err := store.NewFromDB(ctx, viper.GetString("db.url"))
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to database")
	}
	defer myStore.Close()

	client := provider.NewYahoo()

	pipe := &pipeline.Pipeline{
		Processor: &pipeline.Processor{
			Store:  myStore,
			Client: client,
		},
		Selector:  myStore,
		Suggester: &pipeline.TradeSuggester{Store: myStore},
		Config:    cfg,
	}

	result, err := pipe.Execute(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	return result
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runEvent, "event", "", "trigger event payload as JSON")
	runCmd.Flags().StringSliceVar(&runTickers, "tickers", nil, "restrict the run to these symbols")
	runCmd.Flags().StringVar(&runStartDate, "start-date", "", "override the fetch start date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "process tickers in parallel batches")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "tickers per parallel batch")
	runCmd.Flags().IntVar(&runMaxWorkers, "max-workers", 0, "concurrent tickers within a batch")
	runCmd.Flags().BoolVar(&runSuggestTrades, "suggest-trades", false, "generate dividend reinvestment suggestions after the run")
}
