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
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/store"
)

var (
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	fundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// csvTicker is the row format accepted by the import sub-command.
type csvTicker struct {
	Symbol    string `csv:"symbol"`
	Name      string `csv:"name"`
	Exchange  string `csv:"exchange"`
	QuoteType string `csv:"quote_type"`
	Backfill  bool   `csv:"backfill"`
}

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Manage the universe of tracked securities",
}

var tickersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked securities",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myStore, err := store.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		tickers, err := myStore.SelectTickers(ctx, nil, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("could not select tickers")
		}

		for _, ticker := range tickers {
			quoteType := string(ticker.QuoteType)
			if ticker.QuoteType.IsFund() {
				quoteType = fundStyle.Render(quoteType)
			}

			fmt.Printf("%s  %s  %s  %s\n", symbolStyle.Render(ticker.Symbol),
				quoteType, ticker.Exchange, ticker.Name)
		}
	},
}

var tickersImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import securities from a CSV file",
	Long: `Import reads a CSV file with the columns symbol, name, exchange,
quote_type, and backfill, and upserts each row keyed by symbol.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		fh, err := os.Open(args[0])
		if err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not open CSV file")
		}
		defer fh.Close()

		rows := []*csvTicker{}
		if err := gocsv.UnmarshalFile(fh, &rows); err != nil {
			log.Fatal().Err(err).Str("FileName", args[0]).Msg("could not parse CSV file")
		}

		tickers := make([]*data.Ticker, 0, len(rows))
		for _, row := range rows {
			tickers = append(tickers, &data.Ticker{
				Symbol:    strings.ToUpper(strings.TrimSpace(row.Symbol)),
				Name:      row.Name,
				Exchange:  row.Exchange,
				QuoteType: data.ParseQuoteType(row.QuoteType),
				Backfill:  row.Backfill,
			})
		}

		myStore, err := store.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		count, err := myStore.InsertTickers(ctx, tickers)
		if err != nil {
			log.Fatal().Err(err).Msg("could not import tickers")
		}

		log.Info().Int("NumTickers", count).Msg("tickers imported")
	},
}

var tickersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Interactively add a security",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		ticker := &data.Ticker{}
		quoteType := string(data.Equity)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Symbol").
					Value(&ticker.Symbol).
					Validate(func(symbol string) error {
						if strings.TrimSpace(symbol) == "" {
							return fmt.Errorf("symbol is required")
						}
						return nil
					}),

				huh.NewInput().
					Title("Name").
					Value(&ticker.Name),

				huh.NewInput().
					Title("Exchange").
					Value(&ticker.Exchange),

				huh.NewSelect[string]().
					Title("Quote type").
					Options(
						huh.NewOption("Equity", string(data.Equity)),
						huh.NewOption("ETF", string(data.ETF)),
						huh.NewOption("Mutual fund", string(data.MutualFund)),
						huh.NewOption("Index", string(data.Index)),
						huh.NewOption("Currency", string(data.Currency)),
						huh.NewOption("Crypto currency", string(data.CryptoCurrency)),
					).
					Value(&quoteType),

				huh.NewConfirm().
					Title("Backfill five years of history?").
					Value(&ticker.Backfill),
			),
		)

		if err := form.Run(); err != nil {
			log.Fatal().Err(err).Msg("error gathering ticker details")
		}

		ticker.Symbol = strings.ToUpper(strings.TrimSpace(ticker.Symbol))
		ticker.QuoteType = data.ParseQuoteType(quoteType)

		myStore, err := store.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		if _, err := myStore.InsertTickers(ctx, []*data.Ticker{ticker}); err != nil {
			log.Fatal().Err(err).Msg("could not save ticker")
		}

		log.Info().Str("Symbol", ticker.Symbol).Msg("ticker added")
	},
}

func init() {
	rootCmd.AddCommand(tickersCmd)
	tickersCmd.AddCommand(tickersListCmd)
	tickersCmd.AddCommand(tickersImportCmd)
	tickersCmd.AddCommand(tickersAddCmd)
}
