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
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/store"
)

var exportOutFile string

// exportBar is the parquet row format for exported daily bars.
type exportBar struct {
	Symbol      string  `db:"symbol" parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date        string  `db:"date_str" parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open        float64 `db:"open" parquet:"name=open, type=DOUBLE"`
	High        float64 `db:"high" parquet:"name=high, type=DOUBLE"`
	Low         float64 `db:"low" parquet:"name=low, type=DOUBLE"`
	Close       float64 `db:"close" parquet:"name=close, type=DOUBLE"`
	Volume      int64   `db:"volume" parquet:"name=volume, type=INT64"`
	Dividends   float64 `db:"dividends" parquet:"name=dividends, type=DOUBLE"`
	StockSplits float64 `db:"stock_splits" parquet:"name=stock_splits, type=DOUBLE"`
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [symbol]...",
	Short: "Export stored daily bars to a parquet file",
	Long:  "Export stored daily bars to a parquet file, optionally restricted to the given symbols.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		myStore, err := store.NewFromDB(ctx, viper.GetString("db.url"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to database")
		}
		defer myStore.Close()

		var bars []*exportBar
		sql := fmt.Sprintf(`SELECT t.symbol, to_char(p.date, 'YYYY-MM-DD') AS date_str,
coalesce(p.open, 0) AS open, coalesce(p.high, 0) AS high, coalesce(p.low, 0) AS low,
coalesce(p.close, 0) AS close, coalesce(p.volume, 0) AS volume,
coalesce(p.dividends, 0) AS dividends, coalesce(p.stock_splits, 0) AS stock_splits
FROM %s p JOIN %s t ON t.id = p.ticker_id`, data.TablePrices, data.TableTickers)

		if len(args) > 0 {
			symbols := make([]string, 0, len(args))
			for _, arg := range args {
				symbols = append(symbols, strings.ToUpper(strings.TrimSpace(arg)))
			}
			sql += ` WHERE upper(t.symbol) = ANY($1) ORDER BY t.symbol, p.date`
			err = pgxscan.Select(ctx, myStore.Pool, &bars, sql, symbols)
		} else {
			sql += ` ORDER BY t.symbol, p.date`
			err = pgxscan.Select(ctx, myStore.Pool, &bars, sql)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("could not query daily bars")
		}

		outFile := exportOutFile
		if outFile == "" {
			outFile = fmt.Sprintf("mdsync-prices-%s.parquet", time.Now().Format("2006-01-02"))
		}

		if err := saveToParquet(bars, outFile); err != nil {
			log.Fatal().Err(err).Str("FileName", outFile).Msg("export failed")
		}
	},
}

func saveToParquet(bars []*exportBar, fn string) error {
	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(exportBar), 4)
	if err != nil {
		log.Error().
			Str("OriginalError", err.Error()).
			Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_ZSTD

	for _, bar := range bars {
		if err = pw.Write(bar); err != nil {
			log.Error().
				Str("OriginalError", err.Error()).
				Str("Symbol", bar.Symbol).Str("Date", bar.Date).
				Msg("Parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Err(err).Msg("Parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", len(bars)).Str("FileName", fn).Msg("Parquet write finished")
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutFile, "out", "o", "", "output file name")
}
