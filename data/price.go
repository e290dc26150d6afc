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
package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PriceBar is one calendar day of OHLCV plus corporate actions for a single
// ticker. Optional fields are nil when the provider had no value for the day;
// nil is written as NULL, never coerced to zero.
type PriceBar struct {
	TickerID    uuid.UUID  `json:"ticker_id" db:"ticker_id"`
	Date        time.Time  `json:"date" db:"date"`
	Open        *float64   `json:"open,omitempty" db:"open"`
	High        *float64   `json:"high,omitempty" db:"high"`
	Low         *float64   `json:"low,omitempty" db:"low"`
	Close       *float64   `json:"close,omitempty" db:"close"`
	Volume      *int64     `json:"volume,omitempty" db:"volume"`
	Dividends   *float64   `json:"dividends,omitempty" db:"dividends"`
	StockSplits *float64   `json:"stock_splits,omitempty" db:"stock_splits"`
}

// SavePriceBars upserts a batch of price bars keyed by (ticker_id, date).
// Re-applying the same batch is a no-op; conflicting rows are overwritten in
// full. An empty batch returns 0 without touching the database.
func SavePriceBars(ctx context.Context, conn *pgxpool.Conn, bars []*PriceBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"date",
		"open",
		"high",
		"low",
		"close",
		"volume",
		"dividends",
		"stock_splits"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9
	) ON CONFLICT (ticker_id, date)
	DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		dividends = EXCLUDED.dividends,
		stock_splits = EXCLUDED.stock_splits;`, TablePrices)

	for _, bar := range bars {
		if _, err := tx.Exec(ctx, sql, bar.TickerID, bar.Date, bar.Open, bar.High,
			bar.Low, bar.Close, bar.Volume, bar.Dividends, bar.StockSplits); err != nil {
			log.Error().Err(err).Str("TickerID", bar.TickerID.String()).
				Time("Date", bar.Date).Msg("error saving price bar to database")

			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				log.Error().Err(rollbackErr).Msg("error rolling back price bar transaction")
			}

			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return len(bars), nil
}
