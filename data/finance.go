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

// FinanceSnapshot is the latest-known fundamentals record for a ticker on a
// given day, keyed by (ticker_id, date). Which fields are populated depends
// on the instrument type: market fields apply to equities and ETFs, fund
// fields to mutual funds and ETFs, and a small set is type-independent.
// Fields that do not apply are nil and stored as NULL.
type FinanceSnapshot struct {
	TickerID uuid.UUID `db:"ticker_id"`
	Date     time.Time `db:"date"`

	// Equity / ETF
	RegularMarketPrice         *float64 `db:"regular_market_price"`
	RegularMarketChangePercent *float64 `db:"regular_market_change_percent"`
	RegularMarketVolume        *int64   `db:"regular_market_volume"`
	MarketCap                  *int64   `db:"market_cap"`
	SharesOutstanding          *int64   `db:"shares_outstanding"`
	FiftyTwoWeekLow            *float64 `db:"fifty_two_week_low"`
	FiftyTwoWeekHigh           *float64 `db:"fifty_two_week_high"`
	FiftyDayAverage            *float64 `db:"fifty_day_average"`
	TwoHundredDayAverage       *float64 `db:"two_hundred_day_average"`

	// Equity only
	TrailingPE *float64 `db:"trailing_pe"`

	// Mutual fund / ETF
	TotalAssets            *int64     `db:"total_assets"`
	NavPrice               *float64   `db:"nav_price"`
	Yield                  *float64   `db:"yield"`
	ThreeYearAverageReturn *float64   `db:"three_year_average_return"`
	FiveYearAverageReturn  *float64   `db:"five_year_average_return"`
	FundFamily             *string    `db:"fund_family"`
	FundInceptionDate      *time.Time `db:"fund_inception_date"`
	LegalType              *string    `db:"legal_type"`
	NetExpenseRatio        *float64   `db:"net_expense_ratio"`

	// Type independent
	DividendYield *float64 `db:"dividend_yield"`
	YtdReturn     *float64 `db:"ytd_return"`
	Beta          *float64 `db:"beta"`
	Beta3Year     *float64 `db:"beta3year"`
}

// Empty reports whether the snapshot carries no data fields beyond its
// identity and date. Empty snapshots are never written; they would pollute
// the finance table with rows that say nothing.
func (snap *FinanceSnapshot) Empty() bool {
	return snap.RegularMarketPrice == nil &&
		snap.RegularMarketChangePercent == nil &&
		snap.RegularMarketVolume == nil &&
		snap.MarketCap == nil &&
		snap.SharesOutstanding == nil &&
		snap.FiftyTwoWeekLow == nil &&
		snap.FiftyTwoWeekHigh == nil &&
		snap.FiftyDayAverage == nil &&
		snap.TwoHundredDayAverage == nil &&
		snap.TrailingPE == nil &&
		snap.TotalAssets == nil &&
		snap.NavPrice == nil &&
		snap.Yield == nil &&
		snap.ThreeYearAverageReturn == nil &&
		snap.FiveYearAverageReturn == nil &&
		snap.FundFamily == nil &&
		snap.FundInceptionDate == nil &&
		snap.LegalType == nil &&
		snap.NetExpenseRatio == nil &&
		snap.DividendYield == nil &&
		snap.YtdReturn == nil &&
		snap.Beta == nil &&
		snap.Beta3Year == nil
}

// SaveDB upserts the snapshot keyed by (ticker_id, date).
func (snap *FinanceSnapshot) SaveDB(ctx context.Context, conn *pgxpool.Conn) error {
	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"date",
		"regular_market_price",
		"regular_market_change_percent",
		"regular_market_volume",
		"market_cap",
		"shares_outstanding",
		"fifty_two_week_low",
		"fifty_two_week_high",
		"fifty_day_average",
		"two_hundred_day_average",
		"trailing_pe",
		"total_assets",
		"nav_price",
		"yield",
		"three_year_average_return",
		"five_year_average_return",
		"fund_family",
		"fund_inception_date",
		"legal_type",
		"net_expense_ratio",
		"dividend_yield",
		"ytd_return",
		"beta",
		"beta3year"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
	) ON CONFLICT (ticker_id, date)
	DO UPDATE SET
		regular_market_price = EXCLUDED.regular_market_price,
		regular_market_change_percent = EXCLUDED.regular_market_change_percent,
		regular_market_volume = EXCLUDED.regular_market_volume,
		market_cap = EXCLUDED.market_cap,
		shares_outstanding = EXCLUDED.shares_outstanding,
		fifty_two_week_low = EXCLUDED.fifty_two_week_low,
		fifty_two_week_high = EXCLUDED.fifty_two_week_high,
		fifty_day_average = EXCLUDED.fifty_day_average,
		two_hundred_day_average = EXCLUDED.two_hundred_day_average,
		trailing_pe = EXCLUDED.trailing_pe,
		total_assets = EXCLUDED.total_assets,
		nav_price = EXCLUDED.nav_price,
		yield = EXCLUDED.yield,
		three_year_average_return = EXCLUDED.three_year_average_return,
		five_year_average_return = EXCLUDED.five_year_average_return,
		fund_family = EXCLUDED.fund_family,
		fund_inception_date = EXCLUDED.fund_inception_date,
		legal_type = EXCLUDED.legal_type,
		net_expense_ratio = EXCLUDED.net_expense_ratio,
		dividend_yield = EXCLUDED.dividend_yield,
		ytd_return = EXCLUDED.ytd_return,
		beta = EXCLUDED.beta,
		beta3year = EXCLUDED.beta3year;`, TableFinance)

	if _, err := conn.Exec(ctx, sql, snap.TickerID, snap.Date,
		snap.RegularMarketPrice, snap.RegularMarketChangePercent,
		snap.RegularMarketVolume, snap.MarketCap, snap.SharesOutstanding,
		snap.FiftyTwoWeekLow, snap.FiftyTwoWeekHigh, snap.FiftyDayAverage,
		snap.TwoHundredDayAverage, snap.TrailingPE, snap.TotalAssets,
		snap.NavPrice, snap.Yield, snap.ThreeYearAverageReturn,
		snap.FiveYearAverageReturn, snap.FundFamily, snap.FundInceptionDate,
		snap.LegalType, snap.NetExpenseRatio, snap.DividendYield,
		snap.YtdReturn, snap.Beta, snap.Beta3Year); err != nil {
		log.Error().Err(err).Str("TickerID", snap.TickerID.String()).
			Msg("error saving finance snapshot to database")
		return err
	}

	return nil
}
