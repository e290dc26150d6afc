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
	"time"

	"github.com/google/uuid"
)

type QuoteType string

const (
	Equity         QuoteType = "EQUITY"
	ETF            QuoteType = "ETF"
	MutualFund     QuoteType = "MUTUALFUND"
	Index          QuoteType = "INDEX"
	Currency       QuoteType = "CURRENCY"
	CryptoCurrency QuoteType = "CRYPTOCURRENCY"
)

// ParseQuoteType maps a raw quote type string onto one of the known
// instrument classifications; anything unrecognized is treated as EQUITY.
func ParseQuoteType(raw string) QuoteType {
	switch QuoteType(raw) {
	case Equity, ETF, MutualFund, Index, Currency, CryptoCurrency:
		return QuoteType(raw)
	default:
		return Equity
	}
}

// IsFund reports whether the instrument carries fund composition data
// (top holdings, sector weightings, asset allocation).
func (qt QuoteType) IsFund() bool {
	return qt == ETF || qt == MutualFund
}

// Destination table names. Upserts record these names in the per-ticker
// updated-tables set when a write succeeds.
const (
	TableTickers          = "tickers"
	TablePrices           = "historical_prices"
	TableFinance          = "finance_daily"
	TableCalendarEvents   = "calendar_events"
	TableFundHoldings     = "fund_top_holdings"
	TableSectorWeightings = "fund_sector_weightings"
	TableAssetClasses     = "fund_asset_classes"
	TableSuggestedTrades  = "suggested_trades"
)

// Ticker is a security tracked by the store. Rows are owned by the
// database; mdsync only writes back the fields in TickerUpdate.
type Ticker struct {
	ID        uuid.UUID `db:"id"`
	Symbol    string    `db:"symbol"`
	Name      string    `db:"name"`
	Exchange  string    `db:"exchange"`
	QuoteType QuoteType `db:"quote_type"`
	Backfill  bool      `db:"backfill"`
}

// ShouldUpdate reports whether a data category is stale. A category with no
// prior watermark is always stale; otherwise it is stale once thresholdDays
// or more have elapsed since the last stored date.
func ShouldUpdate(last time.Time, haveLast bool, thresholdDays int) bool {
	if !haveLast {
		return true
	}

	days := int(time.Since(truncateToDay(last)).Hours() / 24)
	return days >= thresholdDays
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
