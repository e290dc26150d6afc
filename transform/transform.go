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

// Package transform reshapes provider snapshots into the record types the
// data package persists. Every function is pure and total over its input:
// nil or empty provider sections produce nil or empty output, never an
// error.
package transform

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/provider"
)

// Prices converts provider bars into persistable rows for a ticker.
func Prices(tickerID uuid.UUID, rows []*provider.PriceRow) []*data.PriceBar {
	bars := make([]*data.PriceBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, &data.PriceBar{
			TickerID:    tickerID,
			Date:        row.Date,
			Open:        row.Open,
			High:        row.High,
			Low:         row.Low,
			Close:       row.Close,
			Volume:      row.Volume,
			Dividends:   row.Dividends,
			StockSplits: row.StockSplits,
		})
	}

	return bars
}

// Finance builds the fundamentals row for a ticker. Fields are included
// conditionally on the instrument type: market fields for equities and
// ETFs, fund fields for mutual funds and ETFs, trailing P/E for equities
// only, and a small type-independent set always. Returns nil when the info
// section is missing or the resulting snapshot has no populated fields
// beyond its identity.
func Finance(tickerID uuid.UUID, date time.Time, info *provider.Info, quoteType data.QuoteType) *data.FinanceSnapshot {
	if info == nil {
		return nil
	}

	snap := &data.FinanceSnapshot{
		TickerID: tickerID,
		Date:     date,

		DividendYield: info.DividendYield,
		YtdReturn:     info.YtdReturn,
		Beta:          info.Beta,
		Beta3Year:     info.Beta3Year,
	}

	if quoteType == data.Equity || quoteType == data.ETF {
		snap.RegularMarketPrice = info.RegularMarketPrice
		snap.RegularMarketChangePercent = info.RegularMarketChangePercent
		snap.RegularMarketVolume = info.RegularMarketVolume
		snap.MarketCap = info.MarketCap
		snap.SharesOutstanding = info.SharesOutstanding
		snap.FiftyTwoWeekLow = info.FiftyTwoWeekLow
		snap.FiftyTwoWeekHigh = info.FiftyTwoWeekHigh
		snap.FiftyDayAverage = info.FiftyDayAverage
		snap.TwoHundredDayAverage = info.TwoHundredDayAverage
	}

	if quoteType == data.Equity {
		snap.TrailingPE = info.TrailingPE
	}

	if quoteType.IsFund() {
		snap.TotalAssets = info.TotalAssets
		snap.NavPrice = info.NavPrice
		snap.Yield = info.Yield
		snap.ThreeYearAverageReturn = info.ThreeYearAverageReturn
		snap.FiveYearAverageReturn = info.FiveYearAverageReturn
		snap.FundFamily = info.FundFamily
		snap.FundInceptionDate = info.FundInceptionDate
		snap.LegalType = info.LegalType
		snap.NetExpenseRatio = info.NetExpenseRatio
	}

	if snap.Empty() {
		return nil
	}

	return snap
}

// TickerUpdate builds the metadata write-back for a ticker. Returns nil
// when there is nothing to write.
func TickerUpdate(tickerID uuid.UUID, info *provider.Info) *data.TickerUpdate {
	if info == nil {
		return nil
	}

	update := &data.TickerUpdate{
		TickerID:  tickerID,
		Name:      info.ShortName,
		QuoteType: info.QuoteType,
	}

	if update.Empty() {
		return nil
	}

	return update
}

// CalendarEvents builds between zero and three events from a provider
// calendar: dividend payment, ex-dividend, and earnings. An earnings event
// is dated by the earliest reported candidate date and carries the full
// candidate list plus analyst estimates.
func CalendarEvents(tickerID uuid.UUID, calendar *provider.Calendar) []*data.CalendarEvent {
	if calendar == nil {
		return nil
	}

	events := make([]*data.CalendarEvent, 0, 3)

	if calendar.DividendDate != nil {
		events = append(events, &data.CalendarEvent{
			TickerID:  tickerID,
			Date:      *calendar.DividendDate,
			EventType: data.EventDividend,
		})
	}

	if calendar.ExDividendDate != nil {
		events = append(events, &data.CalendarEvent{
			TickerID:  tickerID,
			Date:      *calendar.ExDividendDate,
			EventType: data.EventExDividend,
		})
	}

	if len(calendar.EarningsDates) > 0 {
		dates := make([]time.Time, len(calendar.EarningsDates))
		copy(dates, calendar.EarningsDates)
		sort.Slice(dates, func(i, j int) bool {
			return dates[i].Before(dates[j])
		})

		dateStrs := make([]string, 0, len(dates))
		for _, date := range dates {
			dateStrs = append(dateStrs, date.Format("2006-01-02"))
		}

		events = append(events, &data.CalendarEvent{
			TickerID:        tickerID,
			Date:            dates[0],
			EventType:       data.EventEarnings,
			EarningsDates:   dateStrs,
			EarningsHigh:    calendar.EarningsHigh,
			EarningsLow:     calendar.EarningsLow,
			EarningsAverage: calendar.EarningsAverage,
			RevenueHigh:     calendar.RevenueHigh,
			RevenueLow:      calendar.RevenueLow,
			RevenueAverage:  calendar.RevenueAverage,
		})
	}

	return events
}

// FundHoldings converts fund top holdings, scaling weights from fractions
// to percent. Holdings without a symbol fall back to the holding name as
// the conflict key.
func FundHoldings(tickerID uuid.UUID, fund *provider.FundComposition, asOf time.Time) []*data.FundHolding {
	if fund == nil {
		return nil
	}

	holdings := make([]*data.FundHolding, 0, len(fund.Holdings))
	for _, holding := range fund.Holdings {
		symbol := holding.Symbol
		if symbol == "" {
			symbol = holding.Name
		}
		if symbol == "" {
			continue
		}

		holdings = append(holdings, &data.FundHolding{
			TickerID:      tickerID,
			HoldingSymbol: symbol,
			HoldingName:   holding.Name,
			Weight:        holding.Weight * 100,
			AsOf:          asOf,
		})
	}

	return holdings
}

// SectorWeightings converts fund sector exposures, scaling weights from
// fractions to percent.
func SectorWeightings(tickerID uuid.UUID, fund *provider.FundComposition, asOf time.Time) []*data.SectorWeighting {
	if fund == nil {
		return nil
	}

	weightings := make([]*data.SectorWeighting, 0, len(fund.SectorWeightings))
	for _, sector := range fund.SectorWeightings {
		if sector.Name == "" {
			continue
		}

		weightings = append(weightings, &data.SectorWeighting{
			TickerID:   tickerID,
			SectorName: sector.Name,
			Weight:     sector.Weight * 100,
			AsOf:       asOf,
		})
	}

	return weightings
}

// AssetClasses converts fund asset allocations, scaling weights from
// fractions to percent.
func AssetClasses(tickerID uuid.UUID, fund *provider.FundComposition, asOf time.Time) []*data.AssetClassWeighting {
	if fund == nil {
		return nil
	}

	classes := make([]*data.AssetClassWeighting, 0, len(fund.AssetClasses))
	for _, class := range fund.AssetClasses {
		if class.Name == "" {
			continue
		}

		classes = append(classes, &data.AssetClassWeighting{
			TickerID:   tickerID,
			AssetClass: class.Name,
			Weight:     class.Weight * 100,
			AsOf:       asOf,
		})
	}

	return classes
}
