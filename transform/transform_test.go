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
package transform_test

import (
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/provider"
	"github.com/foliosync/mdsync/transform"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }
func strPtr(s string) *string     { return &s }

// fullInfo carries a representative spread of populated fields.
func fullInfo() *provider.Info {
	return &provider.Info{
		ShortName:          strPtr("Test Co"),
		QuoteType:          strPtr("EQUITY"),
		RegularMarketPrice: floatPtr(101.5),
		MarketCap:          intPtr(1000000),
		TrailingPE:         floatPtr(21.3),
		TotalAssets:        intPtr(5000000),
		NavPrice:           floatPtr(99.8),
		DividendYield:      floatPtr(0.015),
		Beta:               floatPtr(1.1),
	}
}

var _ = Describe("Prices", func() {
	tickerID := uuid.New()

	It("maps provider bars onto persistable rows", func() {
		date := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
		rows := []*provider.PriceRow{
			{Date: date, Close: floatPtr(10.5), Volume: intPtr(1000)},
			{Date: date.AddDate(0, 0, 1), Dividends: floatPtr(0.25)},
		}

		bars := transform.Prices(tickerID, rows)
		Expect(bars).To(HaveLen(2))
		Expect(bars[0].TickerID).To(Equal(tickerID))
		Expect(*bars[0].Close).To(Equal(10.5))
		Expect(bars[0].Dividends).To(BeNil())
		Expect(*bars[1].Dividends).To(Equal(0.25))
	})

	It("returns an empty slice for no input", func() {
		Expect(transform.Prices(tickerID, nil)).To(BeEmpty())
	})
})

var _ = Describe("Finance", func() {
	tickerID := uuid.New()
	date := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)

	It("includes market fields for equities but not fund fields", func() {
		snap := transform.Finance(tickerID, date, fullInfo(), data.Equity)
		Expect(snap).NotTo(BeNil())
		Expect(snap.RegularMarketPrice).NotTo(BeNil())
		Expect(snap.TrailingPE).NotTo(BeNil())
		Expect(snap.NavPrice).To(BeNil())
		Expect(snap.TotalAssets).To(BeNil())
		Expect(snap.Beta).NotTo(BeNil())
	})

	It("includes fund fields for mutual funds but not market fields", func() {
		snap := transform.Finance(tickerID, date, fullInfo(), data.MutualFund)
		Expect(snap).NotTo(BeNil())
		Expect(snap.NavPrice).NotTo(BeNil())
		Expect(snap.TotalAssets).NotTo(BeNil())
		Expect(snap.RegularMarketPrice).To(BeNil())
		Expect(snap.TrailingPE).To(BeNil())
	})

	It("includes both market and fund fields for ETFs, excluding trailing P/E", func() {
		snap := transform.Finance(tickerID, date, fullInfo(), data.ETF)
		Expect(snap).NotTo(BeNil())
		Expect(snap.RegularMarketPrice).NotTo(BeNil())
		Expect(snap.NavPrice).NotTo(BeNil())
		Expect(snap.TrailingPE).To(BeNil())
	})

	It("rejects a missing info section", func() {
		Expect(transform.Finance(tickerID, date, nil, data.Equity)).To(BeNil())
	})

	It("keeps a snapshot with a single populated data field", func() {
		sparse := &provider.Info{
			ShortName: strPtr("Test Co"),
			QuoteType: strPtr("EQUITY"),
			Beta:      floatPtr(1.1),
		}

		snap := transform.Finance(tickerID, date, sparse, data.Equity)
		Expect(snap).NotTo(BeNil())
		Expect(*snap.Beta).To(Equal(1.1))
	})

	It("keeps a fund snapshot reporting only fund fields", func() {
		sparse := &provider.Info{
			NavPrice:    floatPtr(99.8),
			TotalAssets: intPtr(5000000),
			Yield:       floatPtr(0.02),
		}

		snap := transform.Finance(tickerID, date, sparse, data.MutualFund)
		Expect(snap).NotTo(BeNil())
		Expect(*snap.NavPrice).To(Equal(99.8))
	})

	It("rejects an info section with no fields applicable to the instrument type", func() {
		fundOnly := &provider.Info{
			ShortName: strPtr("Test Co"),
			NavPrice:  floatPtr(99.8),
		}
		Expect(transform.Finance(tickerID, date, fundOnly, data.Equity)).To(BeNil())
	})
})

var _ = Describe("TickerUpdate", func() {
	tickerID := uuid.New()

	It("carries name and quote type", func() {
		update := transform.TickerUpdate(tickerID, fullInfo())
		Expect(update).NotTo(BeNil())
		Expect(*update.Name).To(Equal("Test Co"))
		Expect(*update.QuoteType).To(Equal("EQUITY"))
	})

	It("returns nil for missing info", func() {
		Expect(transform.TickerUpdate(tickerID, nil)).To(BeNil())
	})

	It("builds an update from an info with nothing but identity fields", func() {
		update := transform.TickerUpdate(tickerID, &provider.Info{
			ShortName: strPtr("Test Co"),
		})
		Expect(update).NotTo(BeNil())
		Expect(*update.Name).To(Equal("Test Co"))
		Expect(update.QuoteType).To(BeNil())
	})
})

var _ = Describe("CalendarEvents", func() {
	tickerID := uuid.New()

	It("returns nil for a missing calendar", func() {
		Expect(transform.CalendarEvents(tickerID, nil)).To(BeNil())
	})

	It("builds all three event types", func() {
		divDate := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
		exDate := time.Date(2025, time.May, 15, 0, 0, 0, 0, time.UTC)
		early := time.Date(2025, time.July, 18, 0, 0, 0, 0, time.UTC)
		late := time.Date(2025, time.July, 22, 0, 0, 0, 0, time.UTC)

		events := transform.CalendarEvents(tickerID, &provider.Calendar{
			DividendDate:    &divDate,
			ExDividendDate:  &exDate,
			EarningsDates:   []time.Time{late, early},
			EarningsAverage: floatPtr(1.0),
		})

		Expect(events).To(HaveLen(3))
		Expect(events[0].EventType).To(Equal(data.EventDividend))
		Expect(events[0].Date).To(Equal(divDate))
		Expect(events[1].EventType).To(Equal(data.EventExDividend))

		// earnings event is dated by the earliest candidate
		Expect(events[2].EventType).To(Equal(data.EventEarnings))
		Expect(events[2].Date).To(Equal(early))
		Expect(events[2].EarningsDates).To(Equal([]string{"2025-07-18", "2025-07-22"}))
		Expect(*events[2].EarningsAverage).To(Equal(1.0))
	})

	It("builds no events from an empty calendar", func() {
		Expect(transform.CalendarEvents(tickerID, &provider.Calendar{})).To(BeEmpty())
	})
})

var _ = Describe("Fund composition", func() {
	tickerID := uuid.New()
	asOf := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)

	fund := &provider.FundComposition{
		Holdings: []provider.Holding{
			{Symbol: "AAPL", Name: "Apple Inc.", Weight: 0.256},
			{Symbol: "", Name: "Private Holding", Weight: 0.01},
			{Symbol: "", Name: "", Weight: 0.01},
		},
		SectorWeightings: []provider.NamedWeight{
			{Name: "technology", Weight: 0.3},
		},
		AssetClasses: []provider.NamedWeight{
			{Name: "stock", Weight: 0.99},
			{Name: "cash", Weight: 0.01},
		},
	}

	It("scales holding weights to percent exactly once", func() {
		holdings := transform.FundHoldings(tickerID, fund, asOf)
		Expect(holdings).To(HaveLen(2))
		Expect(holdings[0].Weight).To(BeNumerically("~", 25.6, 1e-9))
	})

	It("falls back to the holding name when the symbol is missing", func() {
		holdings := transform.FundHoldings(tickerID, fund, asOf)
		Expect(holdings[1].HoldingSymbol).To(Equal("Private Holding"))
	})

	It("scales sector weightings to percent", func() {
		weightings := transform.SectorWeightings(tickerID, fund, asOf)
		Expect(weightings).To(HaveLen(1))
		Expect(weightings[0].SectorName).To(Equal("technology"))
		Expect(weightings[0].Weight).To(BeNumerically("~", 30.0, 1e-9))
	})

	It("scales asset class allocations to percent", func() {
		classes := transform.AssetClasses(tickerID, fund, asOf)
		Expect(classes).To(HaveLen(2))
		Expect(classes[0].Weight).To(BeNumerically("~", 99.0, 1e-9))
	})

	It("returns nil for missing composition", func() {
		Expect(transform.FundHoldings(tickerID, nil, asOf)).To(BeNil())
		Expect(transform.SectorWeightings(tickerID, nil, asOf)).To(BeNil())
		Expect(transform.AssetClasses(tickerID, nil, asOf)).To(BeNil())
	})
})
