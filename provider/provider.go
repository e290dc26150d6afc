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
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited signals that the provider throttled the request and a
// retry with backoff is appropriate. Any other error aborts the ticker.
var ErrRateLimited = errors.New("provider rate limited the request")

// Client fetches everything known about a symbol in a single round of
// requests. The snapshot serves all data categories so a ticker is never
// fetched twice in one run.
type Client interface {
	Name() string
	Fetch(ctx context.Context, symbol string, exchange string, startDate time.Time, includeFund bool) (*TickerSnapshot, error)
}

// TickerSnapshot bundles the provider's view of a single security.
// Sections a provider has no data for are nil.
type TickerSnapshot struct {
	Symbol    string
	FetchedAt time.Time

	Prices   []*PriceRow
	Info     *Info
	Calendar *Calendar
	Fund     *FundComposition
}

// PriceRow is a single daily bar as reported by the provider. Missing
// values (market holidays, partial rows) are nil.
type PriceRow struct {
	Date        time.Time
	Open        *float64
	High        *float64
	Low         *float64
	Close       *float64
	Volume      *int64
	Dividends   *float64
	StockSplits *float64
}

// Info is the provider's point-in-time summary of a security. Fields the
// provider did not report are nil; which fields apply depends on the
// instrument type and is resolved downstream.
type Info struct {
	ShortName *string
	QuoteType *string

	RegularMarketPrice         *float64
	RegularMarketChangePercent *float64
	RegularMarketVolume        *int64
	MarketCap                  *int64
	SharesOutstanding          *int64
	FiftyTwoWeekLow            *float64
	FiftyTwoWeekHigh           *float64
	FiftyDayAverage            *float64
	TwoHundredDayAverage       *float64
	TrailingPE                 *float64

	TotalAssets            *int64
	NavPrice               *float64
	Yield                  *float64
	ThreeYearAverageReturn *float64
	FiveYearAverageReturn  *float64
	FundFamily             *string
	FundInceptionDate      *time.Time
	LegalType              *string
	NetExpenseRatio        *float64

	DividendYield *float64
	YtdReturn     *float64
	Beta          *float64
	Beta3Year     *float64
}

// FieldCount returns the number of populated data fields. Snapshots with
// three or fewer populated fields carry too little signal to store.
func (info *Info) FieldCount() int {
	count := 0

	for _, set := range []bool{
		info.ShortName != nil,
		info.QuoteType != nil,
		info.RegularMarketPrice != nil,
		info.RegularMarketChangePercent != nil,
		info.RegularMarketVolume != nil,
		info.MarketCap != nil,
		info.SharesOutstanding != nil,
		info.FiftyTwoWeekLow != nil,
		info.FiftyTwoWeekHigh != nil,
		info.FiftyDayAverage != nil,
		info.TwoHundredDayAverage != nil,
		info.TrailingPE != nil,
		info.TotalAssets != nil,
		info.NavPrice != nil,
		info.Yield != nil,
		info.ThreeYearAverageReturn != nil,
		info.FiveYearAverageReturn != nil,
		info.FundFamily != nil,
		info.FundInceptionDate != nil,
		info.LegalType != nil,
		info.NetExpenseRatio != nil,
		info.DividendYield != nil,
		info.YtdReturn != nil,
		info.Beta != nil,
		info.Beta3Year != nil,
	} {
		if set {
			count++
		}
	}

	return count
}

// Calendar holds upcoming corporate events and the analyst estimates
// attached to the next earnings window.
type Calendar struct {
	DividendDate   *time.Time
	ExDividendDate *time.Time
	EarningsDates  []time.Time

	EarningsHigh    *float64
	EarningsLow     *float64
	EarningsAverage *float64
	RevenueHigh     *int64
	RevenueLow      *int64
	RevenueAverage  *int64
}

// Holding is one position in a fund's reported top holdings. Weight is the
// provider's fraction in [0, 1]; scaling to percent happens downstream.
type Holding struct {
	Symbol string
	Name   string
	Weight float64
}

// NamedWeight is a (label, fraction) pair used for sector weightings and
// asset class allocations.
type NamedWeight struct {
	Name   string
	Weight float64
}

// FundComposition is the portfolio breakdown reported for ETFs and mutual
// funds. All weights are fractions in [0, 1].
type FundComposition struct {
	Holdings         []Holding
	SectorWeightings []NamedWeight
	AssetClasses     []NamedWeight
}
