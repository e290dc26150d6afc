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
package pipeline

import (
	"time"
)

// Staleness thresholds in days per data category.
const (
	PriceThresholdDays    = 1
	FinanceThresholdDays  = 1
	CalendarThresholdDays = 7
)

const (
	defaultBatchSize  = 10
	defaultMaxWorkers = 5
)

// Config is the fully resolved run configuration. Trigger events resolve
// to one of the base configurations below, then explicit overrides from the
// event payload are applied on top.
type Config struct {
	EventType string

	// Symbols restricts the run to explicit tickers; takes precedence
	// over QuoteTypes.
	Symbols []string

	// QuoteTypes restricts the run to instrument classes.
	QuoteTypes []string

	// StartDate overrides the watermark-derived fetch start.
	StartDate *time.Time

	// Force ignores staleness thresholds; every selected ticker is
	// fetched and written.
	Force bool

	// Backfill anchors the price fetch start five calendar years back
	// regardless of watermarks.
	Backfill bool

	// Skip flags exclude whole data categories from the run. The zero
	// value processes everything; event payloads flip these through the
	// process_* fields.
	SkipPrices   bool
	SkipFinance  bool
	SkipCalendar bool
	SkipFundData bool

	// Parallel processes tickers in bounded batches of BatchSize, with at
	// most MaxWorkers tickers in flight at once within a batch.
	Parallel   bool
	BatchSize  int
	MaxWorkers int

	// SuggestTrades generates dividend reinvestment suggestions after a
	// successful run. Off unless explicitly requested.
	SuggestTrades bool
}
