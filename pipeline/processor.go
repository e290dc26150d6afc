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
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/provider"
	"github.com/foliosync/mdsync/transform"
)

// Datastore is the persistence surface the processor needs. *store.Store
// satisfies it; tests substitute fakes.
type Datastore interface {
	LastUpdateDate(ctx context.Context, tickerID uuid.UUID, table string) (time.Time, bool)
	SavePrices(ctx context.Context, bars []*data.PriceBar) (int, error)
	SaveFinance(ctx context.Context, snap *data.FinanceSnapshot) error
	SaveCalendarEvents(ctx context.Context, events []*data.CalendarEvent) (int, error)
	SaveFundHoldings(ctx context.Context, holdings []*data.FundHolding) (int, error)
	SaveSectorWeightings(ctx context.Context, weightings []*data.SectorWeighting) (int, error)
	SaveAssetClasses(ctx context.Context, classes []*data.AssetClassWeighting) (int, error)
	SaveTickerUpdate(ctx context.Context, update *data.TickerUpdate) error
}

// TickerResult is the outcome of processing one security.
type TickerResult struct {
	Symbol        string
	UpdatedTables []string
	NumRecords    int
	Elapsed       time.Duration
	Err           error
}

// Processor runs the fetch / transform / persist cycle for a single
// ticker.
type Processor struct {
	Store  Datastore
	Client provider.Client

	// Now is stubbed in tests; defaults to time.Now.
	Now func() time.Time
}

func (proc *Processor) now() time.Time {
	if proc.Now != nil {
		return proc.Now()
	}
	return time.Now()
}

// ProcessTicker fetches everything stale for one ticker and persists it.
// The provider is called at most once. A table write failure fails only
// that table; the ticker fails outright only when the fetch itself fails,
// every attempted write fails, or processing panics. Panics are contained
// so one bad ticker never aborts the run.
func (proc *Processor) ProcessTicker(ctx context.Context, ticker *data.Ticker, cfg *Config) (result *TickerResult) {
	startTime := proc.now()
	result = &TickerResult{Symbol: ticker.Symbol}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("Symbol", ticker.Symbol).Interface("Panic", r).
				Msg("panic while processing ticker")
			result.Err = fmt.Errorf("panic while processing %s: %v", ticker.Symbol, r)
		}
		result.Elapsed = proc.now().Sub(startTime)
	}()

	priceLast, havePrice := proc.Store.LastUpdateDate(ctx, ticker.ID, data.TablePrices)
	financeLast, haveFinance := proc.Store.LastUpdateDate(ctx, ticker.ID, data.TableFinance)
	calendarLast, haveCalendar := proc.Store.LastUpdateDate(ctx, ticker.ID, data.TableCalendarEvents)

	needPrices := !cfg.SkipPrices &&
		(cfg.Force || data.ShouldUpdate(priceLast, havePrice, PriceThresholdDays))
	needFinance := !cfg.SkipFinance &&
		(cfg.Force || data.ShouldUpdate(financeLast, haveFinance, FinanceThresholdDays))
	needCalendar := !cfg.SkipCalendar &&
		(cfg.Force || data.ShouldUpdate(calendarLast, haveCalendar, CalendarThresholdDays))

	if !needPrices && !needFinance && !needCalendar {
		log.Debug().Str("Symbol", ticker.Symbol).Msg("all data categories fresh; skipping")
		return result
	}

	backfilling := ticker.Backfill || cfg.Backfill

	startDate := provider.DetermineStartDate(priceLast, havePrice, backfilling, proc.now())
	if cfg.StartDate != nil {
		startDate = *cfg.StartDate
	}

	includeFund := !cfg.SkipFundData && ticker.QuoteType.IsFund()

	snapshot, err := proc.Client.Fetch(ctx, ticker.Symbol, ticker.Exchange, startDate, includeFund)
	if err != nil {
		log.Error().Err(err).Str("Symbol", ticker.Symbol).Msg("fetch failed")
		result.Err = err
		return result
	}

	attempted := 0
	failed := 0
	var lastErr error

	markUpdated := func(table string, count int) {
		result.UpdatedTables = append(result.UpdatedTables, table)
		result.NumRecords += count
	}

	pricesSaved := false
	if needPrices && len(snapshot.Prices) > 0 {
		attempted++
		bars := transform.Prices(ticker.ID, snapshot.Prices)
		if count, err := proc.Store.SavePrices(ctx, bars); err != nil {
			failed++
			lastErr = err
		} else if count > 0 {
			pricesSaved = true
			markUpdated(data.TablePrices, count)
		}
	}

	today := proc.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	if needFinance {
		if snap := transform.Finance(ticker.ID, today, snapshot.Info, ticker.QuoteType); snap != nil {
			attempted++
			if err := proc.Store.SaveFinance(ctx, snap); err != nil {
				failed++
				lastErr = err
			} else {
				markUpdated(data.TableFinance, 1)
			}
		} else if snapshot.Info != nil {
			log.Warn().Str("Symbol", ticker.Symbol).
				Int("Fields", snapshot.Info.FieldCount()).
				Msg("info snapshot has no persistable finance fields")
		}
	}

	update := transform.TickerUpdate(ticker.ID, snapshot.Info)
	if backfilling && pricesSaved {
		// full historical window landed; stop backfilling this ticker
		if update == nil {
			update = &data.TickerUpdate{TickerID: ticker.ID}
		}
		update.ClearBackfill = true
	}
	if update != nil && (needFinance || update.ClearBackfill) {
		attempted++
		if err := proc.Store.SaveTickerUpdate(ctx, update); err != nil {
			failed++
			lastErr = err
		} else {
			markUpdated(data.TableTickers, 1)
		}
	}

	if needCalendar {
		if events := transform.CalendarEvents(ticker.ID, snapshot.Calendar); len(events) > 0 {
			attempted++
			if count, err := proc.Store.SaveCalendarEvents(ctx, events); err != nil {
				failed++
				lastErr = err
			} else if count > 0 {
				markUpdated(data.TableCalendarEvents, count)
			}
		}
	}

	if includeFund && snapshot.Fund != nil {
		if holdings := transform.FundHoldings(ticker.ID, snapshot.Fund, today); len(holdings) > 0 {
			attempted++
			if count, err := proc.Store.SaveFundHoldings(ctx, holdings); err != nil {
				failed++
				lastErr = err
			} else if count > 0 {
				markUpdated(data.TableFundHoldings, count)
			}
		}

		if weightings := transform.SectorWeightings(ticker.ID, snapshot.Fund, today); len(weightings) > 0 {
			attempted++
			if count, err := proc.Store.SaveSectorWeightings(ctx, weightings); err != nil {
				failed++
				lastErr = err
			} else if count > 0 {
				markUpdated(data.TableSectorWeightings, count)
			}
		}

		if classes := transform.AssetClasses(ticker.ID, snapshot.Fund, today); len(classes) > 0 {
			attempted++
			if count, err := proc.Store.SaveAssetClasses(ctx, classes); err != nil {
				failed++
				lastErr = err
			} else if count > 0 {
				markUpdated(data.TableAssetClasses, count)
			}
		}
	}

	if attempted > 0 && failed == attempted {
		result.Err = fmt.Errorf("all writes failed for %s: %w", ticker.Symbol, lastErr)
	}

	return result
}
