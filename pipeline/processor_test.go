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
package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/pipeline"
	"github.com/foliosync/mdsync/provider"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }
func strPtr(s string) *string     { return &s }

type fakeStore struct {
	mu sync.Mutex

	watermarks map[string]time.Time
	failTables map[string]bool

	prices   []*data.PriceBar
	finance  []*data.FinanceSnapshot
	events   []*data.CalendarEvent
	holdings []*data.FundHolding
	sectors  []*data.SectorWeighting
	classes  []*data.AssetClassWeighting
	updates  []*data.TickerUpdate
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		watermarks: make(map[string]time.Time),
		failTables: make(map[string]bool),
	}
}

func (s *fakeStore) LastUpdateDate(_ context.Context, _ uuid.UUID, table string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.watermarks[table]
	return last, ok
}

func (s *fakeStore) SavePrices(_ context.Context, bars []*data.PriceBar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTables[data.TablePrices] {
		return 0, errors.New("prices write failed")
	}
	s.prices = append(s.prices, bars...)
	return len(bars), nil
}

func (s *fakeStore) SaveFinance(_ context.Context, snap *data.FinanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTables[data.TableFinance] {
		return errors.New("finance write failed")
	}
	s.finance = append(s.finance, snap)
	return nil
}

func (s *fakeStore) SaveCalendarEvents(_ context.Context, events []*data.CalendarEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTables[data.TableCalendarEvents] {
		return 0, errors.New("calendar write failed")
	}
	s.events = append(s.events, events...)
	return len(events), nil
}

func (s *fakeStore) SaveFundHoldings(_ context.Context, holdings []*data.FundHolding) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTables[data.TableFundHoldings] {
		return 0, errors.New("holdings write failed")
	}
	s.holdings = append(s.holdings, holdings...)
	return len(holdings), nil
}

func (s *fakeStore) SaveSectorWeightings(_ context.Context, weightings []*data.SectorWeighting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sectors = append(s.sectors, weightings...)
	return len(weightings), nil
}

func (s *fakeStore) SaveAssetClasses(_ context.Context, classes []*data.AssetClassWeighting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = append(s.classes, classes...)
	return len(classes), nil
}

func (s *fakeStore) SaveTickerUpdate(_ context.Context, update *data.TickerUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTables[data.TableTickers] {
		return errors.New("ticker write failed")
	}
	s.updates = append(s.updates, update)
	return nil
}

type fakeClient struct {
	mu sync.Mutex

	snapshot    *provider.TickerSnapshot
	failSymbols map[string]bool
	delay       time.Duration

	calls           int
	inFlight        int
	maxInFlight     int
	lastStartDate   time.Time
	lastIncludeFund bool
}

func (c *fakeClient) Name() string { return "fake" }

func (c *fakeClient) Fetch(_ context.Context, symbol string, _ string, startDate time.Time, includeFund bool) (*provider.TickerSnapshot, error) {
	c.mu.Lock()
	c.calls++
	c.inFlight++
	if c.inFlight > c.maxInFlight {
		c.maxInFlight = c.inFlight
	}
	c.lastStartDate = startDate
	c.lastIncludeFund = includeFund
	fail := c.failSymbols[symbol]
	snapshot := c.snapshot
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	c.inFlight--
	c.mu.Unlock()

	if fail {
		return nil, errors.New("provider unavailable")
	}
	return snapshot, nil
}

// fullSnapshot returns a snapshot with five bars, a well-populated info
// section, a calendar, and fund composition.
func fullSnapshot() *provider.TickerSnapshot {
	base := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)

	prices := make([]*provider.PriceRow, 0, 5)
	for day := 0; day < 5; day++ {
		prices = append(prices, &provider.PriceRow{
			Date:   base.AddDate(0, 0, day),
			Close:  floatPtr(10.0 + float64(day)),
			Volume: intPtr(1000),
		})
	}

	exDate := base.AddDate(0, 0, 10)
	return &provider.TickerSnapshot{
		Symbol: "TEST",
		Prices: prices,
		Info: &provider.Info{
			ShortName:          strPtr("Test Security"),
			QuoteType:          strPtr("ETF"),
			RegularMarketPrice: floatPtr(14.0),
			MarketCap:          intPtr(1000000),
			NavPrice:           floatPtr(13.9),
			TotalAssets:        intPtr(5000000),
			DividendYield:      floatPtr(0.02),
		},
		Calendar: &provider.Calendar{
			ExDividendDate: &exDate,
		},
		Fund: &provider.FundComposition{
			Holdings: []provider.Holding{
				{Symbol: "AAPL", Name: "Apple Inc.", Weight: 0.07},
			},
			SectorWeightings: []provider.NamedWeight{
				{Name: "technology", Weight: 0.3},
			},
			AssetClasses: []provider.NamedWeight{
				{Name: "stock", Weight: 0.99},
			},
		},
	}
}

var _ = Describe("Processor.ProcessTicker", func() {
	var (
		ctx    context.Context
		store  *fakeStore
		client *fakeClient
		proc   *pipeline.Processor
		ticker *data.Ticker
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		client = &fakeClient{snapshot: fullSnapshot(), failSymbols: make(map[string]bool)}
		proc = &pipeline.Processor{Store: store, Client: client}
		ticker = &data.Ticker{
			ID:        uuid.New(),
			Symbol:    "TEST",
			Exchange:  "NYSE",
			QuoteType: data.Equity,
		}
	})

	It("skips the fetch entirely when every category is fresh", func() {
		now := time.Now()
		store.watermarks[data.TablePrices] = now
		store.watermarks[data.TableFinance] = now
		store.watermarks[data.TableCalendarEvents] = now

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(client.calls).To(Equal(0))
		Expect(result.UpdatedTables).To(BeEmpty())
	})

	It("fetches fresh categories anyway on a forced run", func() {
		now := time.Now()
		store.watermarks[data.TablePrices] = now
		store.watermarks[data.TableFinance] = now
		store.watermarks[data.TableCalendarEvents] = now

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{Force: true})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(client.calls).To(Equal(1))
		Expect(result.UpdatedTables).To(ContainElement(data.TablePrices))
	})

	It("fetches once and persists all stale categories", func() {
		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(client.calls).To(Equal(1))

		Expect(store.prices).To(HaveLen(5))
		Expect(store.finance).To(HaveLen(1))
		Expect(store.updates).To(HaveLen(1))
		Expect(store.events).To(HaveLen(1))

		Expect(result.UpdatedTables).To(ConsistOf(
			data.TablePrices, data.TableFinance, data.TableTickers, data.TableCalendarEvents))
		Expect(result.NumRecords).To(Equal(8))
	})

	It("resumes the fetch the day after the price watermark", func() {
		last := time.Now().AddDate(0, 0, -3)
		store.watermarks[data.TablePrices] = last

		proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		expected := last.AddDate(0, 0, 1)
		Expect(client.lastStartDate.Format("2006-01-02")).To(Equal(expected.Format("2006-01-02")))
	})

	It("honors an explicit start date override", func() {
		startDate := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
		proc.ProcessTicker(ctx, ticker, &pipeline.Config{StartDate: &startDate})
		Expect(client.lastStartDate).To(Equal(startDate))
	})

	It("requests fund composition only for fund instruments", func() {
		proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(client.lastIncludeFund).To(BeFalse())

		fund := &data.Ticker{ID: uuid.New(), Symbol: "VTSAX", QuoteType: data.MutualFund}
		result := proc.ProcessTicker(ctx, fund, &pipeline.Config{})
		Expect(client.lastIncludeFund).To(BeTrue())
		Expect(store.holdings).To(HaveLen(1))
		Expect(store.sectors).To(HaveLen(1))
		Expect(store.classes).To(HaveLen(1))
		Expect(result.UpdatedTables).To(ContainElements(
			data.TableFundHoldings, data.TableSectorWeightings, data.TableAssetClasses))
	})

	It("refreshes fund composition even when finance data is fresh", func() {
		store.watermarks[data.TableFinance] = time.Now()

		fund := &data.Ticker{ID: uuid.New(), Symbol: "VTSAX", QuoteType: data.MutualFund}
		result := proc.ProcessTicker(ctx, fund, &pipeline.Config{})
		Expect(client.lastIncludeFund).To(BeTrue())
		Expect(store.holdings).To(HaveLen(1))
		Expect(result.UpdatedTables).NotTo(ContainElement(data.TableFinance))
	})

	It("clears the backfill flag once the historical window is stored", func() {
		ticker.Backfill = true

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(store.updates).To(HaveLen(1))
		Expect(store.updates[0].ClearBackfill).To(BeTrue())
	})

	It("keeps the backfill flag when the price write fails", func() {
		ticker.Backfill = true
		store.failTables[data.TablePrices] = true

		proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(store.updates).To(HaveLen(1))
		Expect(store.updates[0].ClearBackfill).To(BeFalse())
	})

	It("does not clear the backfill flag on an ordinary run", func() {
		proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(store.updates).To(HaveLen(1))
		Expect(store.updates[0].ClearBackfill).To(BeFalse())
	})

	It("leaves skipped categories alone even when stale", func() {
		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{
			SkipFinance:  true,
			SkipCalendar: true,
		})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(store.prices).To(HaveLen(5))
		Expect(store.finance).To(BeEmpty())
		Expect(store.events).To(BeEmpty())
		Expect(result.UpdatedTables).To(ConsistOf(data.TablePrices))
	})

	It("does not persist a sparse info snapshot", func() {
		client.snapshot.Info = &provider.Info{
			ShortName: strPtr("Test Security"),
			QuoteType: strPtr("EQUITY"),
		}

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(store.finance).To(BeEmpty())
		Expect(result.UpdatedTables).NotTo(ContainElement(data.TableFinance))

		// the metadata refresh still goes through
		Expect(store.updates).To(HaveLen(1))
	})

	It("fails the ticker when the fetch fails", func() {
		client.failSymbols["TEST"] = true

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).To(HaveOccurred())
		Expect(result.UpdatedTables).To(BeEmpty())
	})

	It("fails only the affected table on a write error", func() {
		store.failTables[data.TablePrices] = true

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).NotTo(HaveOccurred())
		Expect(result.UpdatedTables).NotTo(ContainElement(data.TablePrices))
		Expect(result.UpdatedTables).To(ContainElement(data.TableFinance))
	})

	It("fails the ticker when every write fails", func() {
		store.failTables[data.TablePrices] = true
		store.failTables[data.TableFinance] = true
		store.failTables[data.TableTickers] = true
		store.failTables[data.TableCalendarEvents] = true

		result := proc.ProcessTicker(ctx, ticker, &pipeline.Config{})
		Expect(result.Err).To(HaveOccurred())
		Expect(result.UpdatedTables).To(BeEmpty())
	})
})

type fakeSelector struct {
	tickers []*data.Ticker
}

func (sel *fakeSelector) SelectTickers(_ context.Context, _ []string, _ []string) ([]*data.Ticker, error) {
	return sel.tickers, nil
}

var _ = Describe("Pipeline.Execute", func() {
	var (
		store  *fakeStore
		client *fakeClient
	)

	tickers := []*data.Ticker{
		{ID: uuid.New(), Symbol: "GOOD", QuoteType: data.Equity},
		{ID: uuid.New(), Symbol: "BAD", QuoteType: data.Equity},
	}

	BeforeEach(func() {
		store = newFakeStore()
		client = &fakeClient{snapshot: fullSnapshot(), failSymbols: map[string]bool{"BAD": true}}
	})

	newPipeline := func(cfg *pipeline.Config) *pipeline.Pipeline {
		return &pipeline.Pipeline{
			Processor: &pipeline.Processor{Store: store, Client: client},
			Selector:  &fakeSelector{tickers: tickers},
			Config:    cfg,
		}
	}

	It("contains per-ticker failures and reports a partial run", func() {
		result, err := newPipeline(&pipeline.Config{}).Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(result.NumTickers).To(Equal(2))
		Expect(result.Succeeded).To(ConsistOf("GOOD"))
		Expect(result.Failed).To(HaveKey("BAD"))
		Expect(result.Status()).To(Equal(pipeline.StatusPartial))
	})

	It("collects the same outcomes in parallel mode", func() {
		result, err := newPipeline(&pipeline.Config{Parallel: true, BatchSize: 2}).
			Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(result.NumTickers).To(Equal(2))
		Expect(result.Succeeded).To(ConsistOf("GOOD"))
		Expect(result.Failed).To(HaveKey("BAD"))
	})

	It("keeps at most MaxWorkers tickers in flight within a batch", func() {
		many := make([]*data.Ticker, 0, 6)
		for _, symbol := range []string{"A", "B", "C", "D", "E", "F"} {
			many = append(many, &data.Ticker{ID: uuid.New(), Symbol: symbol, QuoteType: data.Equity})
		}
		client.delay = 20 * time.Millisecond

		pipe := &pipeline.Pipeline{
			Processor: &pipeline.Processor{Store: store, Client: client},
			Selector:  &fakeSelector{tickers: many},
			Config:    &pipeline.Config{Parallel: true, BatchSize: 6, MaxWorkers: 2},
		}

		result, err := pipe.Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.NumTickers).To(Equal(6))
		Expect(client.maxInFlight).To(BeNumerically("<=", 2))
	})

	It("reports no work for an empty selection", func() {
		pipe := &pipeline.Pipeline{
			Processor: &pipeline.Processor{Store: store, Client: client},
			Selector:  &fakeSelector{},
			Config:    &pipeline.Config{},
		}

		result, err := pipe.Execute(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Status()).To(Equal(pipeline.StatusNoWork))
	})
})
