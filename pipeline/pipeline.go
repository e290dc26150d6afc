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
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
)

// batchPause is the courtesy delay between parallel batches.
const batchPause = time.Second

// TickerSelector chooses the securities a run processes. *store.Store
// satisfies it.
type TickerSelector interface {
	SelectTickers(ctx context.Context, symbols []string, quoteTypes []string) ([]*data.Ticker, error)
}

// Pipeline orchestrates a full run: select, process each ticker, fold
// results, optionally suggest trades.
type Pipeline struct {
	Processor *Processor
	Selector  TickerSelector
	Suggester *TradeSuggester
	Config    *Config
}

// Execute runs the pipeline to completion. A per-ticker failure never
// aborts the run; only selection failure is a run-level error.
func (pipe *Pipeline) Execute(ctx context.Context) (*RunResult, error) {
	result := NewRunResult()

	tickers, err := pipe.Selector.SelectTickers(ctx, pipe.Config.Symbols, pipe.Config.QuoteTypes)
	if err != nil {
		return nil, err
	}

	log.Info().Int("NumTickers", len(tickers)).Str("EventType", pipe.Config.EventType).
		Bool("Parallel", pipe.Config.Parallel).Msg("starting run")

	if pipe.Config.Parallel {
		pipe.executeParallel(ctx, tickers, result)
	} else {
		for _, ticker := range tickers {
			result.fold(pipe.Processor.ProcessTicker(ctx, ticker, pipe.Config))
		}
	}

	result.EndTime = time.Now()

	if pipe.Config.SuggestTrades && pipe.Suggester != nil &&
		(result.Status() == StatusOK || result.Status() == StatusPartial) {
		if err := pipe.Suggester.Suggest(ctx); err != nil {
			log.Error().Err(err).Msg("trade suggestion failed")
		}
	}

	return result, nil
}

// executeParallel processes tickers in bounded batches. Each batch runs
// its tickers with at most MaxWorkers in flight, collects outcomes in a
// lock-free map, and pauses briefly before the next batch so the provider
// sees bursts, not a sustained hammering. Results are folded only between
// batches.
func (pipe *Pipeline) executeParallel(ctx context.Context, tickers []*data.Ticker, result *RunResult) {
	batchSize := pipe.Config.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	maxWorkers := pipe.Config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	if maxWorkers > batchSize {
		maxWorkers = batchSize
	}

	for start := 0; start < len(tickers); start += batchSize {
		end := start + batchSize
		if end > len(tickers) {
			end = len(tickers)
		}
		batch := tickers[start:end]

		results := haxmap.New[string, *TickerResult]()
		wg := sync.WaitGroup{}
		slots := make(chan struct{}, maxWorkers)

		for _, ticker := range batch {
			wg.Add(1)
			slots <- struct{}{}
			go func(ticker *data.Ticker) {
				defer wg.Done()
				defer func() { <-slots }()
				results.Set(ticker.Symbol, pipe.Processor.ProcessTicker(ctx, ticker, pipe.Config))
			}(ticker)
		}

		wg.Wait()

		results.ForEach(func(_ string, tickerResult *TickerResult) bool {
			result.fold(tickerResult)
			return true
		})

		if end < len(tickers) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(batchPause):
			}
		}
	}
}
