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
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Trigger event types. Each maps onto a base configuration; payload fields
// override it.
const (
	EventScheduled      = "scheduled"
	EventUpdate         = "update"
	EventInitialize     = "initialize"
	EventBackfill       = "backfill"
	EventBatch          = "batch"
	EventUpdateIndices  = "update_indices"
	EventUpdateETFs     = "update_etfs"
	EventUpdateEquities = "update_equities"
	EventUpdateForex    = "update_forex"
)

type rawEvent struct {
	Type            string   `json:"type"`
	Tickers         []string `json:"tickers"`
	QuoteTypes      []string `json:"quote_types"`
	StartDate       string   `json:"start_date"`
	ProcessPrices   *bool    `json:"process_prices"`
	ProcessInfo     *bool    `json:"process_info"`
	ProcessCalendar *bool    `json:"process_calendar"`
	ProcessFundData *bool    `json:"process_fund_data"`
	Parallel        *bool    `json:"parallel"`
	BatchSize       int      `json:"batch_size"`
	MaxWorkers      int      `json:"max_workers"`
	SuggestTrades   *bool    `json:"suggest_trades"`
}

// ResolveEvent turns a trigger event payload into a run configuration.
// A malformed payload (invalid JSON or an unknown event type) falls back to
// the scheduled configuration with a logged warning; an unparseable
// start_date is a hard validation error because silently ignoring it would
// fetch a different date range than the caller asked for.
func ResolveEvent(payload []byte) (*Config, error) {
	event := rawEvent{}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Warn().Err(err).Msg("malformed trigger event; falling back to scheduled run")
			event = rawEvent{Type: EventScheduled}
		}
	}

	if event.Type == "" {
		event.Type = EventScheduled
	}

	cfg, ok := baseConfig(event.Type)
	if !ok {
		log.Warn().Str("EventType", event.Type).
			Msg("unknown trigger event type; falling back to scheduled run")
		cfg, _ = baseConfig(EventScheduled)
	}

	if len(event.Tickers) > 0 {
		cfg.Symbols = event.Tickers
	}

	if len(event.QuoteTypes) > 0 {
		cfg.QuoteTypes = event.QuoteTypes
	}

	if event.StartDate != "" {
		startDate, err := time.Parse("2006-01-02", event.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start_date %q: %w", event.StartDate, err)
		}
		cfg.StartDate = &startDate
	} else if event.Type == EventBackfill {
		log.Warn().Msg("no start_date on backfill event; using the five-year anchor")
	}

	if event.ProcessPrices != nil {
		cfg.SkipPrices = !*event.ProcessPrices
	}

	if event.ProcessInfo != nil {
		cfg.SkipFinance = !*event.ProcessInfo
	}

	if event.ProcessCalendar != nil {
		cfg.SkipCalendar = !*event.ProcessCalendar
	}

	if event.ProcessFundData != nil {
		cfg.SkipFundData = !*event.ProcessFundData
	}

	if event.Parallel != nil {
		cfg.Parallel = *event.Parallel
	}

	if event.BatchSize > 0 {
		cfg.BatchSize = event.BatchSize
	}

	if event.MaxWorkers > 0 {
		cfg.MaxWorkers = event.MaxWorkers
	}

	if event.SuggestTrades != nil {
		cfg.SuggestTrades = *event.SuggestTrades
	}

	return cfg, nil
}

func baseConfig(eventType string) (*Config, bool) {
	cfg := &Config{
		EventType:  eventType,
		BatchSize:  defaultBatchSize,
		MaxWorkers: defaultMaxWorkers,
	}

	switch eventType {
	case EventScheduled:
		cfg.QuoteTypes = []string{"EQUITY", "ETF", "MUTUALFUND"}
	case EventUpdate:
		// explicit tickers expected in the payload; with none this
		// degrades to a full forced pass
		cfg.Force = true
	case EventInitialize:
		cfg.Force = true
		cfg.Backfill = true
	case EventBackfill:
		cfg.Force = true
		cfg.Backfill = true
	case EventBatch:
		cfg.Parallel = true
		cfg.Force = true
	case EventUpdateIndices:
		cfg.QuoteTypes = []string{"INDEX"}
		cfg.Force = true
		cfg.SkipCalendar = true
		cfg.SkipFundData = true
	case EventUpdateETFs:
		cfg.QuoteTypes = []string{"ETF"}
		cfg.Force = true
	case EventUpdateEquities:
		cfg.QuoteTypes = []string{"EQUITY"}
		cfg.Force = true
		cfg.SkipFundData = true
	case EventUpdateForex:
		cfg.QuoteTypes = []string{"CURRENCY"}
		cfg.Force = true
		cfg.SkipCalendar = true
		cfg.SkipFundData = true
	default:
		return nil, false
	}

	return cfg, true
}
