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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliosync/mdsync/pipeline"
)

var _ = Describe("ResolveEvent", func() {
	It("defaults an empty payload to a scheduled run over the standard instrument classes", func() {
		cfg, err := pipeline.ResolveEvent(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.EventType).To(Equal(pipeline.EventScheduled))
		Expect(cfg.QuoteTypes).To(Equal([]string{"EQUITY", "ETF", "MUTUALFUND"}))
		Expect(cfg.Force).To(BeFalse())
		Expect(cfg.Backfill).To(BeFalse())
		Expect(cfg.Parallel).To(BeFalse())
		Expect(cfg.SuggestTrades).To(BeFalse())
	})

	It("resolves an update event to a forced run over explicit tickers", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"update","tickers":["AAPL","MSFT"]}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.EventType).To(Equal(pipeline.EventUpdate))
		Expect(cfg.Symbols).To(Equal([]string{"AAPL", "MSFT"}))
		Expect(cfg.Force).To(BeTrue())
		Expect(cfg.Backfill).To(BeFalse())
	})

	It("resolves an initialize event to a forced backfill", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"initialize"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Force).To(BeTrue())
		Expect(cfg.Backfill).To(BeTrue())
	})

	It("resolves a backfill event to a backfill run", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"backfill"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Backfill).To(BeTrue())
	})

	It("resolves a batch event to a forced parallel run", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"batch"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Parallel).To(BeTrue())
		Expect(cfg.Force).To(BeTrue())
		Expect(cfg.BatchSize).To(BeNumerically(">", 0))
		Expect(cfg.MaxWorkers).To(BeNumerically(">", 0))
	})

	It("resolves instrument class events to forced quote type runs", func() {
		for eventType, quoteType := range map[string]string{
			pipeline.EventUpdateIndices:  "INDEX",
			pipeline.EventUpdateETFs:     "ETF",
			pipeline.EventUpdateEquities: "EQUITY",
			pipeline.EventUpdateForex:    "CURRENCY",
		} {
			cfg, err := pipeline.ResolveEvent([]byte(`{"type":"` + eventType + `"}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.QuoteTypes).To(Equal([]string{quoteType}))
			Expect(cfg.Force).To(BeTrue())
		}
	})

	It("excludes categories the instrument class does not have", func() {
		indices, err := pipeline.ResolveEvent([]byte(`{"type":"update_indices"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(indices.SkipCalendar).To(BeTrue())
		Expect(indices.SkipFundData).To(BeTrue())
		Expect(indices.SkipPrices).To(BeFalse())

		equities, err := pipeline.ResolveEvent([]byte(`{"type":"update_equities"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(equities.SkipCalendar).To(BeFalse())
		Expect(equities.SkipFundData).To(BeTrue())
	})

	It("honors explicit process category overrides", func() {
		cfg, err := pipeline.ResolveEvent([]byte(
			`{"type":"scheduled","process_prices":false,"process_calendar":false}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.SkipPrices).To(BeTrue())
		Expect(cfg.SkipCalendar).To(BeTrue())
		Expect(cfg.SkipFinance).To(BeFalse())
		Expect(cfg.SkipFundData).To(BeFalse())
	})

	It("applies payload overrides on top of the base configuration", func() {
		cfg, err := pipeline.ResolveEvent([]byte(
			`{"type":"batch","batch_size":25,"max_workers":3,"suggest_trades":true,"parallel":false}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.BatchSize).To(Equal(25))
		Expect(cfg.MaxWorkers).To(Equal(3))
		Expect(cfg.SuggestTrades).To(BeTrue())
		Expect(cfg.Parallel).To(BeFalse())
	})

	It("parses an explicit start date", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"update","start_date":"2024-03-01"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.StartDate).NotTo(BeNil())
		Expect(*cfg.StartDate).To(Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("rejects a malformed start date", func() {
		_, err := pipeline.ResolveEvent([]byte(`{"type":"update","start_date":"03/01/2024"}`))
		Expect(err).To(HaveOccurred())
	})

	It("falls back to scheduled on invalid JSON", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{not json`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.EventType).To(Equal(pipeline.EventScheduled))
	})

	It("falls back to scheduled on an unknown event type", func() {
		cfg, err := pipeline.ResolveEvent([]byte(`{"type":"reticulate"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.EventType).To(Equal(pipeline.EventScheduled))
	})
})
