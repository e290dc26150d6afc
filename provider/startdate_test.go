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
package provider_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliosync/mdsync/provider"
)

var _ = Describe("DetermineStartDate", func() {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

	It("anchors backfills at January 1 five years back", func() {
		start := provider.DetermineStartDate(time.Time{}, false, true, now)
		Expect(start).To(Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("prefers the backfill anchor even with a watermark", func() {
		last := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
		start := provider.DetermineStartDate(last, true, true, now)
		Expect(start).To(Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("resumes the day after the watermark", func() {
		last := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
		start := provider.DetermineStartDate(last, true, false, now)
		Expect(start).To(Equal(time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC)))
	})

	It("defaults to a thirty day lookback", func() {
		start := provider.DetermineStartDate(time.Time{}, false, false, now)
		Expect(start).To(Equal(now.AddDate(0, 0, -30)))
	})
})

var _ = Describe("ProviderSymbol", func() {
	It("leaves US primary exchange symbols alone", func() {
		Expect(provider.ProviderSymbol("AAPL", "NASDAQ")).To(Equal("AAPL"))
		Expect(provider.ProviderSymbol("IBM", "NYSE")).To(Equal("IBM"))
	})

	It("appends the exchange suffix", func() {
		Expect(provider.ProviderSymbol("SHOP", "TSX")).To(Equal("SHOP.TO"))
		Expect(provider.ProviderSymbol("BARC", "LSE")).To(Equal("BARC.L"))
		Expect(provider.ProviderSymbol("BMW", "FRA")).To(Equal("BMW.F"))
		Expect(provider.ProviderSymbol("7203", "TSE")).To(Equal("7203.T"))
		Expect(provider.ProviderSymbol("0700", "HKEX")).To(Equal("0700.HK"))
		Expect(provider.ProviderSymbol("600519", "SSE")).To(Equal("600519.SS"))
		Expect(provider.ProviderSymbol("IMO", "AMEX")).To(Equal("IMO.AM"))
	})

	It("passes unknown exchanges through unchanged", func() {
		Expect(provider.ProviderSymbol("ABC", "BOVESPA")).To(Equal("ABC"))
	})

	It("passes an empty exchange through unchanged", func() {
		Expect(provider.ProviderSymbol("VTSAX", "")).To(Equal("VTSAX"))
	})
})
