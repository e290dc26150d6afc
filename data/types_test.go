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
package data_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/foliosync/mdsync/data"
)

var _ = Describe("ParseQuoteType", func() {
	It("accepts known types", func() {
		Expect(data.ParseQuoteType("ETF")).To(Equal(data.ETF))
		Expect(data.ParseQuoteType("MUTUALFUND")).To(Equal(data.MutualFund))
		Expect(data.ParseQuoteType("INDEX")).To(Equal(data.Index))
	})

	It("defaults unknown types to equity", func() {
		Expect(data.ParseQuoteType("")).To(Equal(data.Equity))
		Expect(data.ParseQuoteType("WARRANT")).To(Equal(data.Equity))
	})
})

var _ = Describe("QuoteType.IsFund", func() {
	It("treats ETFs and mutual funds as funds", func() {
		Expect(data.ETF.IsFund()).To(BeTrue())
		Expect(data.MutualFund.IsFund()).To(BeTrue())
	})

	It("treats everything else as not a fund", func() {
		Expect(data.Equity.IsFund()).To(BeFalse())
		Expect(data.Index.IsFund()).To(BeFalse())
		Expect(data.Currency.IsFund()).To(BeFalse())
	})
})

var _ = Describe("ShouldUpdate", func() {
	It("is stale when there is no prior watermark", func() {
		Expect(data.ShouldUpdate(time.Time{}, false, 1)).To(BeTrue())
	})

	It("is fresh when the watermark is within the threshold", func() {
		Expect(data.ShouldUpdate(time.Now(), true, 1)).To(BeFalse())
		Expect(data.ShouldUpdate(time.Now().AddDate(0, 0, -3), true, 7)).To(BeFalse())
	})

	It("is stale once the threshold has elapsed", func() {
		Expect(data.ShouldUpdate(time.Now().AddDate(0, 0, -1), true, 1)).To(BeTrue())
		Expect(data.ShouldUpdate(time.Now().AddDate(0, 0, -8), true, 7)).To(BeTrue())
	})
})

var _ = Describe("FinanceSnapshot.Empty", func() {
	It("is empty with only identity fields set", func() {
		snap := &data.FinanceSnapshot{Date: time.Now()}
		Expect(snap.Empty()).To(BeTrue())
	})

	It("is not empty once a data field is populated", func() {
		beta := 1.2
		snap := &data.FinanceSnapshot{Beta: &beta}
		Expect(snap.Empty()).To(BeFalse())
	})
})

var _ = Describe("TickerUpdate.Empty", func() {
	It("is empty without name or quote type", func() {
		Expect((&data.TickerUpdate{}).Empty()).To(BeTrue())
	})

	It("is not empty with a name", func() {
		name := "Apple Inc."
		Expect((&data.TickerUpdate{Name: &name}).Empty()).To(BeFalse())
	})

	It("is not empty when it clears the backfill flag", func() {
		Expect((&data.TickerUpdate{ClearBackfill: true}).Empty()).To(BeFalse())
	})
})
