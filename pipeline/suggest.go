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

	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
	"github.com/foliosync/mdsync/store"
)

// suggestWindowDays is how far ahead a dividend must be scheduled for a
// holding to generate a reinvestment suggestion.
const suggestWindowDays = 7

// TradeStore is the persistence surface the suggester needs.
type TradeStore interface {
	ReinvestmentCandidates(ctx context.Context, windowDays int) ([]*store.ReinvestmentCandidate, error)
	SaveSuggestedTrade(ctx context.Context, trade *data.SuggestedTrade) error
}

// TradeSuggester converts upcoming dividends on user holdings into
// suggested reinvestment buys.
type TradeSuggester struct {
	Store TradeStore
}

// Suggest writes one buy suggestion per (user, holding) with a dividend
// scheduled inside the window: the expected payout divided by the latest
// close. Candidates with no usable price are skipped.
func (suggester *TradeSuggester) Suggest(ctx context.Context) error {
	candidates, err := suggester.Store.ReinvestmentCandidates(ctx, suggestWindowDays)
	if err != nil {
		return err
	}

	for _, candidate := range candidates {
		if candidate.LastClose <= 0 || candidate.DividendPerShare <= 0 {
			log.Warn().Str("Symbol", candidate.Symbol).
				Msg("skipping reinvestment candidate without usable price or dividend")
			continue
		}

		payout := candidate.Shares * candidate.DividendPerShare
		trade := &data.SuggestedTrade{
			UserID:   candidate.UserID,
			TickerID: candidate.TickerID,
			Side:     "buy",
			Shares:   payout / candidate.LastClose,
			Rationale: fmt.Sprintf("reinvest %.2f dividend on %.4f shares of %s at %.2f",
				payout, candidate.Shares, candidate.Symbol, candidate.LastClose),
			CreatedAt: time.Now(),
		}

		if err := suggester.Store.SaveSuggestedTrade(ctx, trade); err != nil {
			return err
		}
	}

	log.Info().Int("NumCandidates", len(candidates)).Msg("trade suggestion complete")
	return nil
}
