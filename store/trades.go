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
package store

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
)

// ReinvestmentCandidate joins a user's holding against an upcoming dividend
// and the latest close, everything needed to size a reinvestment buy.
type ReinvestmentCandidate struct {
	UserID           uuid.UUID `db:"user_id"`
	TickerID         uuid.UUID `db:"ticker_id"`
	Symbol           string    `db:"symbol"`
	Shares           float64   `db:"shares"`
	DividendPerShare float64   `db:"dividend_per_share"`
	LastClose        float64   `db:"last_close"`
}

// ReinvestmentCandidates returns one row per (user, held ticker) with a
// dividend scheduled within the next windowDays days and a known recent
// close price.
func (myStore *Store) ReinvestmentCandidates(ctx context.Context, windowDays int) ([]*ReinvestmentCandidate, error) {
	var candidates []*ReinvestmentCandidate

	sql := fmt.Sprintf(`SELECT
	h.user_id,
	h.ticker_id,
	t.symbol,
	h.shares,
	p.dividends AS dividend_per_share,
	latest.close AS last_close
FROM user_holdings h
JOIN %[1]s t ON t.id = h.ticker_id
JOIN %[2]s e ON e.ticker_id = h.ticker_id
	AND e.event_type = '%[4]s'
	AND e.date BETWEEN current_date AND current_date + $1::int
JOIN LATERAL (
	SELECT dividends FROM %[3]s
	WHERE ticker_id = h.ticker_id AND dividends IS NOT NULL AND dividends > 0
	ORDER BY date DESC LIMIT 1
) p ON true
JOIN LATERAL (
	SELECT close FROM %[3]s
	WHERE ticker_id = h.ticker_id AND close IS NOT NULL
	ORDER BY date DESC LIMIT 1
) latest ON true
WHERE h.shares > 0`,
		data.TableTickers, data.TableCalendarEvents, data.TablePrices, data.EventDividend)

	if err := pgxscan.Select(ctx, myStore.Pool, &candidates, sql, windowDays); err != nil {
		log.Error().Err(err).Msg("could not query reinvestment candidates")
		return nil, err
	}

	return candidates, nil
}
