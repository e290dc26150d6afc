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
package data

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Calendar event kinds. Each kind produces at most one row per
// (ticker, date), so the conflict key includes the event type.
const (
	EventDividend   = "dividend"
	EventExDividend = "ex_dividend"
	EventEarnings   = "earnings"
)

// CalendarEvent is a single upcoming corporate event. EarningsDates is
// populated only for earnings events, where a provider may report a window
// of candidate dates; Date then holds the earliest of them.
type CalendarEvent struct {
	TickerID      uuid.UUID `db:"ticker_id"`
	Date          time.Time `db:"date"`
	EventType     string    `db:"event_type"`
	EarningsDates []string  `db:"earnings_dates"`

	// Analyst estimates, earnings events only.
	EarningsHigh    *float64 `db:"earnings_high"`
	EarningsLow     *float64 `db:"earnings_low"`
	EarningsAverage *float64 `db:"earnings_average"`
	RevenueHigh     *int64   `db:"revenue_high"`
	RevenueLow      *int64   `db:"revenue_low"`
	RevenueAverage  *int64   `db:"revenue_average"`
}

// SaveCalendarEvents upserts the events in a single transaction keyed by
// (ticker_id, date, event_type). An empty slice is a no-op.
func SaveCalendarEvents(ctx context.Context, conn *pgxpool.Conn, events []*CalendarEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"date",
		"event_type",
		"earnings_dates",
		"earnings_high",
		"earnings_low",
		"earnings_average",
		"revenue_high",
		"revenue_low",
		"revenue_average"
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	) ON CONFLICT (ticker_id, date, event_type)
	DO UPDATE SET
		earnings_dates = EXCLUDED.earnings_dates,
		earnings_high = EXCLUDED.earnings_high,
		earnings_low = EXCLUDED.earnings_low,
		earnings_average = EXCLUDED.earnings_average,
		revenue_high = EXCLUDED.revenue_high,
		revenue_low = EXCLUDED.revenue_low,
		revenue_average = EXCLUDED.revenue_average;`, TableCalendarEvents)

	for _, event := range events {
		if _, err := tx.Exec(ctx, sql, event.TickerID, event.Date,
			event.EventType, event.EarningsDates, event.EarningsHigh,
			event.EarningsLow, event.EarningsAverage, event.RevenueHigh,
			event.RevenueLow, event.RevenueAverage); err != nil {
			log.Error().Err(err).Str("TickerID", event.TickerID.String()).
				Str("EventType", event.EventType).
				Msg("error saving calendar event to database")
			if err := tx.Rollback(ctx); err != nil {
				log.Error().Err(err).Msg("could not rollback transaction")
			}
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("could not commit transaction")
		return 0, err
	}

	return len(events), nil
}
