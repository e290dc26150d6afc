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

// TickerUpdate is metadata written back onto the tickers table after a
// provider fetch. Nil fields are left untouched via COALESCE. ClearBackfill
// drops the ticker's backfill flag once the historical window has been
// fetched, so the next run resumes from the watermark instead.
type TickerUpdate struct {
	TickerID      uuid.UUID
	Name          *string
	QuoteType     *string
	ClearBackfill bool
}

// Empty reports whether the update would change nothing.
func (update *TickerUpdate) Empty() bool {
	return update.Name == nil && update.QuoteType == nil && !update.ClearBackfill
}

// SaveDB applies the metadata update and stamps last_checked.
func (update *TickerUpdate) SaveDB(ctx context.Context, conn *pgxpool.Conn) error {
	sql := fmt.Sprintf(`UPDATE %[1]s SET
		name = COALESCE($2, name),
		quote_type = COALESCE($3, quote_type),
		backfill = backfill AND NOT $4,
		last_checked = $5
	WHERE id = $1;`, TableTickers)

	if _, err := conn.Exec(ctx, sql, update.TickerID, update.Name,
		update.QuoteType, update.ClearBackfill, time.Now()); err != nil {
		log.Error().Err(err).Str("TickerID", update.TickerID.String()).
			Msg("error writing ticker metadata to database")
		return err
	}

	return nil
}

// SuggestedTrade is a dividend reinvestment recommendation generated after a
// run. Trades are append-only; the history of suggestions is kept.
type SuggestedTrade struct {
	UserID    uuid.UUID `db:"user_id"`
	TickerID  uuid.UUID `db:"ticker_id"`
	Side      string    `db:"side"`
	Shares    float64   `db:"shares"`
	Rationale string    `db:"rationale"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveDB inserts the suggested trade.
func (trade *SuggestedTrade) SaveDB(ctx context.Context, conn *pgxpool.Conn) error {
	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"user_id",
		"ticker_id",
		"side",
		"shares",
		"rationale",
		"created_at"
	) VALUES (
		$1, $2, $3, $4, $5, $6
	);`, TableSuggestedTrades)

	if _, err := conn.Exec(ctx, sql, trade.UserID, trade.TickerID, trade.Side,
		trade.Shares, trade.Rationale, trade.CreatedAt); err != nil {
		log.Error().Err(err).Str("TickerID", trade.TickerID.String()).
			Msg("error saving suggested trade to database")
		return err
	}

	return nil
}
