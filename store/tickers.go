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
	"strings"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
)

// tickerRow mirrors the tickers table with nullable columns coalesced to
// their zero values so scany can fill it without pointer gymnastics.
type tickerRow struct {
	ID        uuid.UUID `db:"id"`
	Symbol    string    `db:"symbol"`
	Name      string    `db:"name"`
	Exchange  string    `db:"exchange"`
	QuoteType string    `db:"quote_type"`
	Backfill  bool      `db:"backfill"`
}

const tickerColumns = `id, coalesce(symbol, '') AS symbol, coalesce(name, '') AS name,
coalesce(exchange, '') AS exchange, coalesce(quote_type, '') AS quote_type,
coalesce(backfill, false) AS backfill`

// SelectTickers returns the tickers a run should process. Explicit symbols
// take precedence over a quote-type filter, which takes precedence over the
// full universe. Rows without a symbol are dropped with a warning, symbols
// are uppercased, and missing quote types default to EQUITY. Requested
// symbols with no matching row are logged but do not fail selection.
func (myStore *Store) SelectTickers(ctx context.Context, symbols []string, quoteTypes []string) ([]*data.Ticker, error) {
	var (
		rows []*tickerRow
		err  error
	)

	requested := make(map[string]bool, len(symbols))
	for idx, symbol := range symbols {
		symbols[idx] = strings.ToUpper(strings.TrimSpace(symbol))
		requested[symbols[idx]] = false
	}

	switch {
	case len(symbols) > 0:
		err = pgxscan.Select(ctx, myStore.Pool, &rows,
			fmt.Sprintf(`SELECT %s FROM %s WHERE upper(symbol) = ANY($1)`, tickerColumns, data.TableTickers),
			symbols)
	case len(quoteTypes) > 0:
		err = pgxscan.Select(ctx, myStore.Pool, &rows,
			fmt.Sprintf(`SELECT %s FROM %s WHERE quote_type = ANY($1)`, tickerColumns, data.TableTickers),
			quoteTypes)
	default:
		err = pgxscan.Select(ctx, myStore.Pool, &rows,
			fmt.Sprintf(`SELECT %s FROM %s`, tickerColumns, data.TableTickers))
	}

	if err != nil {
		log.Error().Err(err).Msg("could not select tickers")
		return nil, err
	}

	tickers := make([]*data.Ticker, 0, len(rows))
	for _, row := range rows {
		if row.Symbol == "" {
			log.Warn().Str("TickerID", row.ID.String()).
				Msg("dropping ticker row with empty symbol")
			continue
		}

		symbol := strings.ToUpper(row.Symbol)
		if _, ok := requested[symbol]; ok {
			requested[symbol] = true
		}

		tickers = append(tickers, &data.Ticker{
			ID:        row.ID,
			Symbol:    symbol,
			Name:      row.Name,
			Exchange:  row.Exchange,
			QuoteType: data.ParseQuoteType(row.QuoteType),
			Backfill:  row.Backfill,
		})
	}

	for symbol, found := range requested {
		if !found {
			log.Warn().Str("Symbol", symbol).Msg("requested symbol not found in tickers table")
		}
	}

	return tickers, nil
}

// InsertTickers upserts tickers keyed by symbol; used by the import and add
// commands, not by scheduled runs.
func (myStore *Store) InsertTickers(ctx context.Context, tickers []*data.Ticker) (int, error) {
	if len(tickers) == 0 {
		return 0, nil
	}

	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"id",
		"symbol",
		"name",
		"exchange",
		"quote_type",
		"backfill"
	) VALUES (
		$1, $2, $3, $4, $5, $6
	) ON CONFLICT (symbol)
	DO UPDATE SET
		name = EXCLUDED.name,
		exchange = EXCLUDED.exchange,
		quote_type = EXCLUDED.quote_type,
		backfill = EXCLUDED.backfill;`, data.TableTickers)

	count := 0
	for _, ticker := range tickers {
		if ticker.Symbol == "" {
			log.Warn().Msg("skipping ticker with empty symbol")
			continue
		}

		id := ticker.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		if _, err := tx.Exec(ctx, sql, id, strings.ToUpper(ticker.Symbol), ticker.Name,
			ticker.Exchange, string(ticker.QuoteType), ticker.Backfill); err != nil {
			log.Error().Err(err).Str("Symbol", ticker.Symbol).
				Msg("error saving ticker to database")
			if err := tx.Rollback(ctx); err != nil {
				log.Error().Err(err).Msg("could not rollback transaction")
			}
			return 0, err
		}

		count++
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("could not commit transaction")
		return 0, err
	}

	return count, nil
}
