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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/foliosync/mdsync/data"
)

// watermarkTables are the destinations whose max(date) per ticker acts as
// the freshness watermark. Table names are interpolated into SQL, so only
// these names are accepted.
var watermarkTables = map[string]bool{
	data.TablePrices:         true,
	data.TableFinance:        true,
	data.TableCalendarEvents: true,
}

// LastUpdateDate returns the newest stored date for a ticker in the given
// table and whether one exists. Query failures are logged and reported as
// "no prior data" so a transient database hiccup degrades to a wider fetch
// window instead of failing the ticker.
func (myStore *Store) LastUpdateDate(ctx context.Context, tickerID uuid.UUID, table string) (time.Time, bool) {
	if !watermarkTables[table] {
		log.Error().Str("Table", table).Msg("refusing watermark query for unknown table")
		return time.Time{}, false
	}

	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not acquire database connection")
		return time.Time{}, false
	}
	defer conn.Release()

	var last *time.Time
	sql := fmt.Sprintf(`SELECT max(date) FROM %s WHERE ticker_id = $1`, table)
	if err := conn.QueryRow(ctx, sql, tickerID).Scan(&last); err != nil {
		log.Error().Err(err).Str("TickerID", tickerID.String()).Str("Table", table).
			Msg("could not query last update date; treating as no prior data")
		return time.Time{}, false
	}

	if last == nil {
		return time.Time{}, false
	}

	return *last, true
}
