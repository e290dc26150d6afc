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

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foliosync/mdsync/data"
)

// withConn acquires a pooled connection for the duration of fn.
func (myStore *Store) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	return fn(conn)
}

// SavePrices upserts daily bars and returns the number written.
func (myStore *Store) SavePrices(ctx context.Context, bars []*data.PriceBar) (int, error) {
	count := 0
	err := myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		count, err = data.SavePriceBars(ctx, conn, bars)
		return err
	})

	return count, err
}

// SaveFinance upserts the fundamentals snapshot.
func (myStore *Store) SaveFinance(ctx context.Context, snap *data.FinanceSnapshot) error {
	return myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		return snap.SaveDB(ctx, conn)
	})
}

// SaveCalendarEvents upserts calendar events and returns the number written.
func (myStore *Store) SaveCalendarEvents(ctx context.Context, events []*data.CalendarEvent) (int, error) {
	count := 0
	err := myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		count, err = data.SaveCalendarEvents(ctx, conn, events)
		return err
	})

	return count, err
}

// SaveFundHoldings upserts fund top holdings and returns the number written.
func (myStore *Store) SaveFundHoldings(ctx context.Context, holdings []*data.FundHolding) (int, error) {
	count := 0
	err := myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		count, err = data.SaveFundHoldings(ctx, conn, holdings)
		return err
	})

	return count, err
}

// SaveSectorWeightings upserts sector weightings and returns the number
// written.
func (myStore *Store) SaveSectorWeightings(ctx context.Context, weightings []*data.SectorWeighting) (int, error) {
	count := 0
	err := myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		count, err = data.SaveSectorWeightings(ctx, conn, weightings)
		return err
	})

	return count, err
}

// SaveAssetClasses upserts asset class allocations and returns the number
// written.
func (myStore *Store) SaveAssetClasses(ctx context.Context, classes []*data.AssetClassWeighting) (int, error) {
	count := 0
	err := myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		var err error
		count, err = data.SaveAssetClasses(ctx, conn, classes)
		return err
	})

	return count, err
}

// SaveTickerUpdate applies the metadata write-back.
func (myStore *Store) SaveTickerUpdate(ctx context.Context, update *data.TickerUpdate) error {
	return myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		return update.SaveDB(ctx, conn)
	})
}

// SaveSuggestedTrade inserts a dividend reinvestment suggestion.
func (myStore *Store) SaveSuggestedTrade(ctx context.Context, trade *data.SuggestedTrade) error {
	return myStore.withConn(ctx, func(conn *pgxpool.Conn) error {
		return trade.SaveDB(ctx, conn)
	})
}
