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

// FundHolding is one position in a fund's reported top holdings. Weight is
// a percentage in [0, 100].
type FundHolding struct {
	TickerID      uuid.UUID `db:"ticker_id"`
	HoldingSymbol string    `db:"holding_symbol"`
	HoldingName   string    `db:"holding_name"`
	Weight        float64   `db:"weight"`
	AsOf          time.Time `db:"as_of"`
}

// SectorWeighting is a fund's exposure to a single sector, as a percentage.
type SectorWeighting struct {
	TickerID   uuid.UUID `db:"ticker_id"`
	SectorName string    `db:"sector_name"`
	Weight     float64   `db:"weight"`
	AsOf       time.Time `db:"as_of"`
}

// AssetClassWeighting is a fund's allocation to a broad asset class
// (cash, stock, bond, etc), as a percentage.
type AssetClassWeighting struct {
	TickerID   uuid.UUID `db:"ticker_id"`
	AssetClass string    `db:"asset_class"`
	Weight     float64   `db:"weight"`
	AsOf       time.Time `db:"as_of"`
}

// SaveFundHoldings upserts the holdings in a single transaction keyed by
// (ticker_id, holding_symbol). An empty slice is a no-op.
func SaveFundHoldings(ctx context.Context, conn *pgxpool.Conn, holdings []*FundHolding) (int, error) {
	if len(holdings) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"holding_symbol",
		"holding_name",
		"weight",
		"as_of"
	) VALUES (
		$1, $2, $3, $4, $5
	) ON CONFLICT (ticker_id, holding_symbol)
	DO UPDATE SET
		holding_name = EXCLUDED.holding_name,
		weight = EXCLUDED.weight,
		as_of = EXCLUDED.as_of;`, TableFundHoldings)

	for _, holding := range holdings {
		if _, err := tx.Exec(ctx, sql, holding.TickerID, holding.HoldingSymbol,
			holding.HoldingName, holding.Weight, holding.AsOf); err != nil {
			log.Error().Err(err).Str("TickerID", holding.TickerID.String()).
				Str("HoldingSymbol", holding.HoldingSymbol).
				Msg("error saving fund holding to database")
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

	return len(holdings), nil
}

// SaveSectorWeightings upserts the weightings in a single transaction keyed
// by (ticker_id, sector_name). An empty slice is a no-op.
func SaveSectorWeightings(ctx context.Context, conn *pgxpool.Conn, weightings []*SectorWeighting) (int, error) {
	if len(weightings) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"sector_name",
		"weight",
		"as_of"
	) VALUES (
		$1, $2, $3, $4
	) ON CONFLICT (ticker_id, sector_name)
	DO UPDATE SET
		weight = EXCLUDED.weight,
		as_of = EXCLUDED.as_of;`, TableSectorWeightings)

	for _, weighting := range weightings {
		if _, err := tx.Exec(ctx, sql, weighting.TickerID, weighting.SectorName,
			weighting.Weight, weighting.AsOf); err != nil {
			log.Error().Err(err).Str("TickerID", weighting.TickerID.String()).
				Str("SectorName", weighting.SectorName).
				Msg("error saving sector weighting to database")
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

	return len(weightings), nil
}

// SaveAssetClasses upserts the allocations in a single transaction keyed by
// (ticker_id, asset_class). An empty slice is a no-op.
func SaveAssetClasses(ctx context.Context, conn *pgxpool.Conn, classes []*AssetClassWeighting) (int, error) {
	if len(classes) == 0 {
		return 0, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not begin transaction")
		return 0, err
	}

	sql := fmt.Sprintf(`INSERT INTO %[1]s (
		"ticker_id",
		"asset_class",
		"weight",
		"as_of"
	) VALUES (
		$1, $2, $3, $4
	) ON CONFLICT (ticker_id, asset_class)
	DO UPDATE SET
		weight = EXCLUDED.weight,
		as_of = EXCLUDED.as_of;`, TableAssetClasses)

	for _, class := range classes {
		if _, err := tx.Exec(ctx, sql, class.TickerID, class.AssetClass,
			class.Weight, class.AsOf); err != nil {
			log.Error().Err(err).Str("TickerID", class.TickerID.String()).
				Str("AssetClass", class.AssetClass).
				Msg("error saving asset class weighting to database")
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

	return len(classes), nil
}
