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
)

// Store wraps the database pool behind the persistence operations the
// pipeline needs.
type Store struct {
	DBUrl string

	Pool *pgxpool.Pool
}

// NewFromDB connects to the database and verifies the connection.
func NewFromDB(ctx context.Context, dbURL string) (*Store, error) {
	myStore := &Store{
		DBUrl: dbURL,
	}

	if err := myStore.Connect(ctx); err != nil {
		return nil, err
	}

	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return myStore, nil
}

// Connect to the configured database
func (myStore *Store) Connect(ctx context.Context) error {
	if myStore.Pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, myStore.DBUrl)
	if err != nil {
		return err
	}
	myStore.Pool = pool

	return nil
}

// Close the database pool
func (myStore *Store) Close() {
	myStore.Pool.Close()
}
