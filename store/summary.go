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
	"time"

	"github.com/xeonx/timeago"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/foliosync/mdsync/data"
)

// NumTickers returns the count of tracked securities
func (myStore *Store) NumTickers(ctx context.Context) (int, error) {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", data.TableTickers)).Scan(&count)
	return count, err
}

// NumPriceBars returns the total number of daily bars stored
func (myStore *Store) NumPriceBars(ctx context.Context) (int, error) {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	count := 0
	err = conn.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", data.TablePrices)).Scan(&count)
	return count, err
}

// LastChecked returns the most recent time any ticker was processed
func (myStore *Store) LastChecked(ctx context.Context) (time.Time, error) {
	conn, err := myStore.Pool.Acquire(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Release()

	var lastChecked time.Time
	err = conn.QueryRow(ctx, fmt.Sprintf(
		"SELECT coalesce(max(last_checked), '0001-01-01'::timestamp) FROM %s", data.TableTickers)).
		Scan(&lastChecked)
	if err != nil {
		return time.Time{}, err
	}

	return lastChecked, nil
}

// Summary returns a description of the datastore in markdown
func (myStore *Store) Summary(ctx context.Context) (string, error) {
	p := message.NewPrinter(language.English)
	builder := strings.Builder{}

	if _, err := builder.WriteString("# mdsync\n## Details\n\n"); err != nil {
		return "", err
	}

	if _, err := builder.WriteString(fmt.Sprintf("Database: %s\n\n", myStore.DBUrl)); err != nil {
		return "", err
	}

	numTickers, err := myStore.NumTickers(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Securities Tracked: %d\n", numTickers)); err != nil {
		return "", err
	}

	numBars, err := myStore.NumPriceBars(ctx)
	if err != nil {
		return "", err
	}

	if _, err := builder.WriteString(p.Sprintf("  * Daily Bars: %d\n\n", numBars)); err != nil {
		return "", err
	}

	lastChecked, err := myStore.LastChecked(ctx)
	if err != nil {
		return "", err
	}

	if lastChecked.Year() > 1 {
		if _, err := builder.WriteString(fmt.Sprintf("Last updated: %s\n", timeago.English.Format(lastChecked))); err != nil {
			return "", err
		}
	} else {
		if _, err := builder.WriteString("Last updated: never\n"); err != nil {
			return "", err
		}
	}

	return builder.String(), nil
}
