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
package provider

import (
	"time"
)

const defaultLookbackDays = 30

// DetermineStartDate picks the first date to request price history for.
// Backfill tickers anchor at January 1 five calendar years back so repeated
// backfills stay idempotent within a year. A ticker with a stored watermark
// resumes the day after it. Otherwise the default lookback window applies.
func DetermineStartDate(last time.Time, haveLast bool, backfill bool, now time.Time) time.Time {
	if backfill {
		return time.Date(now.Year()-5, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	if haveLast {
		return last.AddDate(0, 0, 1)
	}

	return now.AddDate(0, 0, -defaultLookbackDays)
}
