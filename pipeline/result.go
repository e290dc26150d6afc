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
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hako/durafmt"
)

// Status summarizes a run for exit-code purposes.
type Status int

const (
	// StatusOK means every processed ticker succeeded.
	StatusOK Status = iota
	// StatusPartial means some tickers succeeded and some failed.
	StatusPartial
	// StatusNoWork means no tickers were selected.
	StatusNoWork
	// StatusFailed means every selected ticker failed.
	StatusFailed
)

func (status Status) String() string {
	switch status {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusNoWork:
		return "no-work"
	default:
		return "failed"
	}
}

// ExitCode maps the run status onto the process exit code.
func (status Status) ExitCode() int {
	switch status {
	case StatusOK, StatusNoWork:
		return 0
	case StatusPartial:
		return 1
	default:
		return 2
	}
}

// RunResult accumulates per-ticker outcomes for a whole run.
type RunResult struct {
	StartTime time.Time
	EndTime   time.Time

	NumTickers    int
	Succeeded     []string
	Failed        map[string]string
	UpdatedTables map[string][]string
	Elapsed       map[string]time.Duration
	NumRecords    int
}

// NewRunResult returns an empty result with maps initialized.
func NewRunResult() *RunResult {
	return &RunResult{
		StartTime:     time.Now(),
		Failed:        make(map[string]string),
		UpdatedTables: make(map[string][]string),
		Elapsed:       make(map[string]time.Duration),
	}
}

// fold merges one ticker outcome into the run result.
func (result *RunResult) fold(tickerResult *TickerResult) {
	result.NumTickers++
	result.Elapsed[tickerResult.Symbol] = tickerResult.Elapsed

	if tickerResult.Err != nil {
		result.Failed[tickerResult.Symbol] = tickerResult.Err.Error()
		return
	}

	result.Succeeded = append(result.Succeeded, tickerResult.Symbol)
	result.NumRecords += tickerResult.NumRecords
	if len(tickerResult.UpdatedTables) > 0 {
		result.UpdatedTables[tickerResult.Symbol] = tickerResult.UpdatedTables
	}
}

// Status classifies the run outcome.
func (result *RunResult) Status() Status {
	switch {
	case result.NumTickers == 0:
		return StatusNoWork
	case len(result.Failed) == 0:
		return StatusOK
	case len(result.Succeeded) == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// Summary renders a multi-line human readable report of the run.
func (result *RunResult) Summary() string {
	builder := strings.Builder{}

	total := result.EndTime.Sub(result.StartTime)
	builder.WriteString(fmt.Sprintf("Run %s: %d tickers, %d records, %s\n",
		result.Status(), result.NumTickers, result.NumRecords,
		durafmt.Parse(total.Round(time.Millisecond)).LimitFirstN(2)))

	symbols := make([]string, 0, len(result.Elapsed))
	for symbol := range result.Elapsed {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if reason, ok := result.Failed[symbol]; ok {
			builder.WriteString(fmt.Sprintf("  %s FAILED (%s): %s\n",
				symbol, result.Elapsed[symbol].Round(time.Millisecond), reason))
			continue
		}

		tables := result.UpdatedTables[symbol]
		if len(tables) == 0 {
			builder.WriteString(fmt.Sprintf("  %s up to date (%s)\n",
				symbol, result.Elapsed[symbol].Round(time.Millisecond)))
			continue
		}

		builder.WriteString(fmt.Sprintf("  %s updated %s (%s)\n",
			symbol, strings.Join(tables, ", "),
			result.Elapsed[symbol].Round(time.Millisecond)))
	}

	return builder.String()
}
