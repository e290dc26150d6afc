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
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	defaultChartURL        = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultQuoteSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"

	// DefaultMinRequestDelay spaces requests so a full universe run stays
	// under the provider's unpublished throttle.
	DefaultMinRequestDelay = 200 * time.Millisecond

	maxRateLimitRetries = 3
)

// exchangeSuffixes maps an exchange code onto the provider's symbol
// suffix. US primary exchanges need none.
var exchangeSuffixes = map[string]string{
	"NASDAQ": "",
	"NYSE":   "",
	"AMEX":   ".AM",
	"TSX":    ".TO",
	"LSE":    ".L",
	"FRA":    ".F",
	"TSE":    ".T",
	"HKEX":   ".HK",
	"SSE":    ".SS",
}

// ProviderSymbol composes the provider-side symbol for a ticker. Unknown
// exchanges pass the symbol through unchanged with a warning.
func ProviderSymbol(symbol string, exchange string) string {
	if exchange == "" {
		return symbol
	}

	suffix, ok := exchangeSuffixes[exchange]
	if !ok {
		log.Warn().Str("Symbol", symbol).Str("Exchange", exchange).
			Msg("unknown exchange; using symbol without suffix")
		return symbol
	}

	return symbol + suffix
}

// Yahoo fetches quotes, fundamentals, calendar events and fund composition
// from the Yahoo finance endpoints.
type Yahoo struct {
	client          *resty.Client
	limiter         *rate.Limiter
	chartURL        string
	quoteSummaryURL string
}

// NewYahoo builds a client against the public endpoints with the default
// inter-request delay.
func NewYahoo() *Yahoo {
	return NewYahooWithURLs(defaultChartURL, defaultQuoteSummaryURL, DefaultMinRequestDelay)
}

// NewYahooWithURLs builds a client against explicit endpoint roots; tests
// point these at a local server.
func NewYahooWithURLs(chartURL string, quoteSummaryURL string, minDelay time.Duration) *Yahoo {
	return &Yahoo{
		client:          resty.New(),
		limiter:         rate.NewLimiter(rate.Every(minDelay), 1),
		chartURL:        chartURL,
		quoteSummaryURL: quoteSummaryURL,
	}
}

func (yahoo *Yahoo) Name() string {
	return "yahoo"
}

// Fetch retrieves the full snapshot for one symbol: price history since
// startDate, the info field map, upcoming calendar events, and (for funds)
// portfolio composition. Two HTTP requests per ticker, never more.
func (yahoo *Yahoo) Fetch(ctx context.Context, symbol string, exchange string, startDate time.Time, includeFund bool) (*TickerSnapshot, error) {
	providerSymbol := ProviderSymbol(symbol, exchange)
	snapshot := &TickerSnapshot{
		Symbol:    symbol,
		FetchedAt: time.Now(),
	}

	chartBody, err := yahoo.get(ctx, fmt.Sprintf("%s/%s", yahoo.chartURL, providerSymbol), map[string]string{
		"period1":  strconv.FormatInt(startDate.Unix(), 10),
		"period2":  strconv.FormatInt(time.Now().Unix(), 10),
		"interval": "1d",
		"events":   "div|split",
	})
	if err != nil {
		return nil, err
	}

	if shape := ClassifyPayload(chartBody); shape != ShapeSeries {
		log.Warn().Str("Symbol", symbol).Stringer("Shape", shape).
			Msg("chart payload is not a series; skipping prices")
	} else {
		snapshot.Prices = parseChart(chartBody)
	}

	modules := "price,summaryDetail,defaultKeyStatistics,calendarEvents,earnings"
	if includeFund {
		modules += ",fundProfile,topHoldings"
	}

	summaryBody, err := yahoo.get(ctx, fmt.Sprintf("%s/%s", yahoo.quoteSummaryURL, providerSymbol), map[string]string{
		"modules": modules,
	})
	if err != nil {
		return nil, err
	}

	if shape := ClassifyPayload(summaryBody); shape != ShapeFieldMap {
		log.Warn().Str("Symbol", symbol).Stringer("Shape", shape).
			Msg("quote summary payload is not a field map; skipping info")
		return snapshot, nil
	}

	result := gjson.GetBytes(summaryBody, "quoteSummary.result.0")
	if result.Exists() {
		snapshot.Info = parseInfo(result)
		snapshot.Calendar = parseCalendar(result)
		if includeFund {
			snapshot.Fund = parseFund(result)
		}
	}

	return snapshot, nil
}

// get performs a rate-limited GET, retrying throttled responses up to
// maxRateLimitRetries with 2^attempt + uniform(0,1) seconds of backoff.
func (yahoo *Yahoo) get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := yahoo.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := yahoo.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(url)
		if err != nil {
			return nil, err
		}

		code := resp.StatusCode()
		if code == http.StatusTooManyRequests || code == 999 {
			if attempt > maxRateLimitRetries {
				return nil, ErrRateLimited
			}

			delay := time.Duration((math.Pow(2, float64(attempt)) + rand.Float64()) * float64(time.Second))
			log.Warn().Int("Attempt", attempt).Dur("Delay", delay).Str("URL", url).
				Msg("provider throttled request; backing off")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}

			continue
		}

		if code >= 300 {
			return nil, fmt.Errorf("provider returned HTTP %d for %s", code, url)
		}

		return resp.Body(), nil
	}
}

func parseChart(body []byte) []*PriceRow {
	result := gjson.GetBytes(body, "chart.result.0")
	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")

	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	dividends := make(map[int64]float64)
	result.Get("events.dividends").ForEach(func(_, value gjson.Result) bool {
		dividends[dayKey(value.Get("date").Int())] = value.Get("amount").Float()
		return true
	})

	splits := make(map[int64]float64)
	result.Get("events.splits").ForEach(func(_, value gjson.Result) bool {
		denominator := value.Get("denominator").Float()
		if denominator != 0 {
			splits[dayKey(value.Get("date").Int())] = value.Get("numerator").Float() / denominator
		}
		return true
	})

	bars := make([]*PriceRow, 0, len(timestamps))
	for idx, ts := range timestamps {
		date := time.Unix(ts.Int(), 0).UTC()
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

		bar := &PriceRow{
			Date:   date,
			Open:   arrayFloat(opens, idx),
			High:   arrayFloat(highs, idx),
			Low:    arrayFloat(lows, idx),
			Close:  arrayFloat(closes, idx),
			Volume: arrayInt(volumes, idx),
		}

		if amount, ok := dividends[dayKey(ts.Int())]; ok {
			bar.Dividends = &amount
		}

		if ratio, ok := splits[dayKey(ts.Int())]; ok {
			bar.StockSplits = &ratio
		}

		bars = append(bars, bar)
	}

	return bars
}

func parseInfo(result gjson.Result) *Info {
	return &Info{
		ShortName: jsonString(result.Get("price.shortName")),
		QuoteType: jsonString(result.Get("price.quoteType")),

		RegularMarketPrice:         jsonFloat(result.Get("price.regularMarketPrice")),
		RegularMarketChangePercent: jsonFloat(result.Get("price.regularMarketChangePercent")),
		RegularMarketVolume:        jsonInt(result.Get("price.regularMarketVolume")),
		MarketCap:                  jsonInt(result.Get("price.marketCap")),
		SharesOutstanding:          jsonInt(result.Get("defaultKeyStatistics.sharesOutstanding")),
		FiftyTwoWeekLow:            jsonFloat(result.Get("summaryDetail.fiftyTwoWeekLow")),
		FiftyTwoWeekHigh:           jsonFloat(result.Get("summaryDetail.fiftyTwoWeekHigh")),
		FiftyDayAverage:            jsonFloat(result.Get("summaryDetail.fiftyDayAverage")),
		TwoHundredDayAverage:       jsonFloat(result.Get("summaryDetail.twoHundredDayAverage")),
		TrailingPE:                 jsonFloat(result.Get("summaryDetail.trailingPE")),

		TotalAssets:            jsonInt(result.Get("summaryDetail.totalAssets")),
		NavPrice:               jsonFloat(result.Get("summaryDetail.navPrice")),
		Yield:                  jsonFloat(result.Get("summaryDetail.yield")),
		ThreeYearAverageReturn: jsonFloat(result.Get("defaultKeyStatistics.threeYearAverageReturn")),
		FiveYearAverageReturn:  jsonFloat(result.Get("defaultKeyStatistics.fiveYearAverageReturn")),
		FundFamily:             jsonString(result.Get("fundProfile.family")),
		FundInceptionDate:      jsonEpoch(result.Get("defaultKeyStatistics.fundInceptionDate")),
		LegalType:              jsonString(result.Get("fundProfile.legalType")),
		NetExpenseRatio:        jsonFloat(result.Get("fundProfile.feesExpensesInvestment.annualReportExpenseRatio")),

		DividendYield: jsonFloat(result.Get("summaryDetail.dividendYield")),
		YtdReturn:     jsonFloat(result.Get("defaultKeyStatistics.ytdReturn")),
		Beta:          jsonFloat(result.Get("summaryDetail.beta")),
		Beta3Year:     jsonFloat(result.Get("defaultKeyStatistics.beta3Year")),
	}
}

func parseCalendar(result gjson.Result) *Calendar {
	events := result.Get("calendarEvents")
	if !events.Exists() {
		return nil
	}

	calendar := &Calendar{
		DividendDate:   jsonEpoch(events.Get("dividendDate")),
		ExDividendDate: jsonEpoch(events.Get("exDividendDate")),

		EarningsHigh:    jsonFloat(events.Get("earnings.earningsHigh")),
		EarningsLow:     jsonFloat(events.Get("earnings.earningsLow")),
		EarningsAverage: jsonFloat(events.Get("earnings.earningsAverage")),
		RevenueHigh:     jsonInt(events.Get("earnings.revenueHigh")),
		RevenueLow:      jsonInt(events.Get("earnings.revenueLow")),
		RevenueAverage:  jsonInt(events.Get("earnings.revenueAverage")),
	}

	for _, raw := range events.Get("earnings.earningsDate").Array() {
		if date := jsonEpoch(raw); date != nil {
			calendar.EarningsDates = append(calendar.EarningsDates, *date)
		}
	}

	return calendar
}

func parseFund(result gjson.Result) *FundComposition {
	top := result.Get("topHoldings")
	if !top.Exists() {
		return nil
	}

	fund := &FundComposition{}

	top.Get("holdings").ForEach(func(_, holding gjson.Result) bool {
		fund.Holdings = append(fund.Holdings, Holding{
			Symbol: holding.Get("symbol").String(),
			Name:   holding.Get("holdingName").String(),
			Weight: rawValue(holding.Get("holdingPercent")).Float(),
		})
		return true
	})

	// sectorWeightings is a list of single-key objects
	top.Get("sectorWeightings").ForEach(func(_, entry gjson.Result) bool {
		entry.ForEach(func(key, value gjson.Result) bool {
			fund.SectorWeightings = append(fund.SectorWeightings, NamedWeight{
				Name:   key.String(),
				Weight: rawValue(value).Float(),
			})
			return true
		})
		return true
	})

	for field, name := range map[string]string{
		"cashPosition":        "cash",
		"stockPosition":       "stock",
		"bondPosition":        "bond",
		"preferredPosition":   "preferred",
		"convertiblePosition": "convertible",
		"otherPosition":       "other",
	} {
		value := rawValue(top.Get(field))
		if value.Exists() && value.Type != gjson.Null {
			fund.AssetClasses = append(fund.AssetClasses, NamedWeight{
				Name:   name,
				Weight: value.Float(),
			})
		}
	}

	return fund
}

// rawValue unwraps the {raw, fmt} envelope some endpoints put around
// scalar values.
func rawValue(res gjson.Result) gjson.Result {
	if res.IsObject() {
		return res.Get("raw")
	}
	return res
}

func jsonFloat(res gjson.Result) *float64 {
	value := rawValue(res)
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}

	f := value.Float()
	return &f
}

func jsonInt(res gjson.Result) *int64 {
	value := rawValue(res)
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}

	i := value.Int()
	return &i
}

func jsonString(res gjson.Result) *string {
	value := rawValue(res)
	if !value.Exists() || value.Type == gjson.Null || value.String() == "" {
		return nil
	}

	s := value.String()
	return &s
}

func jsonEpoch(res gjson.Result) *time.Time {
	value := rawValue(res)
	if !value.Exists() || value.Type != gjson.Number {
		return nil
	}

	t := time.Unix(value.Int(), 0).UTC()
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

func arrayFloat(values []gjson.Result, idx int) *float64 {
	if idx >= len(values) || values[idx].Type != gjson.Number {
		return nil
	}

	f := values[idx].Float()
	return &f
}

func arrayInt(values []gjson.Result, idx int) *int64 {
	if idx >= len(values) || values[idx].Type != gjson.Number {
		return nil
	}

	i := values[idx].Int()
	return &i
}

func dayKey(epoch int64) int64 {
	t := time.Unix(epoch, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix()
}
