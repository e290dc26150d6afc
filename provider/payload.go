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
	"github.com/tidwall/gjson"
)

// PayloadShape classifies a provider response body before any decoding.
// Providers return one of three structural shapes and each takes a
// different decode path; classifying up front keeps shape mistakes from
// silently producing half-empty snapshots.
type PayloadShape int

const (
	// ShapeUnknown is anything the classifier does not recognize.
	ShapeUnknown PayloadShape = iota
	// ShapeSeries is a column-oriented time series: parallel arrays of
	// timestamps and per-field values.
	ShapeSeries
	// ShapeFieldMap is a flat or lightly nested object of named scalar
	// fields describing one entity.
	ShapeFieldMap
	// ShapeRecordList is an array of uniform objects, one per record.
	ShapeRecordList
)

func (shape PayloadShape) String() string {
	switch shape {
	case ShapeSeries:
		return "series"
	case ShapeFieldMap:
		return "field-map"
	case ShapeRecordList:
		return "record-list"
	default:
		return "unknown"
	}
}

// ClassifyPayload inspects the body and returns its structural shape.
// Invalid JSON is ShapeUnknown.
func ClassifyPayload(body []byte) PayloadShape {
	if !gjson.ValidBytes(body) {
		return ShapeUnknown
	}

	root := gjson.ParseBytes(body)
	switch {
	case root.IsArray():
		if first := root.Get("0"); first.IsObject() || !first.Exists() {
			return ShapeRecordList
		}
		return ShapeUnknown
	case root.IsObject():
		if isSeries(root) {
			return ShapeSeries
		}
		return ShapeFieldMap
	default:
		return ShapeUnknown
	}
}

// isSeries detects the column-oriented chart layout: a timestamp array
// paired with indicator value arrays, possibly nested under a result
// envelope.
func isSeries(root gjson.Result) bool {
	if root.Get("timestamp").IsArray() && root.Get("indicators").Exists() {
		return true
	}

	nested := root.Get("chart.result.0")
	return nested.Get("timestamp").IsArray() && nested.Get("indicators").Exists()
}
