// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lptable

import (
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkFindHit(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapFindHit))
	b.Run("impl=lpTable", benchOpen(benchmarkLPTableFindHit))
}

func BenchmarkFindMiss(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapFindMiss))
	b.Run("impl=lpTable", benchOpen(benchmarkLPTableFindMiss))
}

func BenchmarkUpdate(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapUpdate))
	b.Run("impl=lpTable", benchOpen(benchmarkLPTableUpdate))
}

func BenchmarkRemoveUpdate(b *testing.B) {
	b.Run("impl=runtimeMap", benchSizes(benchmarkRuntimeMapRemoveUpdate))
	b.Run("impl=lpTable", benchOpen(benchmarkLPTableRemoveUpdate))
}

var benchCases = []int{
	6, 12, 18, 24, 30,
	64,
	128,
	256,
	512,
	1024,
	2048,
	4096,
	8192,
	1 << 16,
}

// benchPercentOpen are the open fractions the table is benchmarked at. Lower
// values mean higher load factors and longer search sequences.
var benchPercentOpen = []float64{0.1, 0.3, 1}

func benchSizes(f func(b *testing.B, n int)) func(*testing.B) {
	return func(b *testing.B) {
		for _, n := range benchCases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n) })
		}
	}
}

func benchOpen(f func(b *testing.B, n int, percentOpen float64)) func(*testing.B) {
	return func(b *testing.B) {
		for _, p := range benchPercentOpen {
			b.Run("open="+strconv.FormatFloat(p, 'f', -1, 64), benchSizes(func(b *testing.B, n int) {
				f(b, n, p)
			}))
		}
	}
}

func genKeys(start, end int) []string {
	keys := make([]string, end-start)
	for i := range keys {
		keys[i] = strconv.Itoa(start + i)
	}
	return keys
}

func benchmarkRuntimeMapFindHit(b *testing.B, n int) {
	m := make(map[string]string, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}
	b.ResetTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[keys[i%n]]
	}
	b.StopTimer()
	if !ok {
		b.Fatal("key not found")
	}
}

func benchmarkLPTableFindHit(b *testing.B, n int, percentOpen float64) {
	m := MustNew[string](n, percentOpen)
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Update(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Find(keys[i%n])
	}
	b.StopTimer()
	if !ok {
		b.Fatal("key not found")
	}
}

func benchmarkRuntimeMapFindMiss(b *testing.B, n int) {
	m := make(map[string]string, n)
	for _, k := range genKeys(0, n) {
		m[k] = k
	}
	miss := genKeys(-n, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m[miss[i%n]]
	}
}

func benchmarkLPTableFindMiss(b *testing.B, n int, percentOpen float64) {
	m := MustNew[string](n, percentOpen)
	for _, k := range genKeys(0, n) {
		m.Update(k, k)
	}
	miss := genKeys(-n, 0)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_, _ = m.Find(miss[i%n])
	}
}

func benchmarkRuntimeMapUpdate(b *testing.B, n int) {
	m := make(map[string]string, n)
	keys := genKeys(0, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i%n]
		m[k] = k
	}
}

func benchmarkLPTableUpdate(b *testing.B, n int, percentOpen float64) {
	m := MustNew[string](n, percentOpen)
	keys := genKeys(0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		k := keys[i%n]
		m.Update(k, k)
	}
}

func benchmarkRuntimeMapRemoveUpdate(b *testing.B, n int) {
	m := make(map[string]string, n)
	keys := genKeys(0, n)
	for _, k := range keys {
		m[k] = k
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = keys[j]
	}
}

// benchmarkLPTableRemoveUpdate measures churn. Every removal leaves a
// tombstone that the following update reuses, so the table reaches a steady
// state instead of filling with tombstones.
func benchmarkLPTableRemoveUpdate(b *testing.B, n int, percentOpen float64) {
	m := MustNew[string](n, percentOpen)
	keys := genKeys(0, n)
	for _, k := range keys {
		m.Update(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Remove(keys[j])
		m.Update(keys[j], keys[j])
	}
}
