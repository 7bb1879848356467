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

import "github.com/cespare/xxhash/v2"

type hashFn func(key string) uint64

// defaultHash is xxHash64 of the key. It is unseeded, so a key's home slot
// is the same from run to run for a given capacity.
func defaultHash(key string) uint64 {
	return xxhash.Sum64String(key)
}
