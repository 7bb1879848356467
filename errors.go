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

import "errors"

var (
	// ErrInvalidMaxExpected is returned when the expected record count is
	// not positive.
	ErrInvalidMaxExpected = errors.New("lptable: max expected records must be positive")
	// ErrInvalidPercentOpen is returned when the open fraction is NaN or
	// infinite.
	ErrInvalidPercentOpen = errors.New("lptable: percent open must be a finite number")
	// ErrInvalidCapacity is returned when the configuration yields a slot
	// count that is not positive or too large to represent.
	ErrInvalidCapacity = errors.New("lptable: invalid table capacity")
)
