// Copyright the solguard authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package symbols

import (
	"errors"
	"fmt"

	"github.com/solguard/solguard/internal/funcutil"
)

// ErrLinearization is returned when no consistent method resolution order exists
// for a contract's inheritance graph.
var ErrLinearization = errors.New("inheritance linearization failed")

// Linearize computes the C3 linearization of a contract: the contract itself first,
// then its bases in method-resolution order. Base lists are merged most-derived
// first, matching the override order of the language. Results are memoized.
func (t *SymbolTable) Linearize(contract string) ([]string, error) {
	if lin, ok := t.linearizations[contract]; ok {
		if lin == nil {
			return nil, fmt.Errorf("%w: cycle through %s", ErrLinearization, contract)
		}
		return lin, nil
	}
	// nil marks an in-progress computation, so inheritance cycles fail instead of
	// recursing forever
	t.linearizations[contract] = nil

	c, ok := t.Contracts[contract]
	if !ok {
		delete(t.linearizations, contract)
		return nil, fmt.Errorf("%w: %s", ErrUnknownBase, contract)
	}

	// The most-derived base comes last in source order; merge walks them reversed
	directBases := make([]string, len(c.Bases))
	copy(directBases, c.Bases)
	funcutil.Reverse(directBases)

	var seqs [][]string
	for _, base := range directBases {
		baseLin, err := t.Linearize(base)
		if err != nil {
			delete(t.linearizations, contract)
			return nil, err
		}
		seqs = append(seqs, baseLin)
	}
	if len(directBases) > 0 {
		seqs = append(seqs, directBases)
	}

	merged, err := merge(seqs)
	if err != nil {
		delete(t.linearizations, contract)
		return nil, fmt.Errorf("%w: %s: %v", ErrLinearization, contract, err)
	}
	lin := append([]string{contract}, merged...)
	t.linearizations[contract] = lin
	return lin, nil
}

// merge implements the C3 merge step: repeatedly take the first head that appears
// in no tail of any remaining sequence.
func merge(seqs [][]string) ([]string, error) {
	work := make([][]string, 0, len(seqs))
	for _, s := range seqs {
		if len(s) > 0 {
			cp := make([]string, len(s))
			copy(cp, s)
			work = append(work, cp)
		}
	}

	var out []string
	for len(work) > 0 {
		head := pickHead(work)
		if head == "" {
			return nil, fmt.Errorf("no consistent order among %v", work)
		}
		out = append(out, head)

		next := work[:0]
		for _, s := range work {
			if s[0] == head {
				s = s[1:]
			}
			if len(s) > 0 {
				next = append(next, s)
			}
		}
		work = next
	}
	return out, nil
}

// pickHead returns the first sequence head that is not in the tail of any sequence,
// or "" when none qualifies.
func pickHead(work [][]string) string {
	for _, s := range work {
		head := s[0]
		if !inAnyTail(work, head) {
			return head
		}
	}
	return ""
}

func inAnyTail(work [][]string, name string) bool {
	for _, s := range work {
		for _, x := range s[1:] {
			if x == name {
				return true
			}
		}
	}
	return false
}
