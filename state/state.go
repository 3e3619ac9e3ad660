// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package state holds the complete ledger of the engine: accounts,
// banks, perp markets with their books and event queues, and the
// insurance fund. It also defines the versioned binary layout used to
// persist and hash it.
package state

import (
	"bytes"
	"sort"

	"github.com/xmargin/xmargin/collateral"
	"github.com/xmargin/xmargin/libs/crypto"
	"github.com/xmargin/xmargin/markets"
	"github.com/xmargin/xmargin/matching"
	"github.com/xmargin/xmargin/positions"
	"github.com/xmargin/xmargin/types"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

type State struct {
	Accounts  map[types.AccountID]*positions.Account
	Banks     map[uint16]*collateral.Bank
	Markets   map[uint16]*markets.PerpMarket
	Books     map[uint16]*matching.OrderBook
	Queues    map[uint16]*matching.EventQueue
	Insurance *collateral.InsuranceFund
}

func New(insuranceToken uint16) *State {
	return &State{
		Accounts:  map[types.AccountID]*positions.Account{},
		Banks:     map[uint16]*collateral.Bank{},
		Markets:   map[uint16]*markets.PerpMarket{},
		Books:     map[uint16]*matching.OrderBook{},
		Queues:    map[uint16]*matching.EventQueue{},
		Insurance: collateral.NewInsuranceFund(insuranceToken),
	}
}

// AccountIDs returns the ids of every account in byte order.
func (s *State) AccountIDs() []types.AccountID {
	ids := maps.Keys(s.Accounts)
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

func (s *State) BankIndices() []uint16 {
	return sortedIndices(s.Banks)
}

func (s *State) MarketIndices() []uint16 {
	return sortedIndices(s.Markets)
}

func sortedIndices[V any](m map[uint16]V) []uint16 {
	idx := maps.Keys(m)
	sort.Slice(idx, func(i, j int) bool { return idx[i] < idx[j] })
	return idx
}

// Records encodes the whole state, in a deterministic order.
func (s *State) Records() ([][]byte, error) {
	out := [][]byte{}
	add := func(b []byte, err error) error {
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	}
	for _, idx := range s.BankIndices() {
		if err := add(EncodeBank(s.Banks[idx])); err != nil {
			return nil, err
		}
	}
	for _, idx := range s.MarketIndices() {
		if err := add(EncodeMarket(s.Markets[idx])); err != nil {
			return nil, err
		}
		if b, ok := s.Books[idx]; ok {
			if err := add(EncodeBook(b)); err != nil {
				return nil, err
			}
		}
		if q, ok := s.Queues[idx]; ok {
			if err := add(EncodeQueue(idx, q)); err != nil {
				return nil, err
			}
		}
	}
	for _, id := range s.AccountIDs() {
		if err := add(EncodeAccount(s.Accounts[id])); err != nil {
			return nil, err
		}
	}
	if err := add(EncodeInsurance(s.Insurance)); err != nil {
		return nil, err
	}
	return out, nil
}

// Hash digests every record of the state.
func (s *State) Hash() ([]byte, error) {
	recs, err := s.Records()
	if err != nil {
		return nil, err
	}
	return crypto.Digest(recs...), nil
}

// FromRecords rebuilds a state from the output of Records, in any order.
func FromRecords(recs [][]byte) (*State, error) {
	s := New(0)
	for _, rec := range recs {
		kind, err := PeekKind(rec)
		if err != nil {
			return nil, err
		}
		switch kind {
		case KindBank:
			b, err := DecodeBank(rec)
			if err != nil {
				return nil, err
			}
			s.Banks[b.TokenIndex] = b
		case KindMarket:
			m, err := DecodeMarket(rec)
			if err != nil {
				return nil, err
			}
			s.Markets[m.MarketIndex] = m
		case KindBook:
			b, err := DecodeBook(rec)
			if err != nil {
				return nil, err
			}
			s.Books[b.MarketIndex] = b
		case KindQueue:
			idx, q, err := DecodeQueue(rec)
			if err != nil {
				return nil, err
			}
			s.Queues[idx] = q
		case KindAccount:
			a, err := DecodeAccount(rec)
			if err != nil {
				return nil, err
			}
			s.Accounts[a.ID] = a
		case KindInsurance:
			f, err := DecodeInsurance(rec)
			if err != nil {
				return nil, err
			}
			s.Insurance = f
		default:
			return nil, errors.Wrapf(ErrBadRecord, "unknown record kind %d", kind)
		}
	}
	return s, nil
}
