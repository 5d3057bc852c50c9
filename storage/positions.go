package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"synthd/crypto"
	"synthd/native/vault"
)

// positionPrefix namespaces vault records inside the shared key-value store.
const positionPrefix = "vault/position/"

// PositionStore persists vault positions as JSON records in a Database. It is
// the production implementation of the vault engine's state boundary.
type PositionStore struct {
	db Database
}

func NewPositionStore(db Database) *PositionStore {
	return &PositionStore{db: db}
}

// storedPosition is the on-disk encoding. Balances are decimal strings so
// values above 64 bits survive the round trip exactly.
type storedPosition struct {
	Collateral map[string]string `json:"collateral,omitempty"`
	Issued     string            `json:"issued"`
}

func positionKey(addr crypto.Address) []byte {
	return []byte(fmt.Sprintf("%s%x", positionPrefix, addr.Bytes()))
}

// GetPosition loads the stored position for the address. A missing record is
// reported as a nil position with no error; the ledger creates it implicitly.
func (s *PositionStore) GetPosition(addr crypto.Address) (*vault.Position, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("storage: position store not initialised")
	}
	raw, err := s.db.Get(positionKey(addr))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load position %s: %w", addr, err)
	}
	var stored storedPosition
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("storage: decode position %s: %w", addr, err)
	}
	pos := &vault.Position{
		Address:    addr,
		Collateral: make(map[string]*big.Int, len(stored.Collateral)),
	}
	for symbol, amount := range stored.Collateral {
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, fmt.Errorf("storage: corrupt collateral balance %q for %s", amount, addr)
		}
		pos.Collateral[symbol] = value
	}
	issued, ok := new(big.Int).SetString(stored.Issued, 10)
	if !ok {
		return nil, fmt.Errorf("storage: corrupt issued balance %q for %s", stored.Issued, addr)
	}
	pos.Issued = issued
	return pos, nil
}

// PutPosition writes the position, replacing any prior record.
func (s *PositionStore) PutPosition(addr crypto.Address, pos *vault.Position) error {
	if s == nil || s.db == nil {
		return errors.New("storage: position store not initialised")
	}
	if pos == nil {
		return errors.New("storage: nil position")
	}
	stored := storedPosition{Issued: "0"}
	if pos.Issued != nil {
		stored.Issued = pos.Issued.String()
	}
	if len(pos.Collateral) > 0 {
		stored.Collateral = make(map[string]string, len(pos.Collateral))
		for symbol, amount := range pos.Collateral {
			if amount == nil || amount.Sign() == 0 {
				continue
			}
			stored.Collateral[symbol] = amount.String()
		}
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("storage: encode position %s: %w", addr, err)
	}
	return s.db.Put(positionKey(addr), raw)
}
