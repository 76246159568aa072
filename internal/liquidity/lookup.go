package liquidity

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/iqbalbaharum/go-pool-sniper/internal/generators"
	"github.com/iqbalbaharum/go-pool-sniper/internal/storage"
)

type LookupIndex struct {
	LookupTableIndex uint8
	LookupTableKey   string
}

// GetLookupTable resolves a lookup table account, redis cache first.
func (s *Service) GetLookupTable(ctx context.Context, addr solana.PublicKey) (addresslookuptable.AddressLookupTableState, error) {
	account, err := s.store.Lookup.GetLookup(ctx, addr.String())
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return addresslookuptable.AddressLookupTableState{}, err
	}

	resp, err := s.rpcClient.GetLookupTable(addr)
	if err != nil {
		return addresslookuptable.AddressLookupTableState{}, err
	}

	if err := s.store.Lookup.SetLookup(ctx, addr.String(), resp); err != nil {
		return addresslookuptable.AddressLookupTableState{}, err
	}

	return resp, nil
}

// ResolveTableKeys expands a v0 transaction's table references into the
// account keys they point at, extending the static key list the way the
// runtime does.
func (s *Service) ResolveTableKeys(ctx context.Context, lookups []generators.TxAddressTableLookup) ([]string, error) {
	refs := GenerateTableLookup(lookups)
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		tableKey, err := solana.PublicKeyFromBase58(ref.LookupTableKey)
		if err != nil {
			return nil, err
		}
		table, err := s.GetLookupTable(ctx, tableKey)
		if err != nil {
			return nil, err
		}
		if int(ref.LookupTableIndex) >= len(table.Addresses) {
			return nil, errors.New("lookup index outside table range")
		}
		keys = append(keys, table.Addresses[ref.LookupTableIndex].String())
	}
	return keys, nil
}

// GenerateTableLookup flattens a transaction's table lookups into per-index
// references, writable first.
func GenerateTableLookup(addressTableLookups []generators.TxAddressTableLookup) []LookupIndex {
	var lookupIndexes []LookupIndex

	for _, lookup := range addressTableLookups {
		for _, index := range lookup.WritableIndexes {
			lookupIndexes = append(lookupIndexes, LookupIndex{
				LookupTableIndex: index,
				LookupTableKey:   lookup.AccountKey,
			})
		}
		for _, index := range lookup.ReadonlyIndexes {
			lookupIndexes = append(lookupIndexes, LookupIndex{
				LookupTableIndex: index,
				LookupTableKey:   lookup.AccountKey,
			})
		}
	}

	return lookupIndexes
}
