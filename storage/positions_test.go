package storage

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"synthd/crypto"
	"synthd/native/vault"
)

func testAddress(b byte) crypto.Address {
	raw := make([]byte, 20)
	raw[19] = b
	return crypto.NewAddress(crypto.SynPrefix, raw)
}

func TestMemDBMissReturnsSentinel(t *testing.T) {
	db := NewMemDB()
	_, err := db.Get([]byte("absent"))
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)

	require.NoError(t, db.Delete([]byte("k")))
	_, err = db.Get([]byte("k"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)
}

func TestPositionStoreMissingIsNil(t *testing.T) {
	store := NewPositionStore(NewMemDB())
	pos, err := store.GetPosition(testAddress(0x01))
	require.NoError(t, err)
	require.Nil(t, pos)
}

func TestPositionStoreRoundTrip(t *testing.T) {
	store := NewPositionStore(NewMemDB())
	addr := testAddress(0x01)

	issued, ok := new(big.Int).SetString("5000000000000000000000", 10)
	require.True(t, ok)
	in := &vault.Position{
		Address: addr,
		Collateral: map[string]*big.Int{
			"WETH": big.NewInt(10_000_000_000),
			"WBTC": big.NewInt(25),
		},
		Issued: issued,
	}
	require.NoError(t, store.PutPosition(addr, in))

	out, err := store.GetPosition(addr)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Zero(t, issued.Cmp(out.Issued))
	require.Zero(t, in.Collateral["WETH"].Cmp(out.Collateral["WETH"]))
	require.Zero(t, in.Collateral["WBTC"].Cmp(out.Collateral["WBTC"]))
}

func TestPositionStoreDropsZeroBalances(t *testing.T) {
	store := NewPositionStore(NewMemDB())
	addr := testAddress(0x01)

	in := &vault.Position{
		Address: addr,
		Collateral: map[string]*big.Int{
			"WETH": big.NewInt(0),
		},
		Issued: big.NewInt(0),
	}
	require.NoError(t, store.PutPosition(addr, in))

	out, err := store.GetPosition(addr)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out.Collateral)
	require.Zero(t, out.Issued.Sign())
}

func TestPositionStoreIsolatesAccounts(t *testing.T) {
	store := NewPositionStore(NewMemDB())
	a := testAddress(0x01)
	b := testAddress(0x02)

	require.NoError(t, store.PutPosition(a, &vault.Position{
		Collateral: map[string]*big.Int{"WETH": big.NewInt(7)},
		Issued:     big.NewInt(3),
	}))

	pos, err := store.GetPosition(b)
	require.NoError(t, err)
	require.Nil(t, pos)
}

func TestPositionStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	addr := testAddress(0x01)
	require.NoError(t, NewPositionStore(db1).PutPosition(addr, &vault.Position{
		Collateral: map[string]*big.Int{"WETH": big.NewInt(42)},
		Issued:     big.NewInt(9),
	}))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	out, err := NewPositionStore(db2).GetPosition(addr)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Equal(t, int64(42), out.Collateral["WETH"].Int64())
	require.Equal(t, int64(9), out.Issued.Int64())
}
