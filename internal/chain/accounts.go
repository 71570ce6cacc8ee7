package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// DevAccount is a deterministic, unlocked dev account
type DevAccount struct {
	Index   int
	Label   string
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// PrivateKeyHex returns the 0x-prefixed private key
func (a DevAccount) PrivateKeyHex() string {
	return hexutil.Encode(crypto.FromECDSA(a.Key))
}

// DeriveAccounts derives n secp256k1 accounts from seed. Key i is
// keccak256(seed || uint64(i)), so the same seed always yields the same accounts.
func DeriveAccounts(seed string, n int) ([]DevAccount, error) {
	accounts := make([]DevAccount, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.ToECDSA(crypto.Keccak256([]byte(seed), uint64Bytes(uint64(i))))
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		accounts = append(accounts, DevAccount{
			Index:   i,
			Label:   fmt.Sprintf("account%d", i),
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		})
	}
	return accounts, nil
}
