package ledger

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidKey = errors.New("ledger: invalid private key")

// Signer is the identity a single ledger call is signed with. Callers pass
// one per call; the client keeps no operator state between calls.
type Signer struct {
	AccountID string
	Key       *ecdsa.PrivateKey
}

// NewSigner parses a hex encoded secp256k1 key. The 0x prefix is optional.
func NewSigner(accountID, hexKey string) (Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return Signer{}, ErrInvalidKey
	}
	if accountID == "" {
		accountID = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	return Signer{AccountID: accountID, Key: key}, nil
}

func (s Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.Key.PublicKey)
}

// Account is a freshly generated ledger account.
type Account struct {
	AccountID     string
	Address       string
	PrivateKey    string
	PublicKey     string
	TransactionID string
}

func newAccount() (*Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	addr := crypto.PubkeyToAddress(key.PublicKey).Hex()
	return &Account{
		AccountID:  addr,
		Address:    addr,
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		PublicKey:  hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)),
	}, nil
}
