package wallet

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sky887766/SwapHelper/pkg/types"
)

// Signer wraps a single private key and produces chain-id-aware transaction
// signatures. The key lives in memory only, read-only for the signer's
// lifetime.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner parses a hex private key and derives its address.
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, types.WrapError(types.ErrAuth, err, "invalid private key")
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the account address derived from the private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTransaction signs tx for the given chain using EIP-155 replay
// protection. Pure computation, no side effects.
func (s *Signer) SignTransaction(tx *ethtypes.Transaction, chainID *big.Int) (*ethtypes.Transaction, error) {
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), s.privateKey)
	if err != nil {
		return nil, types.WrapError(types.ErrAuth, err, "failed to sign transaction")
	}
	return signedTx, nil
}
