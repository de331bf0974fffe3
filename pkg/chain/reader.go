package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reader performs live ERC20 state reads against one backend. Nothing is
// cached; every call hits the chain.
type Reader struct {
	backend Backend
}

// NewReader creates a token state reader.
func NewReader(backend Backend) *Reader {
	return &Reader{backend: backend}
}

// TokenBalance reads the balance of owner for a token contract.
func (r *Reader) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	erc20, err := NewERC20(token.Hex())
	if err != nil {
		return nil, err
	}
	return erc20.BalanceOf(ctx, r.backend, owner)
}

// TokenAllowance reads the allowance granted by owner to spender.
func (r *Reader) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	erc20, err := NewERC20(token.Hex())
	if err != nil {
		return nil, err
	}
	return erc20.Allowance(ctx, r.backend, owner, spender)
}
