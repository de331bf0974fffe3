package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/sky887766/SwapHelper/pkg/types"
)

// Minimal ERC20 surface: reads plus approve.
const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// MaxUint256 is the full-allowance amount requested on approval.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ERC20 reads token state and packs approve calls for one token contract.
type ERC20 struct {
	token  common.Address
	parsed abi.ABI
}

// NewERC20 binds the minimal ERC20 ABI to a token address.
func NewERC20(tokenAddress string) (*ERC20, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, types.NewError(types.ErrValidation, "invalid token contract address: %s", tokenAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "failed to parse ERC20 ABI")
	}

	return &ERC20{
		token:  common.HexToAddress(tokenAddress),
		parsed: parsed,
	}, nil
}

// Address returns the token contract address.
func (e *ERC20) Address() common.Address {
	return e.token
}

// BalanceOf reads the live token balance of owner.
func (e *ERC20) BalanceOf(ctx context.Context, backend Backend, owner common.Address) (*big.Int, error) {
	data, err := e.parsed.Pack("balanceOf", owner)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "failed to pack balanceOf")
	}

	result, err := e.call(ctx, backend, data)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "balanceOf call failed")
	}

	return new(big.Int).SetBytes(result), nil
}

// Allowance reads the live allowance granted by owner to spender. Never
// cached; each approval check re-reads it.
func (e *ERC20) Allowance(ctx context.Context, backend Backend, owner, spender common.Address) (*big.Int, error) {
	data, err := e.parsed.Pack("allowance", owner, spender)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "failed to pack allowance")
	}

	result, err := e.call(ctx, backend, data)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "allowance call failed")
	}

	return new(big.Int).SetBytes(result), nil
}

// PackApprove builds the calldata for approve(spender, amount).
func (e *ERC20) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := e.parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "failed to pack approve")
	}
	return data, nil
}

func (e *ERC20) call(ctx context.Context, backend Backend, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{
		To:   &e.token,
		Data: data,
	}
	return backend.CallContract(ctx, msg, nil)
}
