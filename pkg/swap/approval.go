package swap

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sky887766/SwapHelper/pkg/chain"
)

// ApprovalManager makes sure the aggregator's router may spend a token on the
// account's behalf before a sell is submitted.
type ApprovalManager struct {
	api    Aggregator
	reader ChainReader
	sub    TxSubmitter
	owner  common.Address
	events Emitter
}

// NewApprovalManager wires an approval manager for one account.
func NewApprovalManager(api Aggregator, reader ChainReader, sub TxSubmitter, owner common.Address, events Emitter) *ApprovalManager {
	return &ApprovalManager{
		api:    api,
		reader: reader,
		sub:    sub,
		owner:  owner,
		events: events,
	}
}

// EnsureApproved checks the live allowance for the router serving tokenAddress
// and submits a max-uint256 approval when it falls short. With wait false the
// broadcast is fire-and-forget; with wait true the receipt decides the result.
// Every failure resolves to false, never to a raised error.
func (m *ApprovalManager) EnsureApproved(ctx context.Context, tokenAddress string, chainID int64, wait bool) bool {
	// The spender is not a fixed constant; each chain and route may use a
	// different router contract, so it has to come from the aggregator.
	approveTx, err := m.api.GetApproveTransaction(ctx, tokenAddress, chainID)
	if err != nil {
		emitf(m.events, LevelWarning, "failed to get approval template: %v", err)
		return false
	}

	token := common.HexToAddress(tokenAddress)
	spender := common.HexToAddress(approveTx.Spender)

	allowance, err := m.reader.TokenAllowance(ctx, token, m.owner, spender)
	if err != nil {
		emitf(m.events, LevelWarning, "failed to read allowance: %v", err)
		return false
	}

	// Full allowance already granted; the common case on repeated swaps.
	if allowance.Cmp(chain.MaxUint256) >= 0 {
		return true
	}

	erc20, err := chain.NewERC20(tokenAddress)
	if err != nil {
		emitf(m.events, LevelWarning, "invalid token for approval: %v", err)
		return false
	}

	data, err := erc20.PackApprove(spender, chain.MaxUint256)
	if err != nil {
		emitf(m.events, LevelWarning, "failed to build approval call: %v", err)
		return false
	}

	hash, err := m.sub.SendApproval(ctx, token, data, chainID)
	if err != nil {
		emitf(m.events, LevelWarning, "failed to send approval: %v", err)
		return false
	}

	if !wait {
		emitf(m.events, LevelInfo, "approval broadcast: %s", hash.Hex())
		return true
	}

	receipt, err := m.sub.WaitForReceipt(ctx, hash, chain.ApproveReceiptTimeout)
	if err != nil {
		emitf(m.events, LevelWarning, "approval confirmation failed: %v", err)
		return false
	}

	return receipt.Success
}
