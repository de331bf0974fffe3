package chain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/sky887766/SwapHelper/pkg/types"
	"github.com/sky887766/SwapHelper/pkg/wallet"
)

const (
	// SwapReceiptTimeout bounds the receipt wait after a swap broadcast.
	SwapReceiptTimeout = 120 * time.Second
	// ApproveReceiptTimeout bounds the receipt wait after an approval broadcast.
	ApproveReceiptTimeout = 60 * time.Second
	// ApproveGasLimit is the fixed gas limit for approval transactions.
	ApproveGasLimit = 2100000

	receiptPollInterval = 2 * time.Second
)

// GasPolicy holds the defensive-headroom constants applied to every swap
// transaction. The defaults double the aggregator's gas hint and bump the
// network gas price by 1%.
type GasPolicy struct {
	LimitMultiplier uint64
	PriceBumpNum    int64
	PriceBumpDen    int64
}

// DefaultGasPolicy returns the 2x limit / 1.01x price policy.
func DefaultGasPolicy() GasPolicy {
	return GasPolicy{LimitMultiplier: 2, PriceBumpNum: 101, PriceBumpDen: 100}
}

// Limit applies the multiplier to the aggregator's gas hint.
func (p GasPolicy) Limit(hint uint64) uint64 {
	return hint * p.LimitMultiplier
}

// Price applies the inclusion-priority bump to the current network gas price.
func (p GasPolicy) Price(current *big.Int) *big.Int {
	bumped := new(big.Int).Mul(current, big.NewInt(p.PriceBumpNum))
	return bumped.Div(bumped, big.NewInt(p.PriceBumpDen))
}

// Submitter assembles, signs, broadcasts and confirms chain transactions for
// one account.
type Submitter struct {
	backend Backend
	signer  *wallet.Signer
	policy  GasPolicy
}

// NewSubmitter creates a submitter with the given gas policy.
func NewSubmitter(backend Backend, signer *wallet.Signer, policy GasPolicy) *Submitter {
	return &Submitter{
		backend: backend,
		signer:  signer,
		policy:  policy,
	}
}

// Submit broadcasts a swap payload and blocks for its receipt. The payload is
// consumed exactly once; the amounts and deadlines inside it go stale after
// submission. A send error or receipt timeout both resolve to a chain error,
// never to an ambiguous partial state.
func (s *Submitter) Submit(ctx context.Context, swapTx *types.SwapTransaction, chainID int64) (*types.SubmittedTx, error) {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, types.WrapError(types.ErrChain, err, "failed to get gas price")
	}

	hash, err := s.broadcast(
		ctx,
		common.HexToAddress(swapTx.To),
		swapTx.Value,
		common.FromHex(swapTx.Data),
		s.policy.Limit(swapTx.GasHint),
		s.policy.Price(gasPrice),
		chainID,
	)
	if err != nil {
		return nil, err
	}

	return s.WaitForReceipt(ctx, hash, SwapReceiptTimeout)
}

// SendApproval broadcasts an approval call without waiting for its receipt.
// Approvals keep the raw network gas price and a fixed gas limit.
func (s *Submitter) SendApproval(ctx context.Context, token common.Address, data []byte, chainID int64) (common.Hash, error) {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, types.WrapError(types.ErrChain, err, "failed to get gas price")
	}

	return s.broadcast(ctx, token, big.NewInt(0), data, ApproveGasLimit, gasPrice, chainID)
}

// broadcast assembles a legacy transaction with a fresh on-chain nonce, signs
// it and sends it.
func (s *Submitter) broadcast(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64, gasPrice *big.Int, chainID int64) (common.Hash, error) {
	nonce, err := s.backend.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return common.Hash{}, types.WrapError(types.ErrChain, err, "failed to get nonce")
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := s.signer.SignTransaction(tx, big.NewInt(chainID))
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, types.WrapError(types.ErrChain, err, "failed to send transaction")
	}

	return signedTx.Hash(), nil
}

// WaitForReceipt polls for the receipt of hash until it lands or the timeout
// expires. Pending lookups retry internally; exceeding the bound surfaces as
// a chain error.
func (s *Submitter) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.SubmittedTx, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return &types.SubmittedTx{
				Hash:    hash.Hex(),
				Success: receipt.Status == ethtypes.ReceiptStatusSuccessful,
				GasUsed: receipt.GasUsed,
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, types.WrapError(types.ErrChain, err, "failed to get receipt for %s", hash.Hex())
		}

		select {
		case <-ctx.Done():
			return nil, types.NewError(types.ErrChain, "timed out waiting for receipt of %s", hash.Hex())
		case <-ticker.C:
		}
	}
}
