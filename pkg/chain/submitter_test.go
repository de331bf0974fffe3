package chain

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/sky887766/SwapHelper/pkg/types"
	"github.com/sky887766/SwapHelper/pkg/wallet"
)

const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// mockBackend scripts RPC responses and records sent transactions.
type mockBackend struct {
	gasPrice     *big.Int
	nonce        uint64
	sent         []*ethtypes.Transaction
	receipt      *ethtypes.Receipt
	receiptErr   error
	receiptAfter int
	receiptCalls int
	callResults  map[[4]byte][]byte
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		gasPrice:    big.NewInt(5000000000),
		nonce:       7,
		callResults: map[[4]byte][]byte{},
	}
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.gasPrice), nil
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return m.nonce, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	m.receiptCalls++
	if m.receiptErr != nil {
		return nil, m.receiptErr
	}
	if m.receiptCalls <= m.receiptAfter {
		return nil, ethereum.NotFound
	}
	return m.receipt, nil
}

func (m *mockBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var selector [4]byte
	copy(selector[:], msg.Data[:4])
	if result, ok := m.callResults[selector]; ok {
		return result, nil
	}
	return common.LeftPadBytes(big.NewInt(0).Bytes(), 32), nil
}

func newTestSubmitter(t *testing.T, backend Backend) *Submitter {
	t.Helper()
	signer, err := wallet.NewSigner(devKey)
	require.NoError(t, err)
	return NewSubmitter(backend, signer, DefaultGasPolicy())
}

func TestGasPolicyDefaults(t *testing.T) {
	policy := DefaultGasPolicy()

	require.Equal(t, uint64(200000), policy.Limit(100000))

	price := policy.Price(big.NewInt(5000000000))
	require.Equal(t, "5050000000", price.String())
}

func TestSubmitAppliesGasPolicy(t *testing.T) {
	backend := newMockBackend()
	backend.receipt = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, GasUsed: 91234}
	sub := newTestSubmitter(t, backend)

	swapTx := &types.SwapTransaction{
		To:      "0x3333333333333333333333333333333333333333",
		Data:    "0xdeadbeef",
		Value:   big.NewInt(100),
		GasHint: 210000,
	}

	result, err := sub.Submit(context.Background(), swapTx, 56)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, uint64(91234), result.GasUsed)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	require.Equal(t, uint64(420000), tx.Gas())
	require.Equal(t, "5050000000", tx.GasPrice().String())
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), *tx.To())
	require.Equal(t, big.NewInt(100), tx.Value())
	require.Equal(t, common.FromHex("0xdeadbeef"), tx.Data())
	require.Equal(t, result.Hash, tx.Hash().Hex())
}

func TestSubmitReportsRevertedReceipt(t *testing.T) {
	backend := newMockBackend()
	backend.receipt = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed}
	sub := newTestSubmitter(t, backend)

	result, err := sub.Submit(context.Background(), &types.SwapTransaction{
		To:      "0x3333333333333333333333333333333333333333",
		Value:   big.NewInt(0),
		GasHint: 100000,
	}, 56)
	require.NoError(t, err)
	require.False(t, result.Success)
}

func TestSendApprovalUsesFixedGasAndRawPrice(t *testing.T) {
	backend := newMockBackend()
	sub := newTestSubmitter(t, backend)

	token := common.HexToAddress("0x1111111111111111111111111111111111111111")
	hash, err := sub.SendApproval(context.Background(), token, []byte{0x09, 0x5e, 0xa7, 0xb3}, 56)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, hash)

	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	require.Equal(t, uint64(ApproveGasLimit), tx.Gas())
	// Approvals do not bump the network gas price.
	require.Equal(t, backend.gasPrice.String(), tx.GasPrice().String())
	require.Equal(t, token, *tx.To())
	require.Equal(t, int64(0), tx.Value().Int64())
}

func TestWaitForReceiptRetriesUntilFound(t *testing.T) {
	backend := newMockBackend()
	backend.receipt = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}
	backend.receiptAfter = 2
	sub := newTestSubmitter(t, backend)

	result, err := sub.WaitForReceipt(context.Background(), common.HexToHash("0xab"), 30*time.Second)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 3, backend.receiptCalls)
}

func TestWaitForReceiptTimesOut(t *testing.T) {
	backend := newMockBackend()
	backend.receiptErr = ethereum.NotFound
	sub := newTestSubmitter(t, backend)

	_, err := sub.WaitForReceipt(context.Background(), common.HexToHash("0xab"), 10*time.Millisecond)
	require.Error(t, err)
	require.Equal(t, types.ErrChain, types.KindOf(err))
	require.Contains(t, err.Error(), "timed out")
}
