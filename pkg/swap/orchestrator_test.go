package swap

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/sky887766/SwapHelper/pkg/chain"
	"github.com/sky887766/SwapHelper/pkg/client"
	"github.com/sky887766/SwapHelper/pkg/types"
)

const (
	devKey       = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testToken    = "0x1111111111111111111111111111111111111111"
	testSpender  = "0x4444444444444444444444444444444444444444"
	testRouterTo = "0x3333333333333333333333333333333333333333"
)

var testChain = types.ChainContext{RPCURL: "http://127.0.0.1:8545", ChainID: 56}

var (
	balanceOfSelector = [4]byte{0x70, 0xa0, 0x82, 0x31}
	allowanceSelector = [4]byte{0xdd, 0x62, 0xed, 0x3e}
)

// mockAggregator scripts swap API responses and records the requests made.
type mockAggregator struct {
	quoteErr     error
	quoteCalls   int
	lastFrom     string
	lastTo       string
	lastAmount   string
	approveCalls int
}

func (m *mockAggregator) GetQuote(ctx context.Context, fromToken, toToken, slippage, amount string, chainID int64) (*types.Quote, error) {
	m.quoteCalls++
	m.lastFrom = fromToken
	m.lastTo = toToken
	m.lastAmount = amount
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	return &types.Quote{
		ChainID:       "56",
		FromToken:     fromToken,
		ToToken:       toToken,
		FromAmount:    amount,
		ToAmount:      "250000000000000000000",
		ToTokenSymbol: "TKN",
		RouteDexName:  "Pancake Swap V3",
	}, nil
}

func (m *mockAggregator) BuildSwap(ctx context.Context, quote *types.Quote, slippage string) (*types.SwapTransaction, error) {
	return &types.SwapTransaction{
		To:      testRouterTo,
		Data:    "0xdeadbeef",
		Value:   big.NewInt(0),
		GasHint: 210000,
	}, nil
}

func (m *mockAggregator) GetApproveTransaction(ctx context.Context, tokenAddress string, chainID int64) (*client.ApproveTransaction, error) {
	m.approveCalls++
	return &client.ApproveTransaction{Spender: testSpender}, nil
}

// mockBackend is an in-memory chain.Backend: balances and allowances come from
// the selector map, receipts share one scripted status.
type mockBackend struct {
	balance       *big.Int
	allowance     *big.Int
	receiptStatus uint64
	sent          []*ethtypes.Transaction
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(5000000000), nil
}

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return uint64(len(m.sent)), nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	if len(m.sent) == 0 {
		return nil, ethereum.NotFound
	}
	return &ethtypes.Receipt{Status: m.receiptStatus, GasUsed: 90000}, nil
}

func (m *mockBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var selector [4]byte
	copy(selector[:], msg.Data[:4])
	switch selector {
	case balanceOfSelector:
		return common.LeftPadBytes(m.balance.Bytes(), 32), nil
	case allowanceSelector:
		return common.LeftPadBytes(m.allowance.Bytes(), 32), nil
	}
	return nil, ethereum.NotFound
}

func newTestOrchestrator(t *testing.T, api *mockAggregator, backend *mockBackend) *Orchestrator {
	t.Helper()
	o, err := New(types.Credentials{
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "phrase",
		PrivateKey: devKey,
	}, NopEmitter)
	require.NoError(t, err)

	o.api = api
	o.dial = func(rpcURL string) (chain.Backend, error) {
		return backend, nil
	}
	return o
}

func TestBuyConfirmedTriggersBackgroundApproval(t *testing.T) {
	api := &mockAggregator{}
	backend := &mockBackend{
		balance:       big.NewInt(0),
		allowance:     big.NewInt(0),
		receiptStatus: ethtypes.ReceiptStatusSuccessful,
	}
	o := newTestOrchestrator(t, api, backend)

	result, err := o.Buy(context.Background(), types.BuyParams{
		TokenAddress:    testToken,
		AmountNative:    "0.1",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Equal(t, types.NativeTokenAddress, api.lastFrom)
	require.Equal(t, testToken, api.lastTo)
	require.Equal(t, "100000000000000000", api.lastAmount)

	// Swap first, then the fire-and-forget approval.
	require.Equal(t, 1, api.approveCalls)
	require.Len(t, backend.sent, 2)
	require.Equal(t, common.HexToAddress(testRouterTo), *backend.sent[0].To())
	require.Equal(t, common.HexToAddress(testToken), *backend.sent[1].To())
	require.Equal(t, uint64(chain.ApproveGasLimit), backend.sent[1].Gas())
}

func TestBuyRevertedSkipsApproval(t *testing.T) {
	api := &mockAggregator{}
	backend := &mockBackend{
		balance:       big.NewInt(0),
		allowance:     big.NewInt(0),
		receiptStatus: ethtypes.ReceiptStatusFailed,
	}
	o := newTestOrchestrator(t, api, backend)

	result, err := o.Buy(context.Background(), types.BuyParams{
		TokenAddress:    testToken,
		AmountNative:    "0.1",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.Error(t, err)
	require.Equal(t, types.ErrChain, types.KindOf(err))
	require.NotNil(t, result)
	require.False(t, result.Success)

	require.Equal(t, 0, api.approveCalls)
	require.Len(t, backend.sent, 1)
}

func TestBuyQuoteErrorStopsBeforeChain(t *testing.T) {
	api := &mockAggregator{quoteErr: types.APIError("51000", "parameter error")}
	backend := &mockBackend{balance: big.NewInt(0), allowance: big.NewInt(0)}
	o := newTestOrchestrator(t, api, backend)

	_, err := o.Buy(context.Background(), types.BuyParams{
		TokenAddress:    testToken,
		AmountNative:    "0.1",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.Error(t, err)
	require.Equal(t, types.ErrAPI, types.KindOf(err))
	require.Empty(t, backend.sent)
}

func TestBuyValidation(t *testing.T) {
	o := newTestOrchestrator(t, &mockAggregator{}, &mockBackend{})

	cases := []struct {
		name   string
		params types.BuyParams
	}{
		{"bad token address", types.BuyParams{TokenAddress: "nope", AmountNative: "0.1", SlippagePercent: "0.5", Chain: testChain}},
		{"empty amount", types.BuyParams{TokenAddress: testToken, AmountNative: "", SlippagePercent: "0.5", Chain: testChain}},
		{"zero amount", types.BuyParams{TokenAddress: testToken, AmountNative: "0", SlippagePercent: "0.5", Chain: testChain}},
		{"bad slippage", types.BuyParams{TokenAddress: testToken, AmountNative: "0.1", SlippagePercent: "200", Chain: testChain}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := o.Buy(context.Background(), tc.params)
			require.Error(t, err)
			require.Equal(t, types.ErrValidation, types.KindOf(err))
		})
	}
}

func TestSellFullBalanceWithExistingApproval(t *testing.T) {
	api := &mockAggregator{}
	balance := new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))
	backend := &mockBackend{
		balance:       balance,
		allowance:     new(big.Int).Set(chain.MaxUint256),
		receiptStatus: ethtypes.ReceiptStatusSuccessful,
	}
	o := newTestOrchestrator(t, api, backend)

	result, err := o.Sell(context.Background(), types.SellParams{
		TokenAddress:    testToken,
		RatioPercent:    "100",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	// Ratio 100 sells the exact balance.
	require.Equal(t, balance.String(), api.lastAmount)
	require.Equal(t, testToken, api.lastFrom)
	require.Equal(t, types.NativeTokenAddress, api.lastTo)

	// Allowance was already maxed, so only the swap hit the chain.
	require.Len(t, backend.sent, 1)
	require.Equal(t, common.HexToAddress(testRouterTo), *backend.sent[0].To())
}

func TestSellPartialRatioApprovesInline(t *testing.T) {
	api := &mockAggregator{}
	backend := &mockBackend{
		balance:       big.NewInt(1e18),
		allowance:     big.NewInt(0),
		receiptStatus: ethtypes.ReceiptStatusSuccessful,
	}
	o := newTestOrchestrator(t, api, backend)

	result, err := o.Sell(context.Background(), types.SellParams{
		TokenAddress:    testToken,
		RatioPercent:    "50",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.NoError(t, err)
	require.True(t, result.Success)

	require.Equal(t, "500000000000000000", api.lastAmount)
	require.Equal(t, 1, api.approveCalls)

	// Approval lands before the swap.
	require.Len(t, backend.sent, 2)
	require.Equal(t, common.HexToAddress(testToken), *backend.sent[0].To())
	require.Equal(t, common.HexToAddress(testRouterTo), *backend.sent[1].To())
}

func TestSellRefusesDustBalance(t *testing.T) {
	api := &mockAggregator{}
	backend := &mockBackend{
		balance:   new(big.Int).Set(DustThreshold),
		allowance: big.NewInt(0),
	}
	o := newTestOrchestrator(t, api, backend)

	_, err := o.Sell(context.Background(), types.SellParams{
		TokenAddress:    testToken,
		RatioPercent:    "100",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.Error(t, err)
	require.Equal(t, types.ErrInsufficientFunds, types.KindOf(err))
	require.Equal(t, 0, api.quoteCalls)
	require.Empty(t, backend.sent)
}

func TestSellJustAboveDustProceeds(t *testing.T) {
	api := &mockAggregator{}
	backend := &mockBackend{
		balance:       new(big.Int).Add(DustThreshold, big.NewInt(1)),
		allowance:     new(big.Int).Set(chain.MaxUint256),
		receiptStatus: ethtypes.ReceiptStatusSuccessful,
	}
	o := newTestOrchestrator(t, api, backend)

	_, err := o.Sell(context.Background(), types.SellParams{
		TokenAddress:    testToken,
		RatioPercent:    "100",
		SlippagePercent: "0.5",
		Chain:           testChain,
	})
	require.NoError(t, err)
	require.Equal(t, 1, api.quoteCalls)
}

func TestSellRatioValidation(t *testing.T) {
	o := newTestOrchestrator(t, &mockAggregator{}, &mockBackend{})

	for _, ratio := range []string{"0", "-5", "101", "33.5", "abc", ""} {
		t.Run(ratio, func(t *testing.T) {
			_, err := o.Sell(context.Background(), types.SellParams{
				TokenAddress:    testToken,
				RatioPercent:    ratio,
				SlippagePercent: "0.5",
				Chain:           testChain,
			})
			require.Error(t, err)
			require.Equal(t, types.ErrValidation, types.KindOf(err))
		})
	}
}

func TestOperationsRefusedWhileInFlight(t *testing.T) {
	o := newTestOrchestrator(t, &mockAggregator{}, &mockBackend{})
	o.inFlight.Store(true)

	_, err := o.Buy(context.Background(), types.BuyParams{
		TokenAddress: testToken, AmountNative: "0.1", SlippagePercent: "0.5", Chain: testChain,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "in progress")

	_, err = o.Sell(context.Background(), types.SellParams{
		TokenAddress: testToken, RatioPercent: "100", SlippagePercent: "0.5", Chain: testChain,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "in progress")
}

func TestNewRejectsIncompleteCredentials(t *testing.T) {
	_, err := New(types.Credentials{APIKey: "key"}, NopEmitter)
	require.Error(t, err)
	require.Equal(t, types.ErrValidation, types.KindOf(err))
}

func TestComputeSellAmount(t *testing.T) {
	cases := []struct {
		balance string
		ratio   int64
		want    string
	}{
		{"1000000000000000000", 100, "1000000000000000000"},
		{"1000000000000000000", 50, "500000000000000000"},
		{"10", 33, "3"},
		{"1", 50, "0"},
	}

	for _, tc := range cases {
		balance, _ := new(big.Int).SetString(tc.balance, 10)
		got := computeSellAmount(balance, tc.ratio)
		require.Equal(t, tc.want, got.String())
	}
}

func TestParseSlippage(t *testing.T) {
	got, err := parseSlippage("0.5")
	require.NoError(t, err)
	require.Equal(t, "0.005", got)

	got, err = parseSlippage("1")
	require.NoError(t, err)
	require.Equal(t, "0.01", got)

	for _, bad := range []string{"", "0", "-1", "100", "abc"} {
		_, err := parseSlippage(bad)
		require.Error(t, err, "slippage %q", bad)
	}
}

func TestParseNativeAmount(t *testing.T) {
	wei, err := parseNativeAmount("0.1")
	require.NoError(t, err)
	require.Equal(t, "100000000000000000", wei.String())

	wei, err = parseNativeAmount("2")
	require.NoError(t, err)
	require.Equal(t, "2000000000000000000", wei.String())

	for _, bad := range []string{"", "abc", "0", "-1"} {
		_, err := parseNativeAmount(bad)
		require.Error(t, err, "amount %q", bad)
	}
}

func TestFormatUnits(t *testing.T) {
	require.Equal(t, "1.50000000", formatUnits(new(big.Int).SetInt64(1500000000000000000)))
	require.Equal(t, "0.00000000", formatUnits(big.NewInt(1)))
}
