package swap

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/sky887766/SwapHelper/pkg/chain"
	"github.com/sky887766/SwapHelper/pkg/client"
	"github.com/sky887766/SwapHelper/pkg/types"
	"github.com/sky887766/SwapHelper/pkg/wallet"
)

// DustThreshold is the raw token balance at or below which a sell is refused
// before any gas is spent on quoting.
var DustThreshold = big.NewInt(100000000)

// Aggregator is the surface of the swap API the orchestrator depends on.
// *client.Client satisfies it.
type Aggregator interface {
	GetQuote(ctx context.Context, fromToken, toToken, slippage, amount string, chainID int64) (*types.Quote, error)
	BuildSwap(ctx context.Context, quote *types.Quote, slippage string) (*types.SwapTransaction, error)
	GetApproveTransaction(ctx context.Context, tokenAddress string, chainID int64) (*client.ApproveTransaction, error)
}

// ChainReader reads live token state. *chain.Reader satisfies it.
type ChainReader interface {
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// TxSubmitter broadcasts and confirms transactions. *chain.Submitter
// satisfies it.
type TxSubmitter interface {
	Submit(ctx context.Context, swapTx *types.SwapTransaction, chainID int64) (*types.SubmittedTx, error)
	SendApproval(ctx context.Context, token common.Address, data []byte, chainID int64) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*types.SubmittedTx, error)
}

// Orchestrator owns one account session and runs Buy and Sell flows against
// it. At most one operation runs at a time; starting a second one while the
// first is in flight is refused to avoid nonce collisions.
type Orchestrator struct {
	creds    types.Credentials
	signer   *wallet.Signer
	api      Aggregator
	events   Emitter
	policy   chain.GasPolicy
	dial     func(rpcURL string) (chain.Backend, error)
	inFlight atomic.Bool
}

// New validates the credential set, derives the account and builds an
// orchestrator. The private key is held in memory only for the session's
// lifetime.
func New(creds types.Credentials, events Emitter) (*Orchestrator, error) {
	if !creds.Complete() {
		return nil, types.NewError(types.ErrValidation, "API key, secret, passphrase and private key must all be set")
	}
	if events == nil {
		events = NopEmitter
	}

	signer, err := wallet.NewSigner(creds.PrivateKey)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		creds:  creds,
		signer: signer,
		api:    client.NewClient(creds, signer.Address().Hex()),
		events: events,
		policy: chain.DefaultGasPolicy(),
		dial: func(rpcURL string) (chain.Backend, error) {
			return chain.Dial(rpcURL)
		},
	}, nil
}

// Address returns the account address derived from the private key.
func (o *Orchestrator) Address() common.Address {
	return o.signer.Address()
}

// SetGasPolicy overrides the default gas policy.
func (o *Orchestrator) SetGasPolicy(policy chain.GasPolicy) {
	o.policy = policy
}

// Buy swaps native coin into the token at params.TokenAddress. On a confirmed
// receipt it pre-stages the sell-side approval in fire-and-forget mode so a
// later sell does not have to approve inline; that pre-staging is best-effort
// and cannot fail the buy.
func (o *Orchestrator) Buy(ctx context.Context, params types.BuyParams) (*types.SubmittedTx, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrValidation, "another operation is already in progress")
	}
	defer o.inFlight.Store(false)

	if err := validateTokenAddress(params.TokenAddress); err != nil {
		return nil, err
	}
	if params.AmountNative == "" {
		return nil, types.NewError(types.ErrValidation, "buy amount must not be empty")
	}
	slippage, err := parseSlippage(params.SlippagePercent)
	if err != nil {
		return nil, err
	}

	amountWei, err := parseNativeAmount(params.AmountNative)
	if err != nil {
		return nil, err
	}

	emitf(o.events, LevelInfo, "buying %s with %s native (slippage %s%%)", params.TokenAddress, params.AmountNative, params.SlippagePercent)

	backend, err := o.dial(params.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	defer closeBackend(backend)

	emitf(o.events, LevelInfo, "fetching buy quote...")
	quote, err := o.api.GetQuote(ctx, types.NativeTokenAddress, params.TokenAddress, slippage, amountWei.String(), params.Chain.ChainID)
	if err != nil {
		emitf(o.events, LevelError, "buy quote failed: %v", err)
		return nil, err
	}
	o.emitQuote(quote)

	swapTx, err := o.api.BuildSwap(ctx, quote, slippage)
	if err != nil {
		emitf(o.events, LevelError, "building buy transaction failed: %v", err)
		return nil, err
	}
	emitf(o.events, LevelInfo, "buy transaction payload received")

	sub := chain.NewSubmitter(backend, o.signer, o.policy)

	emitf(o.events, LevelInfo, "sending buy transaction...")
	result, err := sub.Submit(ctx, swapTx, params.Chain.ChainID)
	if err != nil {
		emitf(o.events, LevelError, "sending buy transaction failed: %v", err)
		return nil, err
	}

	if !result.Success {
		emitf(o.events, LevelError, "buy transaction %s reverted", result.Hash)
		return result, types.NewError(types.ErrChain, "buy transaction %s reverted", result.Hash)
	}

	emitf(o.events, LevelSuccess, "buy confirmed: %s", result.Hash)

	// Pre-stage the approval so a later sell does not pay for it inline.
	emitf(o.events, LevelInfo, "pre-approving token in the background...")
	am := NewApprovalManager(o.api, chain.NewReader(backend), sub, o.signer.Address(), o.events)
	if !am.EnsureApproved(ctx, params.TokenAddress, params.Chain.ChainID, false) {
		emitf(o.events, LevelWarning, "background approval failed; the next sell will approve inline")
	}

	return result, nil
}

// Sell swaps a percentage of the held token balance back into native coin.
// The approval runs inline with a confirmed receipt before the swap is
// submitted.
func (o *Orchestrator) Sell(ctx context.Context, params types.SellParams) (*types.SubmittedTx, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrValidation, "another operation is already in progress")
	}
	defer o.inFlight.Store(false)

	if err := validateTokenAddress(params.TokenAddress); err != nil {
		return nil, err
	}
	ratio, err := parseSellRatio(params.RatioPercent)
	if err != nil {
		return nil, err
	}
	slippage, err := parseSlippage(params.SlippagePercent)
	if err != nil {
		return nil, err
	}

	emitf(o.events, LevelInfo, "selling %d%% of %s (slippage %s%%)", ratio, params.TokenAddress, params.SlippagePercent)

	backend, err := o.dial(params.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	defer closeBackend(backend)

	reader := chain.NewReader(backend)

	emitf(o.events, LevelInfo, "reading token balance...")
	balance, err := reader.TokenBalance(ctx, common.HexToAddress(params.TokenAddress), o.signer.Address())
	if err != nil {
		emitf(o.events, LevelError, "balance read failed: %v", err)
		return nil, err
	}

	if balance.Cmp(DustThreshold) <= 0 {
		emitf(o.events, LevelWarning, "token balance %s is too small to sell", formatUnits(balance))
		return nil, types.NewError(types.ErrInsufficientFunds, "token balance %s at or below dust threshold", balance.String())
	}
	emitf(o.events, LevelInfo, "token balance: %s", formatUnits(balance))

	sellAmount := computeSellAmount(balance, ratio)
	if sellAmount.Sign() <= 0 {
		return nil, types.NewError(types.ErrInsufficientFunds, "computed sell amount is zero")
	}
	emitf(o.events, LevelInfo, "selling %s tokens (%d%%)", formatUnits(sellAmount), ratio)

	emitf(o.events, LevelInfo, "fetching sell quote...")
	quote, err := o.api.GetQuote(ctx, params.TokenAddress, types.NativeTokenAddress, slippage, sellAmount.String(), params.Chain.ChainID)
	if err != nil {
		emitf(o.events, LevelError, "sell quote failed: %v", err)
		return nil, err
	}
	o.emitQuote(quote)

	swapTx, err := o.api.BuildSwap(ctx, quote, slippage)
	if err != nil {
		emitf(o.events, LevelError, "building sell transaction failed: %v", err)
		return nil, err
	}
	emitf(o.events, LevelInfo, "sell transaction payload received")

	sub := chain.NewSubmitter(backend, o.signer, o.policy)

	emitf(o.events, LevelInfo, "checking token approval...")
	am := NewApprovalManager(o.api, reader, sub, o.signer.Address(), o.events)
	if !am.EnsureApproved(ctx, params.TokenAddress, params.Chain.ChainID, true) {
		emitf(o.events, LevelError, "token approval failed, aborting sell")
		return nil, types.NewError(types.ErrChain, "token approval failed")
	}
	emitf(o.events, LevelInfo, "token approved for the router")

	emitf(o.events, LevelInfo, "sending sell transaction...")
	result, err := sub.Submit(ctx, swapTx, params.Chain.ChainID)
	if err != nil {
		emitf(o.events, LevelError, "sending sell transaction failed: %v", err)
		return nil, err
	}

	if !result.Success {
		emitf(o.events, LevelError, "sell transaction %s reverted", result.Hash)
		return result, types.NewError(types.ErrChain, "sell transaction %s reverted", result.Hash)
	}

	emitf(o.events, LevelSuccess, "sell confirmed: %s", result.Hash)
	return result, nil
}

// Quote fetches a quote without executing anything.
func (o *Orchestrator) Quote(ctx context.Context, fromToken, toToken, slippagePercent string, amount *big.Int, chainID int64) (*types.Quote, error) {
	slippage, err := parseSlippage(slippagePercent)
	if err != nil {
		return nil, err
	}
	return o.api.GetQuote(ctx, fromToken, toToken, slippage, amount.String(), chainID)
}

// TokenBalance reads the account's live balance of a token.
func (o *Orchestrator) TokenBalance(ctx context.Context, rpcURL, tokenAddress string) (*big.Int, error) {
	if err := validateTokenAddress(tokenAddress); err != nil {
		return nil, err
	}

	backend, err := o.dial(rpcURL)
	if err != nil {
		return nil, err
	}
	defer closeBackend(backend)

	return chain.NewReader(backend).TokenBalance(ctx, common.HexToAddress(tokenAddress), o.signer.Address())
}

// Approve runs the allowance check and approval for a token, waiting for the
// receipt.
func (o *Orchestrator) Approve(ctx context.Context, tokenAddress string, chainCtx types.ChainContext) (bool, error) {
	if err := validateTokenAddress(tokenAddress); err != nil {
		return false, err
	}

	backend, err := o.dial(chainCtx.RPCURL)
	if err != nil {
		return false, err
	}
	defer closeBackend(backend)

	sub := chain.NewSubmitter(backend, o.signer, o.policy)
	am := NewApprovalManager(o.api, chain.NewReader(backend), sub, o.signer.Address(), o.events)
	return am.EnsureApproved(ctx, tokenAddress, chainCtx.ChainID, true), nil
}

func (o *Orchestrator) emitQuote(quote *types.Quote) {
	emitf(o.events, LevelInfo, "expected to receive %s %s", formatUnitsString(quote.ToAmount), quote.ToTokenSymbol)
	emitf(o.events, LevelInfo, "price impact: %s%%", quote.PriceImpactPct)
	emitf(o.events, LevelInfo, "routing through %s", quote.RouteDexName)
}

func validateTokenAddress(addr string) error {
	if addr == "" {
		return types.NewError(types.ErrValidation, "token contract address must not be empty")
	}
	if !common.IsHexAddress(addr) {
		return types.NewError(types.ErrValidation, "invalid token contract address: %s", addr)
	}
	return nil
}

// parseSlippage converts a percent string to the fractional form the
// aggregator expects ("0.5" -> "0.005").
func parseSlippage(percent string) (string, error) {
	if percent == "" {
		return "", types.NewError(types.ErrValidation, "slippage must not be empty")
	}
	value, err := strconv.ParseFloat(percent, 64)
	if err != nil {
		return "", types.NewError(types.ErrValidation, "slippage must be a number: %s", percent)
	}
	if value <= 0 || value >= 100 {
		return "", types.NewError(types.ErrValidation, "slippage must be between 0 and 100 percent")
	}
	return strconv.FormatFloat(value/100, 'f', -1, 64), nil
}

// parseSellRatio validates an integer percentage in (0, 100].
func parseSellRatio(ratio string) (int64, error) {
	if ratio == "" {
		return 0, types.NewError(types.ErrValidation, "sell ratio must not be empty")
	}
	value, err := strconv.ParseFloat(ratio, 64)
	if err != nil {
		return 0, types.NewError(types.ErrValidation, "sell ratio must be a number: %s", ratio)
	}
	if value != math.Trunc(value) {
		return 0, types.NewError(types.ErrValidation, "sell ratio must be a whole number")
	}
	n := int64(value)
	if n <= 0 || n > 100 {
		return 0, types.NewError(types.ErrValidation, "sell ratio must be greater than 0 and at most 100")
	}
	return n, nil
}

// computeSellAmount applies the percentage to the balance with integer floor.
// A ratio of 100 sells the exact balance.
func computeSellAmount(balance *big.Int, ratio int64) *big.Int {
	if ratio == 100 {
		return new(big.Int).Set(balance)
	}
	amount := new(big.Int).Mul(balance, big.NewInt(ratio))
	return amount.Div(amount, big.NewInt(100))
}

// parseNativeAmount converts a decimal native-coin amount to wei.
func parseNativeAmount(amount string) (*big.Int, error) {
	amountFloat, ok := new(big.Float).SetString(amount)
	if !ok {
		return nil, types.NewError(types.ErrValidation, "invalid amount format: %s", amount)
	}
	if amountFloat.Sign() <= 0 {
		return nil, types.NewError(types.ErrValidation, "amount must be greater than zero")
	}

	weiPerEther := new(big.Float).SetInt(big.NewInt(1e18))
	amountWei := new(big.Float).Mul(amountFloat, weiPerEther)

	result := new(big.Int)
	amountWei.Int(result)
	return result, nil
}

// formatUnits renders a raw 1e18-scaled amount with 8 decimals for event
// messages.
func formatUnits(amount *big.Int) string {
	value := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(big.NewInt(1e18)))
	return value.Text('f', 8)
}

func formatUnitsString(amount string) string {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return formatUnits(value)
}

func closeBackend(backend chain.Backend) {
	if closer, ok := backend.(interface{ Close() }); ok {
		closer.Close()
	}
}
