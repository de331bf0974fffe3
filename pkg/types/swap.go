package types

import "math/big"

// NativeTokenAddress is the sentinel the aggregator uses for the chain's
// native coin (BNB, ETH, ...) on either side of a swap.
const NativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Credentials holds the aggregator API key material and the wallet private key.
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
	PrivateKey string
}

// Complete reports whether every credential field is set.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.Passphrase != "" && c.PrivateKey != ""
}

// ChainContext identifies the chain a single operation runs against.
type ChainContext struct {
	RPCURL  string
	ChainID int64
}

// Quote is the aggregator's pricing answer for one swap direction.
type Quote struct {
	ChainID         string
	FromToken       string
	ToToken         string
	FromTokenSymbol string
	ToTokenSymbol   string
	FromAmount      string
	ToAmount        string
	PriceImpactPct  string
	RouteDexName    string
	RawResponse     []byte
}

// SwapTransaction is the raw transaction payload extracted from a swap
// response. Each payload is valid for a single on-chain use; the amounts and
// deadlines embedded in Data go stale after that.
type SwapTransaction struct {
	To      string
	Data    string
	Value   *big.Int
	GasHint uint64
}

// SubmittedTx is the terminal record of a broadcast transaction.
type SubmittedTx struct {
	Hash    string
	Success bool
	GasUsed uint64
}

// BuyParams carries the caller-supplied inputs for a buy operation.
type BuyParams struct {
	TokenAddress    string
	AmountNative    string
	SlippagePercent string
	Chain           ChainContext
}

// SellParams carries the caller-supplied inputs for a sell operation.
type SellParams struct {
	TokenAddress    string
	RatioPercent    string
	SlippagePercent string
	Chain           ChainContext
}
