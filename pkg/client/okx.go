package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sky887766/SwapHelper/pkg/types"
)

const (
	// DefaultBaseURL is the aggregator host.
	DefaultBaseURL = "https://www.okx.com"

	quoteEndpoint   = "/api/v5/dex/aggregator/quote"
	swapEndpoint    = "/api/v5/dex/aggregator/swap"
	approveEndpoint = "/api/v5/dex/aggregator/approve-transaction"
)

// Client talks to the aggregator's quote/swap/approve REST API, signing every
// request with the credential set.
type Client struct {
	baseURL    string
	creds      types.Credentials
	userAddr   string
	httpClient *http.Client
}

// NewClient creates an aggregator client for one account address.
func NewClient(creds types.Credentials, userAddr string) *Client {
	return &Client{
		baseURL:  DefaultBaseURL,
		creds:    creds,
		userAddr: userAddr,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetBaseURL overrides the aggregator host, mainly for tests.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimSuffix(baseURL, "/")
}

// envelope is the aggregator's common response wrapper. A code of "0" means
// success; anything else is an application error.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tokenInfo struct {
	TokenContractAddress string `json:"tokenContractAddress"`
	TokenSymbol          string `json:"tokenSymbol"`
	Decimal              string `json:"decimal"`
}

type quoteCompare struct {
	DexName   string `json:"dexName"`
	AmountOut string `json:"amountOut"`
}

type quoteData struct {
	ChainID               string         `json:"chainId"`
	FromToken             tokenInfo      `json:"fromToken"`
	ToToken               tokenInfo      `json:"toToken"`
	FromTokenAmount       string         `json:"fromTokenAmount"`
	ToTokenAmount         string         `json:"toTokenAmount"`
	PriceImpactPercentage string         `json:"priceImpactPercentage"`
	QuoteCompareList      []quoteCompare `json:"quoteCompareList"`
}

type swapTxData struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Data     string `json:"data"`
}

type swapData struct {
	Tx swapTxData `json:"tx"`
}

type approveData struct {
	DexContractAddress string `json:"dexContractAddress"`
	Data               string `json:"data"`
	GasLimit           string `json:"gasLimit"`
}

// GetQuote fetches a swap quote for the given direction and amount.
// slippage is a fraction (0.005 for 0.5%), amount is in base units.
func (c *Client) GetQuote(ctx context.Context, fromToken, toToken, slippage, amount string, chainID int64) (*types.Quote, error) {
	params := map[string]string{
		"chainId":          strconv.FormatInt(chainID, 10),
		"fromTokenAddress": fromToken,
		"toTokenAddress":   toToken,
		"amount":           amount,
		"slippage":         slippage,
		"userAddr":         c.userAddr,
	}

	raw, env, err := c.get(ctx, quoteEndpoint, params)
	if err != nil {
		return nil, err
	}

	var data []quoteData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, types.WrapError(types.ErrTransport, err, "malformed quote data")
	}
	if len(data) == 0 {
		return nil, types.NewError(types.ErrAPI, "quote response contains no routes")
	}

	q := data[0]
	quote := &types.Quote{
		ChainID:         q.ChainID,
		FromToken:       q.FromToken.TokenContractAddress,
		ToToken:         q.ToToken.TokenContractAddress,
		FromTokenSymbol: q.FromToken.TokenSymbol,
		ToTokenSymbol:   q.ToToken.TokenSymbol,
		FromAmount:      q.FromTokenAmount,
		ToAmount:        q.ToTokenAmount,
		PriceImpactPct:  q.PriceImpactPercentage,
		RawResponse:     raw,
	}

	// The aggregator has already ranked the route-compare list; the first
	// entry is the execution DEX.
	if len(q.QuoteCompareList) > 0 {
		quote.RouteDexName = q.QuoteCompareList[0].DexName
	}

	return quote, nil
}

// BuildSwap requests the executable transaction payload for a quote.
func (c *Client) BuildSwap(ctx context.Context, quote *types.Quote, slippage string) (*types.SwapTransaction, error) {
	if quote.RouteDexName == "" {
		return nil, types.NewError(types.ErrAPI, "quote carries no route to execute")
	}

	params := map[string]string{
		"chainId":           quote.ChainID,
		"fromTokenAddress":  quote.FromToken,
		"toTokenAddress":    quote.ToToken,
		"amount":            quote.FromAmount,
		"userWalletAddress": c.userAddr,
		"slippage":          slippage,
		"dexId":             strings.ReplaceAll(quote.RouteDexName, " ", ""),
	}

	_, env, err := c.get(ctx, swapEndpoint, params)
	if err != nil {
		return nil, err
	}

	var data []swapData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, types.WrapError(types.ErrTransport, err, "malformed swap data")
	}
	if len(data) == 0 {
		return nil, types.NewError(types.ErrAPI, "swap response contains no routes")
	}

	tx := data[0].Tx
	value := new(big.Int)
	if tx.Value != "" {
		if _, ok := value.SetString(tx.Value, 10); !ok {
			return nil, types.NewError(types.ErrAPI, "invalid tx value %q", tx.Value)
		}
	}

	gasHint, err := strconv.ParseUint(tx.Gas, 10, 64)
	if err != nil {
		return nil, types.WrapError(types.ErrAPI, err, "invalid gas hint %q", tx.Gas)
	}

	return &types.SwapTransaction{
		To:      tx.To,
		Data:    tx.Data,
		Value:   value,
		GasHint: gasHint,
	}, nil
}

// ApproveTransaction describes the approval template the aggregator returns
// for a token; its DexContractAddress is the spender to approve.
type ApproveTransaction struct {
	Spender string
}

// GetApproveTransaction fetches the approval template for a token. The
// spender contract differs per chain and route, so it must come from this
// response rather than a constant.
func (c *Client) GetApproveTransaction(ctx context.Context, tokenAddress string, chainID int64) (*ApproveTransaction, error) {
	params := map[string]string{
		"chainId":              strconv.FormatInt(chainID, 10),
		"tokenContractAddress": tokenAddress,
		"approveAmount":        "10",
	}

	_, env, err := c.get(ctx, approveEndpoint, params)
	if err != nil {
		return nil, err
	}

	var data []approveData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, types.WrapError(types.ErrTransport, err, "malformed approve data")
	}
	if len(data) == 0 {
		return nil, types.NewError(types.ErrAPI, "approve response contains no data")
	}

	return &ApproveTransaction{Spender: data[0].DexContractAddress}, nil
}

// get issues a signed GET request and decodes the response envelope. The
// request path used for signing and the one sent are the same string.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, *envelope, error) {
	fullPath := RequestPath(endpoint, params)
	timestamp := Timestamp()
	signature := Sign(c.creds.APISecret, timestamp, http.MethodGet, fullPath, "")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fullPath, nil)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrTransport, err, "failed to build request")
	}

	req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", signature)
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrTransport, err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrTransport, err, "failed to read response from %s", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, types.NewError(types.ErrTransport, "API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, types.WrapError(types.ErrTransport, err, "malformed response from %s", endpoint)
	}

	// code != "0" is an application-level failure, distinct from transport.
	if env.Code != "0" {
		msg := env.Msg
		if msg == "" {
			msg = fmt.Sprintf("raw response: %s", strings.TrimSpace(string(body)))
		}
		return nil, nil, types.APIError(env.Code, msg)
	}

	return body, &env, nil
}
