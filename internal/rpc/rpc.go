package rpc

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/iqbalbaharum/go-pool-sniper/internal/coder"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
)

var (
	ErrAccountNotFound     = errors.New("rpc: account not found")
	ErrReverted            = errors.New("rpc: transaction reverted")
	ErrConfirmationTimeout = errors.New("rpc: confirmation deadline exceeded")
)

type ConfirmationStatus string

const (
	Confirmed ConfirmationStatus = "CONFIRMED"
	Reverted  ConfirmationStatus = "REVERTED"
	TimedOut  ConfirmationStatus = "TIMED_OUT"
)

type RequestBody struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type ResponseBody struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type AccountInfo struct {
	Value *AccountInfoValue `json:"value"`
}

type AccountInfoValue struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
}

type BlockhashResult struct {
	Value BlockhashValue `json:"value"`
}

type BlockhashValue struct {
	Blockhash string `json:"blockhash"`
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

type prioritizationFee struct {
	Slot              uint64 `json:"slot"`
	PrioritizationFee uint64 `json:"prioritizationFee"`
}

type signatureStatusResult struct {
	Value []*signatureStatus `json:"value"`
}

type signatureStatus struct {
	Slot               uint64          `json:"slot"`
	Confirmations      *uint64         `json:"confirmations"`
	Err                json.RawMessage `json:"err"`
	ConfirmationStatus string          `json:"confirmationStatus"`
}

// Client is the JSON-RPC chain collaborator.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) CallRPC(method string, params interface{}) (*ResponseBody, error) {
	requestBody := RequestBody{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
	default:
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var responseBody ResponseBody
	if err := json.Unmarshal(body, &responseBody); err != nil {
		return nil, err
	}

	if responseBody.Error != nil {
		return nil, errors.New(responseBody.Error.Message)
	}

	return &responseBody, nil
}

func (c *Client) GetAccountInfo(publicKey solana.PublicKey) (*AccountInfo, error) {
	reqParams := []interface{}{
		publicKey,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": "confirmed",
		},
	}

	response, err := c.CallRPC("getAccountInfo", reqParams)
	if err != nil {
		return nil, err
	}

	var accountInfo AccountInfo
	if err := json.Unmarshal(response.Result, &accountInfo); err != nil {
		return nil, err
	}

	return &accountInfo, nil
}

// GetAccountData returns the raw account bytes, base64-decoded.
func (c *Client) GetAccountData(publicKey solana.PublicKey) ([]byte, error) {
	info, err := c.GetAccountInfo(publicKey)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil || len(info.Value.Data) == 0 {
		return nil, ErrAccountNotFound
	}
	return base64.StdEncoding.DecodeString(info.Value.Data[0])
}

func (c *Client) GetBalance(publicKey solana.PublicKey) (uint64, error) {
	reqParams := []interface{}{
		publicKey,
		map[string]interface{}{"commitment": "confirmed"},
	}

	response, err := c.CallRPC("getBalance", reqParams)
	if err != nil {
		return 0, err
	}

	var balance balanceResult
	if err := json.Unmarshal(response.Result, &balance); err != nil {
		return 0, err
	}

	return balance.Value, nil
}

// GetTokenAccountBalance returns a token account's raw amount.
func (c *Client) GetTokenAccountBalance(account solana.PublicKey) (uint64, error) {
	reqParams := []interface{}{
		account,
		map[string]interface{}{"commitment": "confirmed"},
	}

	response, err := c.CallRPC("getTokenAccountBalance", reqParams)
	if err != nil {
		return 0, err
	}

	var result struct {
		Value struct {
			Amount string `json:"amount"`
		} `json:"value"`
	}
	if err := json.Unmarshal(response.Result, &result); err != nil {
		return 0, err
	}

	return strconv.ParseUint(result.Value.Amount, 10, 64)
}

func (c *Client) GetLatestBlockhash() (solana.Hash, error) {
	params := []interface{}{
		map[string]interface{}{"commitment": "confirmed"},
	}

	response, err := c.CallRPC("getLatestBlockhash", params)
	if err != nil {
		return solana.Hash{}, err
	}

	var result BlockhashResult
	if err := json.Unmarshal(response.Result, &result); err != nil {
		return solana.Hash{}, err
	}

	return solana.HashFromBase58(result.Value.Blockhash)
}

// GetPriorityFee returns the highest recent prioritization fee observed on
// chain, in micro-lamports per compute unit.
func (c *Client) GetPriorityFee() (uint64, error) {
	response, err := c.CallRPC("getRecentPrioritizationFees", []interface{}{})
	if err != nil {
		return 0, err
	}

	var fees []prioritizationFee
	if err := json.Unmarshal(response.Result, &fees); err != nil {
		return 0, err
	}

	var max uint64
	for _, f := range fees {
		if f.PrioritizationFee > max {
			max = f.PrioritizationFee
		}
	}
	return max, nil
}

func (c *Client) SendTransaction(transaction *solana.Transaction) (string, error) {
	msg, err := transaction.MarshalBinary()
	if err != nil {
		return "", err
	}
	txBase64 := base64.StdEncoding.EncodeToString(msg)

	params := []interface{}{
		txBase64,
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       true,
			"maxRetries":          1,
			"preflightCommitment": "confirmed",
		},
	}

	response, err := c.CallRPC("sendTransaction", params)
	if err != nil {
		return "", err
	}

	var signature string
	if err := json.Unmarshal(response.Result, &signature); err != nil {
		return "", err
	}

	return signature, nil
}

// AwaitConfirmation polls signature status until the transaction confirms,
// reverts, or the timeout passes. A timeout is reported as TimedOut with
// ErrConfirmationTimeout; a late confirmation after that is the caller's
// reconciliation problem.
func (c *Client) AwaitConfirmation(ctx context.Context, signature string, timeout time.Duration) (ConfirmationStatus, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TimedOut, ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			return TimedOut, ErrConfirmationTimeout
		}

		params := []interface{}{
			[]string{signature},
			map[string]interface{}{"searchTransactionHistory": false},
		}
		response, err := c.CallRPC("getSignatureStatuses", params)
		if err != nil {
			continue
		}

		var result signatureStatusResult
		if err := json.Unmarshal(response.Result, &result); err != nil {
			continue
		}
		if len(result.Value) == 0 || result.Value[0] == nil {
			continue
		}

		status := result.Value[0]
		if len(status.Err) > 0 && string(status.Err) != "null" {
			return Reverted, fmt.Errorf("%w: %s", ErrReverted, status.Err)
		}
		if status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized" {
			return Confirmed, nil
		}
	}
}

func (c *Client) GetLookupTable(addr solana.PublicKey) (addresslookuptable.AddressLookupTableState, error) {
	data, err := c.GetAccountData(addr)
	if err != nil {
		return addresslookuptable.AddressLookupTableState{}, err
	}

	var lookupTableState addresslookuptable.AddressLookupTableState
	if err := lookupTableState.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return addresslookuptable.AddressLookupTableState{}, err
	}

	return lookupTableState, nil
}

func (c *Client) GetLiquidityState(ammId solana.PublicKey) (*coder.LiquidityState, error) {
	data, err := c.GetAccountData(ammId)
	if err != nil {
		return nil, err
	}

	state, err := coder.NewRaydiumLiquidityCoder().RaydiumLiquidityDecode(data)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (c *Client) GetMarketState(marketId solana.PublicKey) (*coder.MarketStateLayoutV3, error) {
	data, err := c.GetAccountData(marketId)
	if err != nil {
		return nil, err
	}

	state, err := coder.NewRaydiumMarketCoder().RaydiumMarketDecode(data)
	if err != nil {
		return nil, err
	}

	return &state, nil
}

func (c *Client) GetBondingCurveState(curve solana.PublicKey) (*types.BondingCurveState, error) {
	data, err := c.GetAccountData(curve)
	if err != nil {
		return nil, err
	}

	state, err := coder.NewBondingCurveCoder().Decode(data)
	if err != nil {
		return nil, err
	}

	return &state, nil
}
