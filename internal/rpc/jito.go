package rpc

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

type JitoRequestBody struct {
	Jsonrpc string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type JitoResponseBody struct {
	Jsonrpc string             `json:"jsonrpc"`
	ID      int                `json:"id"`
	Result  json.RawMessage    `json:"result,omitempty"`
	Error   *JitoErrorResponse `json:"error,omitempty"`
}

type JitoErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JitoClient submits signed transactions through a Jito block engine.
type JitoClient struct {
	url        string
	httpClient *http.Client
}

func NewJitoClient(url string) *JitoClient {
	return &JitoClient{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (j *JitoClient) Submit(transaction *solana.Transaction) (string, error) {
	msg, err := transaction.MarshalBinary()
	if err != nil {
		return "", err
	}

	base58Msg := base58.Encode(msg)
	requestBody := JitoRequestBody{
		Jsonrpc: "2.0",
		ID:      1,
		Method:  "sendTransaction",
		Params:  []interface{}{base58Msg},
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err = gzipWriter.Write(reqBody); err != nil {
		return "", err
	}
	gzipWriter.Close()

	url := fmt.Sprintf("%s/api/v1/transactions", j.url)
	req, err := http.NewRequest("POST", url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var responseBody JitoResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return "", err
	}

	if responseBody.Error != nil {
		return "", errors.New(responseBody.Error.Message)
	}

	var signature string
	if err := json.Unmarshal(responseBody.Result, &signature); err != nil {
		return "", err
	}

	return signature, nil
}
