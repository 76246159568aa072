package rpc

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
)

type BloxRouteResponse struct {
	Signature string `json:"signature"`
}

// BloxRouteClient submits signed transactions through the bloXroute trader
// API.
type BloxRouteClient struct {
	url           string
	token         string
	useStakedRPCs bool
	httpClient    *http.Client
}

func NewBloxRouteClient(url, token string, useStakedRPCs bool) *BloxRouteClient {
	return &BloxRouteClient{
		url:           url,
		token:         token,
		useStakedRPCs: useStakedRPCs,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BloxRouteClient) Submit(transaction *solana.Transaction) (string, error) {
	msg, err := transaction.MarshalBinary()
	if err != nil {
		return "", err
	}

	requestBody := map[string]interface{}{
		"transaction": map[string]string{
			"content": base64.StdEncoding.EncodeToString(msg),
		},
		"skipPreFlight":          true,
		"frontRunningProtection": false,
		"fastBestEffort":         false,
		"useStakedRPCs":          b.useStakedRPCs,
	}

	var requestBodyBuffer bytes.Buffer
	if err := json.NewEncoder(&requestBodyBuffer).Encode(requestBody); err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", b.url, &requestBodyBuffer)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Authorization", b.token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
	case "deflate":
		reader, err = zlib.NewReader(resp.Body)
	default:
		reader = resp.Body
	}
	if err != nil {
		return "", err
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	var response BloxRouteResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}

	if response.Signature == "" {
		return "", errors.New("no signature returned from bloXroute")
	}

	return response.Signature, nil
}
