package types

// Trade is one swap observed on a tracked pool, recorded for history queries.
type Trade struct {
	PoolAddress  string `json:"poolAddress"`
	Mint         string `json:"mint"`
	Action       string `json:"action"`
	Amount       string `json:"amount"`
	Signature    string `json:"signature"`
	ComputeLimit uint64 `json:"computeLimit"`
	ComputePrice uint64 `json:"computePrice"`
	Signer       string `json:"signer"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp"`
}
