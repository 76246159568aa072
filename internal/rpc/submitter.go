package rpc

import (
	"github.com/gagliardetto/solana-go"
	"github.com/iqbalbaharum/go-pool-sniper/internal/config"
)

// Submitter abstracts where a signed transaction goes. The plain RPC client,
// Jito and bloXroute all satisfy it.
type Submitter interface {
	Submit(transaction *solana.Transaction) (string, error)
}

// Submit makes the plain RPC client a Submitter.
func (c *Client) Submit(transaction *solana.Transaction) (string, error) {
	return c.SendTransaction(transaction)
}

// NewSubmitter picks the configured submission path, falling back to the
// plain RPC client.
func NewSubmitter(cfg *config.Config, client *Client) Submitter {
	switch cfg.Submitter {
	case "jito":
		return NewJitoClient(cfg.JitoUrl)
	case "bloxroute":
		return NewBloxRouteClient(cfg.BloxRouteUrl, cfg.BloxRouteToken, true)
	default:
		return client
	}
}
