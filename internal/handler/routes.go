package handler

import (
	"math/big"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iqbalbaharum/go-pool-sniper/internal/agent"
	"github.com/iqbalbaharum/go-pool-sniper/internal/bus"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"go.uber.org/zap"
)

const ErrTimeout = "request timed out"

// PositionReader serves the position endpoints.
type PositionReader interface {
	GetAll() ([]types.Position, error)
	GetOpen() ([]types.Position, error)
}

// TradeSearcher serves the trade history endpoint.
type TradeSearcher interface {
	Search(filter types.MySQLFilter) ([]types.Trade, error)
}

// StatsSource exposes the coordinator's run state and counters.
type StatsSource interface {
	Stats() agent.Stats
	Status() types.RunStatus
}

// Server is the operator-facing HTTP surface. Commands go out as bus
// messages; everything else is read-only.
type Server struct {
	bus       *bus.MessageBus
	stats     StatsSource
	positions PositionReader
	trades    TradeSearcher
	logger    *zap.Logger
}

func NewServer(b *bus.MessageBus, stats StatsSource, positions PositionReader, trades TradeSearcher, logger *zap.Logger) *Server {
	return &Server{
		bus:       b,
		stats:     stats,
		positions: positions,
		trades:    trades,
		logger:    logger.Named("http"),
	}
}

func (s *Server) CreateRoutes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Route("/command", func(r chi.Router) {
		r.Post("/pause", s.Pause)
		r.Post("/resume", s.Resume)
		r.Post("/sell/{pool}", s.Sell)
		r.Post("/sellall", s.SellAll)
	})

	r.Get("/stats", s.GetStats)

	r.Route("/positions", func(r chi.Router) {
		r.Get("/", s.GetPositions)
		r.Get("/open", s.GetOpenPositions)
	})

	r.Get("/trade", s.GetTrades)

	return r
}

// positionView flattens big.Int money fields into strings for transport.
type positionView struct {
	ID             string     `json:"id"`
	PoolAddress    string     `json:"poolAddress"`
	TokenAddress   string     `json:"tokenAddress"`
	EntryPrice     string     `json:"entryPrice"`
	AmountInSol    string     `json:"amountInSol"`
	AmountOutToken string     `json:"amountOutToken"`
	TxHash         string     `json:"txHash"`
	OpenedAt       time.Time  `json:"openedAt"`
	Status         string     `json:"status"`
	ExitPrice      string     `json:"exitPrice,omitempty"`
	ExitTxHash     string     `json:"exitTxHash,omitempty"`
	ClosedAt       *time.Time `json:"closedAt,omitempty"`
	FailReason     string     `json:"failReason,omitempty"`
}

func toPositionView(p types.Position) positionView {
	str := func(v *big.Int) string {
		if v == nil {
			return ""
		}
		return v.String()
	}
	return positionView{
		ID:             p.ID,
		PoolAddress:    p.PoolAddress,
		TokenAddress:   p.TokenAddress,
		EntryPrice:     str(p.EntryPrice),
		AmountInSol:    str(p.AmountInSol),
		AmountOutToken: str(p.AmountOutToken),
		TxHash:         p.TxHash,
		OpenedAt:       p.OpenedAt,
		Status:         string(p.Status),
		ExitPrice:      str(p.ExitPrice),
		ExitTxHash:     p.ExitTxHash,
		ClosedAt:       p.ClosedAt,
		FailReason:     p.FailReason,
	}
}
