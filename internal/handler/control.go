package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/iqbalbaharum/go-pool-sniper/internal/utils"
	"go.uber.org/zap"
)

func (s *Server) Pause(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, types.OperatorCommand{Command: types.CommandPause})
}

func (s *Server) Resume(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, types.OperatorCommand{Command: types.CommandResume})
}

func (s *Server) Sell(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	if pool == "" {
		http.Error(w, "pool address is required", http.StatusBadRequest)
		return
	}
	s.command(w, r, types.OperatorCommand{Command: types.CommandSell, PoolAddress: pool})
}

func (s *Server) SellAll(w http.ResponseWriter, r *http.Request) {
	s.command(w, r, types.OperatorCommand{Command: types.CommandSellAll})
}

// command publishes the operator's intent and acknowledges immediately; the
// coordinator and sniper act on it asynchronously.
func (s *Server) command(w http.ResponseWriter, r *http.Request, cmd types.OperatorCommand) {
	s.logger.Info("operator command",
		zap.String("command", string(cmd.Command)),
		zap.String("pool", cmd.PoolAddress))
	s.bus.Broadcast(types.AgentOperator, cmd)

	utils.Encode(w, r, http.StatusAccepted, map[string]string{
		"command": string(cmd.Command),
		"status":  string(s.stats.Status()),
	})
}

func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	utils.Encode(w, r, http.StatusOK, s.stats.Stats())
}
