package handler

import (
	"net/http"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/iqbalbaharum/go-pool-sniper/internal/utils"
)

func (s *Server) GetTrades(w http.ResponseWriter, r *http.Request) {
	filter := types.MySQLFilter{}
	if r.ContentLength > 0 {
		decoded, err := utils.Decode[types.MySQLFilter](r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = decoded
	}

	ctx := r.Context()
	trades, err := s.trades.Search(filter)
	if err != nil {
		select {
		case <-ctx.Done():
			http.Error(w, ErrTimeout, http.StatusGatewayTimeout)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	utils.Encode(w, r, http.StatusOK, trades)
}
