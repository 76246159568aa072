package handler

import (
	"net/http"

	"github.com/iqbalbaharum/go-pool-sniper/internal/types"
	"github.com/iqbalbaharum/go-pool-sniper/internal/utils"
)

func (s *Server) GetPositions(w http.ResponseWriter, r *http.Request) {
	s.writePositions(w, r, s.positions.GetAll)
}

func (s *Server) GetOpenPositions(w http.ResponseWriter, r *http.Request) {
	s.writePositions(w, r, s.positions.GetOpen)
}

func (s *Server) writePositions(w http.ResponseWriter, r *http.Request, load func() ([]types.Position, error)) {
	ctx := r.Context()
	positions, err := load()
	if err != nil {
		select {
		case <-ctx.Done():
			http.Error(w, ErrTimeout, http.StatusGatewayTimeout)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, toPositionView(p))
	}
	utils.Encode(w, r, http.StatusOK, views)
}
