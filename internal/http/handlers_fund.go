package http

import (
	"net/http"

	"envelope/internal/core"
	"envelope/internal/services"
)

func (s *Server) handleCalculateFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	calc, err := s.funds.CalculateFund(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

type combineRequest struct {
	TargetFundID int64 `json:"target_fund_id"`
}

// handleCombineFunds merges the target fund's family into {id}'s master.
func (s *Server) handleCombineFunds(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req combineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.funds.Combine(r.Context(), id, req.TargetFundID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type unlinkRequest struct {
	KeepAmount core.Money `json:"keep_amount"`
}

func (s *Server) handleUnlinkFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req unlinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.funds.Unlink(r.Context(), id, req.KeepAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMasterDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	details, err := s.funds.MasterDetails(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type addMonthRequest struct {
	Month     int         `json:"month"`
	Year      int         `json:"year"`
	Priority  int         `json:"priority"`
	Increment core.Money  `json:"increment"`
	Max       *core.Money `json:"max"`
}

func (s *Server) handleAddMonthToMaster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req addMonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.funds.AddMonthToMaster(r.Context(), id, req.Month, req.Year, req.Priority, req.Increment, req.Max)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type discontinueRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (s *Server) handleDiscontinueMaster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req discontinueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.funds.Discontinue(r.Context(), id, req.Month, req.Year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOrphanedMasters(w http.ResponseWriter, r *http.Request) {
	month, year, err := queryPeriod(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	orphans, err := s.funds.Orphans(r.Context(), month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if orphans == nil {
		orphans = []services.OrphanedMaster{}
	}
	writeJSON(w, http.StatusOK, orphans)
}
