package http

import (
	"net/http"
	"time"

	"envelope/internal/core"
	"envelope/internal/services"
)

type transactionResponse struct {
	ID                int64      `json:"id"`
	Amount            core.Money `json:"amount"`
	Description       string     `json:"description"`
	Payee             string     `json:"payee,omitempty"`
	Date              string     `json:"date"`
	BudgetID          int64      `json:"budget_id"`
	Type              string     `json:"type,omitempty"`
	ExcludeFromBudget bool       `json:"exclude_from_budget"`
	IsSplit           bool       `json:"is_split"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		Amount:            t.Amount,
		Description:       t.Description,
		Payee:             t.Payee,
		Date:              t.Date.Format("2006-01-02"),
		BudgetID:          t.BudgetID,
		Type:              string(t.Type),
		ExcludeFromBudget: t.ExcludeFromBudget,
		IsSplit:           t.IsSplit,
	}
}

type createTransactionRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Payee       string     `json:"payee"`
	Date        string     `json:"date"` // YYYY-MM-DD
	BudgetID    int64      `json:"budget_id"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeServiceError(w, core.Validationf("invalid date %q, want YYYY-MM-DD", req.Date))
			return
		}
	}

	txn, err := s.txns.CreateTransaction(r.Context(), services.CreateTransactionRequest{
		Amount:      req.Amount,
		Description: req.Description,
		Payee:       req.Payee,
		Date:        date,
		BudgetID:    req.BudgetID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(txn))
}

type assignTransactionRequest struct {
	BudgetID int64 `json:"budget_id"` // 0 unassigns
}

func (s *Server) handleAssignTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req assignTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.txns.AssignToBudget(r.Context(), id, req.BudgetID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type markTypeRequest struct {
	Type              string `json:"type"`
	ExcludeFromBudget bool   `json:"exclude_from_budget"`
}

func (s *Server) handleMarkTransactionType(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req markTypeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.txns.MarkType(r.Context(), id, core.TransactionType(req.Type), req.ExcludeFromBudget); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type breakdownItemRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	BudgetID    int64      `json:"budget_id"`
}

type createBreakdownRequest struct {
	Items []breakdownItemRequest `json:"items"`
}

type lineItemResponse struct {
	ID            int64      `json:"id"`
	TransactionID int64      `json:"transaction_id"`
	Amount        core.Money `json:"amount"`
	Description   string     `json:"description,omitempty"`
	BudgetID      int64      `json:"budget_id"`
}

func (s *Server) handleCreateBreakdown(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req createBreakdownRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	items := make([]services.BreakdownItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.BreakdownItem{
			Amount:      it.Amount,
			Description: it.Description,
			BudgetID:    it.BudgetID,
		})
	}

	created, err := s.txns.CreateBreakdown(r.Context(), id, items)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]lineItemResponse, 0, len(created))
	for _, li := range created {
		out = append(out, lineItemResponse{
			ID:            li.ID,
			TransactionID: li.TransactionID,
			Amount:        li.Amount,
			Description:   li.Description,
			BudgetID:      li.BudgetID,
		})
	}
	writeJSON(w, http.StatusCreated, out)
}

type updateLineItemRequest struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	BudgetID    int64      `json:"budget_id"`
}

func (s *Server) handleUpdateLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req updateLineItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	err = s.txns.UpdateLineItem(r.Context(), core.LineItem{
		ID:          id,
		Amount:      req.Amount,
		Description: req.Description,
		BudgetID:    req.BudgetID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLineItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.txns.DeleteLineItem(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
