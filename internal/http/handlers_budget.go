package http

import (
	"net/http"

	"envelope/internal/core"
	"envelope/internal/services"
)

// budgetView is the wire shape of one envelope with its derived figures.
type budgetView struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Type           core.BudgetKind `json:"type"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	Enabled        bool            `json:"enabled"`
	Fixed          bool            `json:"fixed,omitempty"`
	ExpectedAmount core.Money      `json:"expected_amount"`
	Min            *core.Money     `json:"min,omitempty"`
	Max            *core.Money     `json:"max,omitempty"`
	Priority       int             `json:"priority,omitempty"`
	Increment      core.Money      `json:"increment"`
	MonthAmount    core.Money      `json:"month_amount"`
	MasterID       int64           `json:"master_id,omitempty"`

	TransactionSum          core.Money `json:"transaction_sum"`
	Carryover               core.Money `json:"carryover"`
	AmountAfterTransactions core.Money `json:"amount_after_transactions"`
	MasterBalance           core.Money `json:"master_balance"`
	MasterName              string     `json:"master_name,omitempty"`
}

type monthBudgetsResponse struct {
	Month           int          `json:"month"`
	Year            int          `json:"year"`
	Incomes         []budgetView `json:"incomes"`
	Expenses        []budgetView `json:"expenses"`
	Flexibles       []budgetView `json:"flexibles"`
	Funds           []budgetView `json:"funds"`
	ExpectedBalance core.Money   `json:"expected_balance"`
	ActualBalance   core.Money   `json:"actual_balance"`
}

func toBudgetView(v core.BudgetView) budgetView {
	return budgetView{
		ID:             v.ID,
		Name:           v.Name,
		Type:           v.Kind,
		Month:          v.Month,
		Year:           v.Year,
		Enabled:        v.Enabled,
		Fixed:          v.Fixed,
		ExpectedAmount: v.ExpectedAmount,
		Min:            v.Min,
		Max:            v.Max,
		Priority:       v.Priority,
		Increment:      v.Increment,
		MonthAmount:    v.MonthAmount,
		MasterID:       v.MasterID,

		TransactionSum:          v.TransactionSum,
		Carryover:               v.Carryover,
		AmountAfterTransactions: v.AmountAfterTransactions,
		MasterBalance:           v.MasterBalance,
		MasterName:              v.MasterName,
	}
}

func toBudgetViews(vs []core.BudgetView) []budgetView {
	out := make([]budgetView, 0, len(vs))
	for _, v := range vs {
		out = append(out, toBudgetView(v))
	}
	return out
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	month, year, err := queryPeriod(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	m, err := s.budgets.GetAllBudgets(r.Context(), month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, monthBudgetsResponse{
		Month:           m.Month,
		Year:            m.Year,
		Incomes:         toBudgetViews(m.Incomes),
		Expenses:        toBudgetViews(m.Expenses),
		Flexibles:       toBudgetViews(m.Flexibles),
		Funds:           toBudgetViews(m.Funds),
		ExpectedBalance: m.ExpectedBalance(),
		ActualBalance:   m.ActualBalance(),
	})
}

type createBudgetRequest struct {
	Name           string      `json:"name"`
	Type           string      `json:"type"`
	Month          int         `json:"month"`
	Year           int         `json:"year"`
	Fixed          bool        `json:"fixed"`
	ExpectedAmount core.Money  `json:"expected_amount"`
	Min            *core.Money `json:"min"`
	Max            *core.Money `json:"max"`
	Priority       int         `json:"priority"`
	Increment      core.Money  `json:"increment"`
	MonthAmount    core.Money  `json:"month_amount"`
	MasterID       int64       `json:"master_id"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	b, err := s.budgets.CreateBudget(r.Context(), services.CreateBudgetRequest{
		Name:           req.Name,
		Type:           core.BudgetKind(req.Type),
		Month:          req.Month,
		Year:           req.Year,
		Fixed:          req.Fixed,
		ExpectedAmount: req.ExpectedAmount,
		Min:            req.Min,
		Max:            req.Max,
		Priority:       req.Priority,
		Increment:      req.Increment,
		MonthAmount:    req.MonthAmount,
		MasterID:       req.MasterID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBudgetView(core.BudgetView{Budget: b}))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := s.budgets.DeleteBudget(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetNames(w http.ResponseWriter, r *http.Request) {
	month, year, err := queryPeriod(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	names, err := s.budgets.BudgetNames(r.Context(), month, year)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type applyIncrementsRequest struct {
	Month    int  `json:"month"`
	Year     int  `json:"year"`
	SafeMode bool `json:"safe_mode"`
}

func (s *Server) handleApplyIncrements(w http.ResponseWriter, r *http.Request) {
	var req applyIncrementsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.increments.Apply(r.Context(), req.Month, req.Year, req.SafeMode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type copyBudgetsRequest struct {
	TargetMonth int `json:"target_month"`
	TargetYear  int `json:"target_year"`
	SourceMonth int `json:"source_month"`
	SourceYear  int `json:"source_year"`
}

func (s *Server) handleCopyBudgets(w http.ResponseWriter, r *http.Request) {
	var req copyBudgetsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := s.copier.Copy(r.Context(), req.TargetMonth, req.TargetYear, req.SourceMonth, req.SourceYear)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
