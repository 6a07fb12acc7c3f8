package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
	"github.com/sheikh-saqib/banking-ledger-core/internal/report"
	"github.com/shopspring/decimal"
)

var errBadAccountNo = errors.New("account number must be a positive integer")

type createAccountRequest struct {
	AccountNo     int64  `json:"account_no"`
	Owner         string `json:"owner"`
	AccountTypeID int64  `json:"account_type_id"`
	Gender        string `json:"gender"`
	BirthDate     string `json:"birth_date"` // YYYY-MM-DD, optional
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	ToAccount int64           `json:"to_account"`
	Amount    decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	AccountNo int64           `json:"account_no"`
	Balance   decimal.Decimal `json:"balance"`
}

type transactionsResponse struct {
	AccountNo    int64                `json:"account_no"`
	Transactions []models.Transaction `json:"transactions"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	if req.AccountNo < s.minAccountNo {
		writeErr(w, fmt.Errorf("account_no %d is below the first account number %d", req.AccountNo, s.minAccountNo), http.StatusBadRequest)
		return
	}
	a, err := models.NewAccount(req.AccountNo, req.Owner, models.AccountType{ID: req.AccountTypeID})
	if err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return
	}
	a.Gender = req.Gender
	if req.BirthDate != "" {
		if a.BirthDate, err = time.Parse("2006-01-02", req.BirthDate); err != nil {
			writeErr(w, fmt.Errorf("invalid birth_date %q", req.BirthDate), http.StatusBadRequest)
			return
		}
	}

	if err := s.accounts.CreateAccount(r.Context(), a); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.ledger.Account(r.Context(), a.No)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("account opened", "account_no", created.No, "type", created.Type.Name)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	a, err := s.ledger.Account(r.Context(), no)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	balance, err := s.ledger.Balance(r.Context(), no)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountNo: no, Balance: balance})
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	res, err := s.ledger.Deposit(r.Context(), no, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	res, err := s.ledger.Withdraw(r.Context(), no, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	from, ok := accountNo(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return
	}
	res, err := s.ledger.Transfer(r.Context(), from, req.ToAccount, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	txs, err := report.Collect(s.reports.ListTransactions(r.Context(), no, rng))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactionsResponse{AccountNo: no, Transactions: txs})
}

func (s *Server) statement(w http.ResponseWriter, r *http.Request) {
	no, ok := accountNo(w, r)
	if !ok {
		return
	}
	rng, ok := dateRange(w, r)
	if !ok {
		return
	}
	st, err := s.reports.Statement(r.Context(), no, rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// fail writes err with its mapped status. Server-side failures are logged
// and their detail is kept out of the response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErr(w, errors.New(http.StatusText(code)), code)
		return
	}
	writeErr(w, err, code)
}

func accountNo(w http.ResponseWriter, r *http.Request) (int64, bool) {
	no, err := strconv.ParseInt(chi.URLParam(r, "accountNo"), 10, 64)
	if err != nil || no <= 0 {
		writeErr(w, errBadAccountNo, http.StatusBadRequest)
		return 0, false
	}
	return no, true
}

func dateRange(w http.ResponseWriter, r *http.Request) (models.DateRange, bool) {
	q := r.URL.Query()
	rng, err := models.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeErr(w, err, http.StatusBadRequest)
		return models.DateRange{}, false
	}
	return rng, true
}
