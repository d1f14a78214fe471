package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"finsim/internal/domain"
	"finsim/internal/sim"
	"finsim/internal/store"
)

// OwnerHeader carries the demo user identity. Every /api route requires it;
// all reads and writes are scoped to it.
const OwnerHeader = "X-Owner-ID"

type ctxKey int

const ownerKey ctxKey = 0

type Server struct {
	sims         *sim.Service
	accounts     store.AccountRepository
	transactions store.TransactionRepository
	upcoming     store.UpcomingTransactionRepository
	now          func() time.Time
}

func NewServer(sims *sim.Service, accounts store.AccountRepository, transactions store.TransactionRepository, upcoming store.UpcomingTransactionRepository) http.Handler {
	s := &Server{
		sims:         sims,
		accounts:     accounts,
		transactions: transactions,
		upcoming:     upcoming,
		now:          time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireOwner)
		r.Post("/simulations", s.createSimulation)
		r.Get("/simulations", s.listSimulations)
		r.Get("/simulations/{id}", s.getSimulation)
		r.Delete("/products/{productID}/simulation", s.stopSimulation)
		r.Get("/accounts", s.listAccounts)
		r.Get("/accounts/{id}", s.getAccount)
		r.Get("/transactions", s.listTransactions)
		r.Get("/upcoming", s.listUpcoming)
	})

	return r
}

func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			http.Error(w, OwnerHeader+" header is required", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func ownerID(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey).(string)
	return owner
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type createSimulationReq struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
}

// taskView decorates a task with a derived stuck flag so tasks abandoned
// in_progress are visible from the outside.
type taskView struct {
	domain.Task
	Stuck bool `json:"stuck"`
}

func (s *Server) view(t domain.Task) taskView {
	return taskView{
		Task:  t,
		Stuck: t.Status == domain.TaskInProgress && !t.NextProcessTime.After(s.now()),
	}
}

func (s *Server) createSimulation(w http.ResponseWriter, r *http.Request) {
	var req createSimulationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	taskType, err := domain.ParseTaskType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ProductID == "" && taskType != domain.TaskTypeUpcomingProcessing {
		http.Error(w, "product_id is required", http.StatusBadRequest)
		return
	}
	task, err := s.sims.StartSimulation(r.Context(), ownerID(r), req.ProductID, taskType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, s.view(task))
}

func (s *Server) listSimulations(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.sims.ListTasks(r.Context(), ownerID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, s.view(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getSimulation(w http.ResponseWriter, r *http.Request) {
	task, err := s.sims.GetTask(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.view(task))
}

func (s *Server) stopSimulation(w http.ResponseWriter, r *http.Request) {
	err := s.sims.StopSimulation(r.Context(), ownerID(r), chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context(), ownerID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.GetByID(r.Context(), ownerID(r), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := s.transactions.List(r.Context(), ownerID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func (s *Server) listUpcoming(w http.ResponseWriter, r *http.Request) {
	txns, err := s.upcoming.List(r.Context(), ownerID(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
