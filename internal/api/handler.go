package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
)

// errorResponse is the JSON error envelope returned by all endpoints.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.NewOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.NewErrorDetails("request body is not valid JSON", string(errors.GeneralBadRequestError), ""))
		return
	}

	order, err := s.usecase.PlaceOrder(r.Context(), req)
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	idParam := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, errors.NewErrorDetails("order id must be a positive integer", string(errors.GeneralBadRequestError), "id"))
		return
	}

	order, err := s.usecase.GetOrder(r.Context(), id)
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.usecase.ListOrders(r.Context())
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}

	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.usecase.ListPositions(r.Context())
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	if positions == nil {
		positions = []*domain.Position{}
	}

	s.writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// writeUsecaseError maps usecase error codes to HTTP status codes.
func (s *Server) writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.ErrorCodeEquals(err, errors.OrderValidationError):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.ErrorCodeEquals(err, errors.OrderNotFoundError):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.logger.ErrorContext(r.Context(), err, logger.Field{Key: "path", Value: r.URL.Path})
		s.writeError(w, http.StatusInternalServerError, errors.NewErrorDetails("internal server error", string(errors.GeneralInternalServerError), ""))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if details, ok := err.(*errors.ErrorDetails); ok {
		resp.Code = details.Code
		resp.Field = details.Field
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error(err, logger.Field{Key: "action", Value: "encode_response"})
	}
}
