package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lapakbot/lapak/internal/store"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Customer  string `json:"customer"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, licenseID string) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Customer == "" {
		writeError(w, http.StatusBadRequest, "customer is required")
		return
	}

	reply, err := s.orchestrator.HandleMessage(r.Context(), licenseID, req.SessionID, req.Message, req.Customer)
	if err != nil {
		s.logger.Error().Err(err).Str("license_id", licenseID).Msg("Chat turn failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request, licenseID string) {
	page, limit := pageParams(r)
	sessions, pagination, err := s.store.ListSessions(r.Context(), licenseID, page, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: sessions, Pagination: pagination})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request, licenseID string) {
	page, limit := pageParams(r)
	messages, pagination, err := s.store.SessionMessages(r.Context(), licenseID, r.PathValue("id"), page, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: messages, Pagination: pagination})
}

type agentRequest struct {
	Name     *string `json:"name"`
	Behavior *string `json:"behavior"`
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request, licenseID string) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, behavior := "", ""
	if req.Name != nil {
		name = *req.Name
	}
	if req.Behavior != nil {
		behavior = *req.Behavior
	}

	agent, err := s.store.CreateAgent(r.Context(), licenseID, name, behavior)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request, licenseID string) {
	page, limit := pageParams(r)
	agents, pagination, err := s.store.ListAgents(r.Context(), licenseID, page, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: agents, Pagination: pagination})
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request, licenseID string) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := s.store.UpdateAgent(r.Context(), licenseID, r.PathValue("id"), req.Name, req.Behavior)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request, licenseID string) {
	if err := s.store.DeleteAgent(r.Context(), licenseID, r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateAgent(w http.ResponseWriter, r *http.Request, licenseID string) {
	agent, err := s.store.SetActiveAgent(r.Context(), licenseID, r.PathValue("id"))
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type productRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	PriceAmount1000 *int64  `json:"priceAmount1000"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, licenseID string) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := store.NewProduct{}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.PriceAmount1000 != nil {
		p.PriceAmount1000 = *req.PriceAmount1000
	}

	product, err := s.store.CreateProduct(r.Context(), licenseID, p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request, licenseID string) {
	page, limit := pageParams(r)
	products, pagination, err := s.store.ListProducts(r.Context(), licenseID, page, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: products, Pagination: pagination})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request, licenseID string) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := s.store.UpdateProduct(r.Context(), licenseID, r.PathValue("id"), store.UpdateProduct{
		Name:            req.Name,
		Description:     req.Description,
		PriceAmount1000: req.PriceAmount1000,
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request, licenseID string) {
	if err := s.store.DeleteProduct(r.Context(), licenseID, r.PathValue("id")); err != nil {
		s.storeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request, licenseID string) {
	page, limit := pageParams(r)
	orders, pagination, err := s.store.ListOrders(r.Context(), licenseID, page, limit)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagedResponse{Items: orders, Pagination: pagination})
}

type pagedResponse struct {
	Items      any              `json:"items"`
	Pagination store.Pagination `json:"pagination"`
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrAgentNotFound),
		errors.Is(err, store.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrAgentActive):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Store operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return page, limit
}
