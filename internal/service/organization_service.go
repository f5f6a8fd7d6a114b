package service

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/giveback/internal/middleware"
	"github.com/mmynk/giveback/internal/models"
	"github.com/mmynk/giveback/internal/storage"
)

// organizationsPerPage is the page size of GET /organizations.
const organizationsPerPage = 10

// OrganizationService serves organizations, their beneficiaries, and the
// inventory sent to them.
type OrganizationService struct {
	store  storage.Store
	logger *slog.Logger
}

// NewOrganizationService creates an OrganizationService with the given storage backend.
func NewOrganizationService(store storage.Store, logger *slog.Logger) *OrganizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrganizationService{store: store, logger: logger}
}

// Register mounts the routes on mux. All of them require a signed-in caller.
func (s *OrganizationService) Register(mux *http.ServeMux, requireAuth func(http.Handler) http.Handler) {
	mux.Handle("POST /organizations", requireAuth(http.HandlerFunc(s.CreateOrganization)))
	mux.Handle("GET /organizations", requireAuth(http.HandlerFunc(s.ListOrganizations)))
	mux.Handle("POST /beneficiaries", requireAuth(http.HandlerFunc(s.CreateBeneficiary)))
	mux.Handle("POST /inventory", requireAuth(http.HandlerFunc(s.CreateInventoryItem)))
}

type createOrganizationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type organizationView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   int64  `json:"created_at"`
}

// CreateOrganization registers an organization owned by the caller.
func (s *OrganizationService) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	org := &models.Organization{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     middleware.GetUserID(r.Context()),
	}
	if err := s.store.CreateOrganization(r.Context(), org); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "owner account no longer exists")
			return
		}
		s.logger.Error("CreateOrganization failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create organization")
		return
	}

	s.logger.Info("Organization created", "organization_id", org.ID, "owner_id", org.OwnerID)
	writeJSON(w, http.StatusCreated, map[string]string{"organization_id": org.ID})
}

type listOrganizationsResponse struct {
	Organizations []organizationView `json:"organizations"`
	Total         int                `json:"total"`
	Page          int                `json:"page"`
}

// ListOrganizations returns one page of organizations, selected with ?page=N
// (1-based).
func (s *OrganizationService) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	orgs, total, err := s.store.ListOrganizations(r.Context(), organizationsPerPage, (page-1)*organizationsPerPage)
	if err != nil {
		s.logger.Error("ListOrganizations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list organizations")
		return
	}

	views := make([]organizationView, len(orgs))
	for i, org := range orgs {
		views[i] = organizationView{
			ID:          org.ID,
			Name:        org.Name,
			Description: org.Description,
			Status:      org.Status,
			OwnerID:     org.OwnerID,
			CreatedAt:   org.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, listOrganizationsResponse{
		Organizations: views,
		Total:         total,
		Page:          page,
	})
}

type createBeneficiaryRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	OrganizationID string `json:"organization_id"`
}

// CreateBeneficiary adds a beneficiary to an organization.
func (s *OrganizationService) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req createBeneficiaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.OrganizationID == "" {
		writeError(w, http.StatusBadRequest, "name and organization_id are required")
		return
	}

	b := &models.Beneficiary{
		Name:           req.Name,
		Description:    req.Description,
		OrganizationID: req.OrganizationID,
	}
	if err := s.store.CreateBeneficiary(r.Context(), b); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		s.logger.Error("CreateBeneficiary failed", "organization_id", req.OrganizationID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create beneficiary")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"beneficiary_id": b.ID})
}

type createInventoryItemRequest struct {
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	BeneficiaryID string `json:"beneficiary_id"`
	DateSent      string `json:"date_sent"`
}

// CreateInventoryItem records goods sent to a beneficiary.
func (s *OrganizationService) CreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req createInventoryItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.BeneficiaryID == "" {
		writeError(w, http.StatusBadRequest, "name and beneficiary_id are required")
		return
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	dateSent, err := time.Parse(time.DateOnly, req.DateSent)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_sent: use YYYY-MM-DD")
		return
	}

	item := &models.InventoryItem{
		Name:          req.Name,
		Quantity:      req.Quantity,
		BeneficiaryID: req.BeneficiaryID,
		DateSent:      dateSent.Unix(),
	}
	if err := s.store.CreateInventoryItem(r.Context(), item); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "beneficiary not found")
			return
		}
		s.logger.Error("CreateInventoryItem failed", "beneficiary_id", req.BeneficiaryID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create inventory item")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"item_id": item.ID})
}
