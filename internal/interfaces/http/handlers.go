package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expensehub/approval-workflow/internal/application/service"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService  service.ExpenseService
	documentService service.DocumentService
	userService     service.UserService
	exportService   service.ExportService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	documentService service.DocumentService,
	userService service.UserService,
	exportService service.ExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService:  expenseService,
		documentService: documentService,
		userService:     userService,
		exportService:   exportService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitTaxReturnRequest is the body for POST /api/tax-returns
type SubmitTaxReturnRequest struct {
	DocumentID           int64   `json:"document_id" binding:"required"`
	SupplierName         string  `json:"supplier_name" binding:"required"`
	TotalAmount          float64 `json:"total_amount" binding:"required"`
	PurchaseDate         string  `json:"purchase_date" binding:"required"`
	Category             string  `json:"category" binding:"required"`
	UserSelectedApproval string  `json:"user_selected_approval" binding:"required"`
	Notes                string  `json:"notes"`
}

// AssignRoleRequest is the body for PUT /api/admin/users/:id/role
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// CreateUserRequest is the body for POST /api/admin/users
type CreateUserRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Role      string `json:"role"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// UploadDocument handles POST /api/documents
func (h *Handlers) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "multipart field 'file' is required",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "could not read uploaded file",
		})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded file", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "could not read uploaded file",
		})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")

	doc, err := h.documentService.Upload(c.Request.Context(), fileHeader.Filename, contentType, content)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: doc})
}

// GetDocument handles GET /api/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	doc, err := h.documentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: doc})
}

// SubmitTaxReturn handles POST /api/tax-returns
func (h *Handlers) SubmitTaxReturn(c *gin.Context) {
	var req SubmitTaxReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	purchaseDate, err := time.Parse("2006-01-02", req.PurchaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "purchase_date must be YYYY-MM-DD",
		})
		return
	}

	input := service.CreateExpenseInput{
		DocumentID:           req.DocumentID,
		SupplierName:         req.SupplierName,
		TotalAmountCents:     utils.AmountToCents(req.TotalAmount),
		PurchaseDate:         purchaseDate,
		Category:             entity.ExpenseCategory(req.Category),
		UserSelectedApproval: entity.ApprovalEntity(req.UserSelectedApproval),
		Notes:                utils.SanitizeString(req.Notes),
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// GetTaxReturn handles GET /api/tax-returns/:id
func (h *Handlers) GetTaxReturn(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// ListTaxReturnsByStatus handles GET /api/tax-returns/status/:status
func (h *Handlers) ListTaxReturnsByStatus(c *gin.Context) {
	status := entity.ExpenseStatus(c.Param("status"))

	expenses, err := h.expenseService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if expenses == nil {
		expenses = []*entity.Expense{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// GetTaxReturnHistory handles GET /api/tax-returns/:id/history
func (h *Handlers) GetTaxReturnHistory(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	history, err := h.expenseService.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if history == nil {
		history = []*entity.ExpenseHistory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// ApproveTaxReturn handles POST /api/tax-returns/:id/approve
func (h *Handlers) ApproveTaxReturn(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Approve(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// RejectTaxReturn handles POST /api/tax-returns/:id/reject
func (h *Handlers) RejectTaxReturn(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Reject(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expense})
}

// ExportApproved handles GET /api/tax-returns/export
func (h *Handlers) ExportApproved(c *gin.Context) {
	workbook, err := h.exportService.ExportApproved(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	filename := "approved-expenses-" + time.Now().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}

// ListUsers handles GET /api/admin/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// CreateUser handles POST /api/admin/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	input := service.CreateUserInput{
		FirstName: utils.SanitizeString(req.FirstName),
		LastName:  utils.SanitizeString(req.LastName),
		Email:     req.Email,
		Role:      entity.Role(req.Role),
	}

	user, err := h.userService.Create(c.Request.Context(), input, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	// The token is returned once at creation time; it is never readable
	// again through the API.
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{
		"user":      user,
		"api_token": user.APIToken,
	}})
}

// AssignRole handles PUT /api/admin/users/:id/role
func (h *Handlers) AssignRole(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
		})
		return
	}

	user, err := h.userService.AssignRole(c.Request.Context(), id, entity.Role(req.Role), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: user})
}

// parseID parses the :id path parameter, writing a 400 response on failure
func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid id",
		})
		return 0, false
	}
	return id, true
}

// respondError maps the domain error taxonomy onto HTTP status codes
func (h *Handlers) respondError(c *gin.Context, err error) {
	var (
		validationErr *entity.ValidationError
		notFoundErr   *entity.NotFoundError
		forbiddenErr  *entity.ForbiddenError
		finalizedErr  *entity.AlreadyFinalizedError
		extractionErr *entity.ExtractionFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: err.Error()})
	case errors.As(err, &finalizedErr):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.As(err, &extractionErr):
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Unhandled error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
