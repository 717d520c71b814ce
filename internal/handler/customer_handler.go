package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/internal/pkg/response"
	"github.com/chowfast/chowfast-api/internal/service"
)

// CustomerStore is the customer use-case surface used by CustomerHandler.
type CustomerStore interface {
	Create(ctx context.Context, in service.CreateCustomerInput) (*entity.Customer, error)
	Get(ctx context.Context, customerID string) (*entity.Customer, error)
	List(ctx context.Context, limit, offset int) (*service.CustomerPage, error)
	All(ctx context.Context) ([]entity.Customer, error)
	Update(ctx context.Context, customerID string, in service.UpdateCustomerInput) (*entity.Customer, error)
}

type CustomerHandler struct {
	customers CustomerStore
}

func NewCustomerHandler(customers CustomerStore) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

type createCustomerRequest struct {
	PhoneNumber     string `json:"phone_number"`
	Location        string `json:"location"`
	DeliveryAddress string `json:"delivery_address"`
}

type updateCustomerRequest struct {
	PhoneNumber     *string `json:"phone_number"`
	Location        *string `json:"location"`
	DeliveryAddress *string `json:"delivery_address"`
}

type customerListData struct {
	Customers []entity.Customer `json:"customers"`
	Total     int64             `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

var (
	customerConflictCase = errorCase{apperrors.ErrConflict, http.StatusConflict, "A customer with this phone number already exists.", "phone_taken"}
	customerNotFoundCase = errorCase{apperrors.ErrNotFound, http.StatusNotFound, "Customer not found.", "not_found"}
)

var customerExportHeaders = []string{"Customer ID", "Phone Number", "Location", "Delivery Address", "Created At"}

// Register handles POST /api/v1/customers/register.
func (h *CustomerHandler) Register(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), service.CreateCustomerInput{
		PhoneNumber:     req.PhoneNumber,
		Location:        req.Location,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		respondError(c, err, customerConflictCase)
		return
	}
	c.JSON(http.StatusCreated, response.Success("Customer created successfully.", customer))
}

// List handles GET /api/v1/customers?limit=&offset=.
func (h *CustomerHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, apperrors.NewFieldError("limit", "A valid integer is required."))
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respondError(c, apperrors.NewFieldError("offset", "A valid integer is required."))
		return
	}

	page, err := h.customers.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success("Customers retrieved successfully.", customerListData{
		Customers: page.Customers,
		Total:     page.Total,
		Limit:     page.Limit,
		Offset:    page.Offset,
	}))
}

// Get handles GET /api/v1/customers/:customer_id.
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("customer_id"))
	if err != nil {
		respondError(c, err, customerNotFoundCase)
		return
	}
	c.JSON(http.StatusOK, response.Success("Customer retrieved successfully.", customer))
}

// Update handles PUT /api/v1/customers/:customer_id. Omitted fields are kept.
func (h *CustomerHandler) Update(c *gin.Context) {
	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), c.Param("customer_id"), service.UpdateCustomerInput{
		PhoneNumber:     req.PhoneNumber,
		Location:        req.Location,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		respondError(c, err, customerNotFoundCase, customerConflictCase)
		return
	}
	c.JSON(http.StatusOK, response.Success("Customer updated successfully.", customer))
}

// Export handles GET /api/v1/customers/export?format=csv|xlsx.
func (h *CustomerHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "xlsx")
	if format != "xlsx" && format != "csv" {
		respondError(c, apperrors.NewFieldError("format", "Unsupported export format. Use csv or xlsx."))
		return
	}

	customers, err := h.customers.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	filename := "customers_" + time.Now().Format("2006-01-02")
	if format == "csv" {
		h.exportCSV(c, customers, filename)
		return
	}
	h.exportXLSX(c, customers, filename)
}

func customerRow(cu entity.Customer) []string {
	return []string{
		cu.CustomerID,
		cu.PhoneNumber,
		sanitizeForExcel(cu.Location),
		sanitizeForExcel(cu.DeliveryAddress),
		cu.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *CustomerHandler) exportCSV(c *gin.Context, customers []entity.Customer, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
	c.Status(http.StatusOK)

	// UTF-8 BOM so spreadsheet apps detect the encoding.
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	_ = w.Write(customerExportHeaders)
	for _, cu := range customers {
		_ = w.Write(customerRow(cu))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.WithComponent("customer_export").Errorf("csv write failed: %v", err)
	}
}

func (h *CustomerHandler) exportXLSX(c *gin.Context, customers []entity.Customer, filename string) {
	log := logger.WithComponent("customer_export")

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Customers"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		log.Errorf("rename sheet: %v", err)
		respondError(c, err)
		return
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		log.Errorf("create stream writer: %v", err)
		respondError(c, err)
		return
	}

	if err := sw.SetRow("A1", toCells(customerExportHeaders)); err != nil {
		log.Errorf("write header: %v", err)
		respondError(c, err)
		return
	}
	for i, cu := range customers {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(customerRow(cu))); err != nil {
			log.Errorf("write row %d: %v", i+2, err)
			respondError(c, err)
			return
		}
	}
	if err := sw.Flush(); err != nil {
		log.Errorf("flush: %v", err)
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		log.Errorf("write response: %v", err)
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel neutralises values that a spreadsheet would read as a
// formula.
func sanitizeForExcel(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
