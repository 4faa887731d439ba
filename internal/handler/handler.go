package handler

import (
	"errors"
	"strconv"
	"time"

	"agencyledger/internal/config"
	"agencyledger/internal/repository"
	"agencyledger/internal/service"
	"agencyledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService *service.AccountService
	partyService   *service.PartyService
	receiptService *service.ReceiptService
	payableService *service.PayableService
	salaryService  *service.SalaryService
	reportService  *service.ReportService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		accountService: service.NewAccountService(db),
		partyService:   service.NewPartyService(db),
		receiptService: service.NewReceiptService(db, rdb, cfg),
		payableService: service.NewPayableService(db, rdb, cfg),
		salaryService:  service.NewSalaryService(db, cfg),
		reportService:  service.NewReportService(db, cfg),
	}
}

// respondError 把服务层错误映射为业务码；未知错误一律按服务器内部错误返回
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, repository.ErrCustomerNotFound):
		response.BusinessError(c, response.CodeCustomerNotFound, err.Error())
	case errors.Is(err, repository.ErrVendorNotFound):
		response.BusinessError(c, response.CodeVendorNotFound, err.Error())
	case errors.Is(err, repository.ErrReceivableNotFound),
		errors.Is(err, repository.ErrPayableNotFound),
		errors.Is(err, repository.ErrSalaryNotFound),
		errors.Is(err, repository.ErrEmployeeNotFound):
		response.BusinessError(c, response.CodeObligationNotFound, err.Error())
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeBalanceNotEnough, err.Error())
	case errors.Is(err, service.ErrDiscountExceedsDue):
		response.BusinessError(c, response.CodeDiscountExceedsDue, err.Error())
	case errors.Is(err, service.ErrPaymentExceedsObligation):
		response.BusinessError(c, response.CodePaymentExceedsObligation, err.Error())
	case errors.Is(err, repository.ErrSalaryStatusInvalid):
		response.BusinessError(c, response.CodeSalaryStatusInvalid, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 账户相关接口
// ============================================================

// CreateAccount 创建资金账户
// POST /api/v1/account/create
func (h *Handler) CreateAccount(c *gin.Context) {
	var req service.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, account)
}

// ListAccounts 账户列表
// GET /api/v1/account/list
func (h *Handler) ListAccounts(c *gin.Context) {
	accounts, err := h.accountService.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": accounts})
}

// RecordEntry 记独立收支
// POST /api/v1/account/entry
func (h *Handler) RecordEntry(c *gin.Context) {
	var req service.RecordEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.accountService.RecordEntry(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, trans)
}

// ListTransactions 流水列表
// GET /api/v1/transaction/list?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.accountService.ListTransactions(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 客户 / 供应商 / 员工档案接口
// ============================================================

// CreateCustomer 创建客户
// POST /api/v1/customer/create
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req service.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	customer, err := h.partyService.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, customer)
}

// ListCustomers 客户列表
// GET /api/v1/customer/list
func (h *Handler) ListCustomers(c *gin.Context) {
	customers, err := h.partyService.ListCustomers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": customers})
}

// CreateVendor 创建供应商
// POST /api/v1/vendor/create
func (h *Handler) CreateVendor(c *gin.Context) {
	var req service.CreatePartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	vendor, err := h.partyService.CreateVendor(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, vendor)
}

// ListVendors 供应商列表
// GET /api/v1/vendor/list
func (h *Handler) ListVendors(c *gin.Context) {
	vendors, err := h.partyService.ListVendors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": vendors})
}

// CreateEmployee 创建员工
// POST /api/v1/employee/create
func (h *Handler) CreateEmployee(c *gin.Context) {
	var req service.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	employee, err := h.salaryService.CreateEmployee(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, employee)
}

// ListEmployees 员工列表
// GET /api/v1/employee/list
func (h *Handler) ListEmployees(c *gin.Context) {
	employees, err := h.salaryService.ListEmployees(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": employees})
}

// ============================================================
// 结算相关接口
// ============================================================

// CustomerPayment 客户付款结算
// POST /api/v1/customer/payment
//
// 【关键点】结算是整个系统最核心的操作，需要保证：
// 1. 原子性：债务冲销、流水落库、账户入账、客户余额调整同时成功或同时失败
// 2. 并发安全：同一客户的结算通过分布式锁串行执行
// 3. 资金守恒：settled + advance == applied，每一分钱都有去向
func (h *Handler) CustomerPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.receiptService.RecordPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// VendorPayment 供应商付款结算
// POST /api/v1/vendor/payment
func (h *Handler) VendorPayment(c *gin.Context) {
	var req service.VendorPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.payableService.RecordPayment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}

// CreateReceivable 新建应收
// POST /api/v1/receivable/create
func (h *Handler) CreateReceivable(c *gin.Context) {
	var req service.CreateReceivableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	row, err := h.receiptService.CreateReceivable(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, row)
}

// ListReceivables 应收列表
// GET /api/v1/receivable/list?customer_id=xxx&status=UNPAID
func (h *Handler) ListReceivables(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customer_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "customer_id 参数错误")
		return
	}

	rows, err := h.receiptService.ListReceivables(c.Request.Context(), customerID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": rows})
}

// CreatePayable 新建应付（可携带首付款）
// POST /api/v1/payable/create
func (h *Handler) CreatePayable(c *gin.Context) {
	var req service.CreatePayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	row, err := h.payableService.CreatePayable(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, row)
}

// UpdatePayable 编辑应付（可补付款、可换供应商）
// POST /api/v1/payable/update
func (h *Handler) UpdatePayable(c *gin.Context) {
	var req service.UpdatePayableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	row, err := h.payableService.UpdatePayable(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, row)
}

// DeletePayable 删除应付
// POST /api/v1/payable/delete
func (h *Handler) DeletePayable(c *gin.Context) {
	var req struct {
		ID int64 `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.payableService.DeletePayable(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "应付已删除"})
}

// ListPayables 应付列表
// GET /api/v1/payable/list?vendor_id=xxx&status=PARTIAL
func (h *Handler) ListPayables(c *gin.Context) {
	vendorID, _ := strconv.ParseInt(c.DefaultQuery("vendor_id", "0"), 10, 64)

	rows, err := h.payableService.ListPayables(c.Request.Context(), vendorID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": rows})
}

// ============================================================
// 工资相关接口
// ============================================================

// CreateSalary 创建工资单
// POST /api/v1/salary/create
func (h *Handler) CreateSalary(c *gin.Context) {
	var req service.CreateSalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	salary, err := h.salaryService.CreateSalary(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, salary)
}

// ListSalaries 工资单列表
// GET /api/v1/salary/list?employee_id=xxx&status=UNPAID
func (h *Handler) ListSalaries(c *gin.Context) {
	employeeID, _ := strconv.ParseInt(c.DefaultQuery("employee_id", "0"), 10, 64)

	rows, err := h.salaryService.ListSalaries(c.Request.Context(), employeeID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"list": rows})
}

// PaySalary 发放工资
// POST /api/v1/salary/pay
func (h *Handler) PaySalary(c *gin.Context) {
	var req service.PaySalaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.salaryService.PaySalary(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "工资发放成功"})
}

// ============================================================
// 报表相关接口
// ============================================================

// GetAging 账龄快照
// GET /api/v1/report/aging?party_type=CUSTOMER&as_of=2025-01-31
func (h *Handler) GetAging(c *gin.Context) {
	partyType := c.Query("party_type")
	if partyType == "" {
		response.ParamError(c, "party_type 参数不能为空")
		return
	}

	asOf := time.Now()
	if s := c.Query("as_of"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			response.ParamError(c, "as_of 参数格式错误，应为 YYYY-MM-DD")
			return
		}
		asOf = t
	}

	snapshot, err := h.reportService.GetAgingSnapshot(c.Request.Context(), partyType, asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, snapshot)
}

// GetReport 综合报表
// GET /api/v1/report/summary?from=2025-01-01&to=2025-06-30&category=&trend_months=6
func (h *Handler) GetReport(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.ParamError(c, "from 参数格式错误，应为 YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.ParamError(c, "to 参数格式错误，应为 YYYY-MM-DD")
		return
	}
	trendMonths, _ := strconv.Atoi(c.DefaultQuery("trend_months", "6"))

	snapshot, err := h.reportService.GetReportSnapshot(c.Request.Context(), &service.ReportRequest{
		From:        from,
		To:          to,
		Category:    c.Query("category"),
		TrendMonths: trendMonths,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, snapshot)
}
