package handler

import (
	"agencyledger/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 资金账户
		account := api.Group("/account")
		{
			account.POST("/create", h.CreateAccount)
			account.GET("/list", h.ListAccounts)
			account.POST("/entry", h.RecordEntry)
		}

		// 客户
		customer := api.Group("/customer")
		{
			customer.POST("/create", h.CreateCustomer)
			customer.GET("/list", h.ListCustomers)
			customer.POST("/payment", h.CustomerPayment)
		}

		// 供应商
		vendor := api.Group("/vendor")
		{
			vendor.POST("/create", h.CreateVendor)
			vendor.GET("/list", h.ListVendors)
			vendor.POST("/payment", h.VendorPayment)
		}

		// 应收
		receivable := api.Group("/receivable")
		{
			receivable.POST("/create", h.CreateReceivable)
			receivable.GET("/list", h.ListReceivables)
		}

		// 应付
		payable := api.Group("/payable")
		{
			payable.POST("/create", h.CreatePayable)
			payable.POST("/update", h.UpdatePayable)
			payable.POST("/delete", h.DeletePayable)
			payable.GET("/list", h.ListPayables)
		}

		// 员工与工资
		employee := api.Group("/employee")
		{
			employee.POST("/create", h.CreateEmployee)
			employee.GET("/list", h.ListEmployees)
		}
		salary := api.Group("/salary")
		{
			salary.POST("/create", h.CreateSalary)
			salary.GET("/list", h.ListSalaries)
			salary.POST("/pay", h.PaySalary)
		}

		// 流水与报表
		api.GET("/transaction/list", h.ListTransactions)
		report := api.Group("/report")
		{
			report.GET("/aging", h.GetAging)
			report.GET("/summary", h.GetReport)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
