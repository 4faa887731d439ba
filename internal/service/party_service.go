package service

import (
	"context"
	"fmt"

	"agencyledger/internal/model"
	"agencyledger/internal/repository"

	"gorm.io/gorm"
)

// PartyService 客户与供应商档案管理（无结算逻辑的薄层）
type PartyService struct {
	db           *gorm.DB
	customerRepo *repository.CustomerRepository
	vendorRepo   *repository.VendorRepository
}

func NewPartyService(db *gorm.DB) *PartyService {
	return &PartyService{
		db:           db,
		customerRepo: repository.NewCustomerRepository(db),
		vendorRepo:   repository.NewVendorRepository(db),
	}
}

type CreatePartyRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (s *PartyService) CreateCustomer(ctx context.Context, req *CreatePartyRequest) (*model.Customer, error) {
	customer := &model.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("创建客户失败: %w", err)
	}
	return customer, nil
}

func (s *PartyService) ListCustomers(ctx context.Context) ([]*model.Customer, error) {
	return s.customerRepo.List(ctx)
}

func (s *PartyService) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

func (s *PartyService) CreateVendor(ctx context.Context, req *CreatePartyRequest) (*model.Vendor, error) {
	vendor := &model.Vendor{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		return nil, fmt.Errorf("创建供应商失败: %w", err)
	}
	return vendor, nil
}

func (s *PartyService) ListVendors(ctx context.Context) ([]*model.Vendor, error) {
	return s.vendorRepo.List(ctx)
}

func (s *PartyService) GetVendor(ctx context.Context, id int64) (*model.Vendor, error) {
	return s.vendorRepo.GetByID(ctx, id)
}
