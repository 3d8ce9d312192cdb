package services

import (
	"context"
	"errors"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/store"
)

type CustomerInput struct {
	FirstName      string
	LastName       string
	Email          *string
	Phone          *string
	DocumentType   *string
	DocumentNumber *string
}

// CustomerPatch holds the fields to change on update. Nil means unchanged.
type CustomerPatch struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          *string
	DocumentType   *string
	DocumentNumber *string
}

type CustomerService interface {
	ListCustomers(ctx context.Context, filter repository.CustomerListFilter) ([]models.Customer, Pagination, error)
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, id uint, patch CustomerPatch) (*models.Customer, error)
	SoftDeleteCustomer(ctx context.Context, id uint) error
	HardDeleteCustomer(ctx context.Context, id uint) error
}

type customerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) CustomerService {
	return &customerService{customers: customers}
}

func (s *customerService) ListCustomers(ctx context.Context, filter repository.CustomerListFilter) ([]models.Customer, Pagination, error) {
	filter.Page = NormalizePage(filter.Page)
	customers, total, err := s.customers.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, storeErr("error fetching customers", err)
	}
	return customers, newPagination(filter.Page, total), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.customers.GetActive(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, storeErr("error fetching customer", err)
	}
	return customer, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	if err := s.checkUnique(ctx, in.Email, in.DocumentNumber, 0); err != nil {
		return nil, err
	}
	customer := &models.Customer{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          in.Email,
		Phone:          in.Phone,
		DocumentType:   in.DocumentType,
		DocumentNumber: in.DocumentNumber,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, storeErr("error creating customer", err)
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uint, patch CustomerPatch) (*models.Customer, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, patch.Email, patch.DocumentNumber, id); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	set := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	set("first_name", patch.FirstName)
	set("last_name", patch.LastName)
	set("email", patch.Email)
	set("phone", patch.Phone)
	set("document_type", patch.DocumentType)
	set("document_number", patch.DocumentNumber)

	if len(fields) > 0 {
		if err := s.customers.Update(ctx, id, fields); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrCustomerNotFound
			}
			return nil, storeErr("error updating customer", err)
		}
	}
	return s.GetCustomer(ctx, id)
}

func (s *customerService) SoftDeleteCustomer(ctx context.Context, id uint) error {
	deleted, err := s.customers.SoftDelete(ctx, id)
	if err != nil {
		return storeErr("error soft deleting customer", err)
	}
	if !deleted {
		return ErrCustomerNotFound
	}
	return nil
}

func (s *customerService) HardDeleteCustomer(ctx context.Context, id uint) error {
	deleted, err := s.customers.Delete(ctx, id)
	if err != nil {
		return storeErr("error hard deleting customer", err)
	}
	if !deleted {
		return ErrCustomerNotFound
	}
	return nil
}

// checkUnique rejects an email or document number already used by another
// non-deleted customer.
func (s *customerService) checkUnique(ctx context.Context, email, document *string, excludeID uint) error {
	checks := []struct {
		column string
		value  *string
		dup    error
	}{
		{"email", email, ErrDuplicateEmail},
		{"document_number", document, ErrDuplicateDocument},
	}
	for _, c := range checks {
		if c.value == nil || *c.value == "" {
			continue
		}
		_, err := s.customers.FindActiveBy(ctx, c.column, *c.value, excludeID)
		if err == nil {
			return c.dup
		}
		if !errors.Is(err, store.ErrNotFound) {
			return storeErr("error checking customer "+c.column, err)
		}
	}
	return nil
}
