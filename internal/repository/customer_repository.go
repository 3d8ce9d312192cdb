package repository

import (
	"context"
	"fmt"

	"order_manager/internal/models"
	"order_manager/internal/store"
)

type CustomerListFilter struct {
	Page
	Search string
}

type CustomerRepository interface {
	// GetActive returns a customer that has not been soft-deleted.
	GetActive(ctx context.Context, id uint) (*models.Customer, error)
	// GetByIDs includes soft-deleted customers; orders keep pointing at them.
	GetByIDs(ctx context.Context, ids []uint) ([]models.Customer, error)
	// FindActiveBy looks up a non-deleted customer by a unique column,
	// ignoring excludeID.
	FindActiveBy(ctx context.Context, column, value string, excludeID uint) (*models.Customer, error)
	List(ctx context.Context, filter CustomerListFilter) ([]models.Customer, int64, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, id uint, patch map[string]interface{}) error
	SoftDelete(ctx context.Context, id uint) (bool, error)
	Delete(ctx context.Context, id uint) (bool, error)
}

type customerRepository struct {
	store store.Store
}

func NewCustomerRepository(s store.Store) CustomerRepository {
	return &customerRepository{store: s}
}

func (r *customerRepository) GetActive(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.store.FindOne(ctx, &customer, store.Eq("id", id), store.IsNull("deleted_at")); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Customer, error) {
	var customers []models.Customer
	if _, err := r.store.Find(ctx, &customers, store.Query{Filters: []store.Filter{store.In("id", ids)}}); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) FindActiveBy(ctx context.Context, column, value string, excludeID uint) (*models.Customer, error) {
	var customers []models.Customer
	_, err := r.store.Find(ctx, &customers, store.Query{
		Filters: []store.Filter{store.Eq(column, value), store.IsNull("deleted_at")},
		Limit:   2,
	})
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if customers[i].ID != excludeID {
			return &customers[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *customerRepository) List(ctx context.Context, filter CustomerListFilter) ([]models.Customer, int64, error) {
	filters := []store.Filter{store.IsNull("deleted_at")}
	if filter.Search != "" {
		pattern := store.Contains(filter.Search)
		filters = append(filters, store.AnyOf(
			store.ILike("first_name", pattern),
			store.ILike("last_name", pattern),
			store.ILike("email", pattern),
			store.ILike("document_number", pattern),
		))
	}

	var customers []models.Customer
	total, err := r.store.Find(ctx, &customers, store.Query{
		Filters: filters,
		OrderBy: "id desc",
		Limit:   filter.Limit,
		Offset:  filter.offset(),
		Count:   true,
	})
	if err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.store.Insert(ctx, customer)
}

func (r *customerRepository) Update(ctx context.Context, id uint, patch map[string]interface{}) error {
	n, err := r.store.Update(ctx, &models.Customer{}, patch, store.Eq("id", id), store.IsNull("deleted_at"))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("customer %d: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *customerRepository) SoftDelete(ctx context.Context, id uint) (bool, error) {
	n, err := r.store.Update(ctx, &models.Customer{},
		map[string]interface{}{"deleted_at": now()},
		store.Eq("id", id), store.IsNull("deleted_at"))
	return n > 0, err
}

func (r *customerRepository) Delete(ctx context.Context, id uint) (bool, error) {
	n, err := r.store.Delete(ctx, &models.Customer{}, store.Eq("id", id))
	return n > 0, err
}
