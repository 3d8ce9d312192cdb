package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"order_manager/internal/events"
	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
)

var errStoreDown = errors.New("store unavailable")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paginate[T any](rows []T, p repository.Page) []T {
	start := 0
	if p.Page > 1 {
		start = (p.Page - 1) * p.Limit
	}
	if start >= len(rows) {
		return nil
	}
	end := len(rows)
	if p.Limit > 0 && start+p.Limit < end {
		end = start + p.Limit
	}
	return rows[start:end]
}

// memProducts is an in-memory ProductRepository. The fail* fields inject
// store errors for specific product ids.
type memProducts struct {
	mu            sync.Mutex
	rows          map[uint]*models.Product
	nextID        uint
	failGetByIDs  bool
	failDecrement map[uint]bool
	failIncrement map[uint]bool
}

func newMemProducts() *memProducts {
	return &memProducts{
		rows:          map[uint]*models.Product{},
		nextID:        100,
		failDecrement: map[uint]bool{},
		failIncrement: map[uint]bool{},
	}
}

func (m *memProducts) put(id uint, name string, price int64, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id] = &models.Product{ID: id, Name: name, Price: decimal.NewFromInt(price), Stock: stock}
}

func (m *memProducts) stock(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id].Stock
}

func (m *memProducts) setStock(id uint, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Stock = stock
}

func (m *memProducts) remove(id uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
}

func (m *memProducts) GetByID(_ context.Context, id uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []uint) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGetByIDs {
		return nil, errStoreDown
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := m.rows[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) FindByName(_ context.Context, name string, excludeID uint) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.Name == name && p.ID != excludeID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memProducts) List(_ context.Context, filter repository.ProductListFilter) ([]models.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Product
	for _, p := range m.rows {
		if filter.InStock && p.Stock <= 0 {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		rows = append(rows, *p)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

func (m *memProducts) Create(_ context.Context, product *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	product.ID = m.nextID
	cp := *product
	m.rows[product.ID] = &cp
	return nil
}

func (m *memProducts) Update(_ context.Context, id uint, patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range patch {
		switch k {
		case "name":
			p.Name = v.(string)
		case "price":
			p.Price = v.(decimal.Decimal)
		case "stock":
			p.Stock = v.(int)
		}
	}
	return nil
}

func (m *memProducts) Delete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func (m *memProducts) DecrementStock(_ context.Context, id uint, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDecrement[id] {
		return false, errStoreDown
	}
	p, ok := m.rows[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	return true, nil
}

func (m *memProducts) IncrementStock(_ context.Context, id uint, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrement[id] {
		return false, errStoreDown
	}
	p, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	p.Stock += qty
	return true, nil
}

type memOrders struct {
	mu         sync.Mutex
	rows       map[uint]*models.Order
	nextID     uint
	now        func() time.Time
	failCreate bool
	failUpdate bool
}

func newMemOrders(now func() time.Time) *memOrders {
	return &memOrders{rows: map[uint]*models.Order{}, now: now}
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memOrders) Create(_ context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errStoreDown
	}
	m.nextID++
	order.ID = m.nextID
	order.CreatedAt = m.now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	m.rows[order.ID] = &cp
	return nil
}

func (m *memOrders) GetActive(_ context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok || o.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Get(_ context.Context, id uint) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) active(customerID *uint, status models.OrderStatus, search string) []models.Order {
	var rows []models.Order
	for _, o := range m.rows {
		if o.DeletedAt.Valid {
			continue
		}
		if customerID != nil && o.CustomerID != *customerID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.OrderNumber), strings.ToLower(search)) {
			continue
		}
		rows = append(rows, *o)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return rows
}

func (m *memOrders) List(_ context.Context, filter repository.OrderListFilter) ([]models.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var customerID *uint
	if filter.CustomerID != 0 {
		customerID = &filter.CustomerID
	}
	rows := m.active(customerID, filter.Status, filter.Search)
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

func (m *memOrders) ListActive(_ context.Context, customerID *uint) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active(customerID, "", ""), nil
}

func (m *memOrders) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.rows {
		if !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memOrders) Update(_ context.Context, id uint, patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate {
		return errStoreDown
	}
	o, ok := m.rows[id]
	if !ok || o.DeletedAt.Valid {
		return store.ErrNotFound
	}
	for k, v := range patch {
		switch k {
		case "status":
			o.Status = v.(models.OrderStatus)
		case "notes":
			notes := v.(string)
			o.Notes = &notes
		case "discount":
			o.Discount = v.(decimal.Decimal)
		case "tax":
			o.Tax = v.(decimal.Decimal)
		case "total":
			o.Total = v.(decimal.Decimal)
		case "updated_at":
			o.UpdatedAt = v.(time.Time)
		}
	}
	return nil
}

func (m *memOrders) SoftDelete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.rows[id]
	if !ok || o.DeletedAt.Valid {
		return false, nil
	}
	o.DeletedAt.Time, o.DeletedAt.Valid = m.now(), true
	return true, nil
}

func (m *memOrders) Delete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

type memItems struct {
	mu         sync.Mutex
	rows       []models.OrderItem
	nextID     uint
	failCreate bool
}

func (m *memItems) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memItems) CreateBatch(_ context.Context, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return errStoreDown
	}
	for i := range items {
		m.nextID++
		items[i].ID = m.nextID
		m.rows = append(m.rows, items[i])
	}
	return nil
}

func (m *memItems) GetByOrderID(_ context.Context, orderID uint) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderItem
	for _, item := range m.rows {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *memItems) DeleteByOrderID(_ context.Context, orderID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.rows[:0]
	for _, item := range m.rows {
		if item.OrderID != orderID {
			kept = append(kept, item)
		}
	}
	m.rows = kept
	return nil
}

type memCustomers struct {
	mu     sync.Mutex
	rows   map[uint]*models.Customer
	nextID uint
}

func newMemCustomers() *memCustomers {
	return &memCustomers{rows: map[uint]*models.Customer{}}
}

func (m *memCustomers) put(c models.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.rows[c.ID] = &c
}

func (m *memCustomers) GetActive(_ context.Context, id uint) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.DeletedAt.Valid {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomers) GetByIDs(_ context.Context, ids []uint) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Customer
	for _, id := range ids {
		if c, ok := m.rows[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCustomers) FindActiveBy(_ context.Context, column, value string, excludeID uint) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.DeletedAt.Valid || c.ID == excludeID {
			continue
		}
		var field *string
		switch column {
		case "email":
			field = c.Email
		case "document_number":
			field = c.DocumentNumber
		}
		if field != nil && *field == value {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memCustomers) List(_ context.Context, filter repository.CustomerListFilter) ([]models.Customer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []models.Customer
	for _, c := range m.rows {
		if !c.DeletedAt.Valid {
			rows = append(rows, *c)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })
	return paginate(rows, filter.Page), int64(len(rows)), nil
}

func (m *memCustomers) Create(_ context.Context, customer *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	customer.ID = m.nextID
	cp := *customer
	m.rows[customer.ID] = &cp
	return nil
}

func (m *memCustomers) Update(_ context.Context, id uint, patch map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.DeletedAt.Valid {
		return store.ErrNotFound
	}
	for k, v := range patch {
		s := v.(string)
		switch k {
		case "first_name":
			c.FirstName = s
		case "last_name":
			c.LastName = s
		case "email":
			c.Email = &s
		case "phone":
			c.Phone = &s
		case "document_type":
			c.DocumentType = &s
		case "document_number":
			c.DocumentNumber = &s
		}
	}
	return nil
}

func (m *memCustomers) SoftDelete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.DeletedAt.Valid {
		return false, nil
	}
	c.DeletedAt.Time, c.DeletedAt.Valid = time.Now(), true
	return true, nil
}

func (m *memCustomers) Delete(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, env)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, env := range p.events {
		out = append(out, env.EventType)
	}
	return out
}

type failingNumbers struct{}

func (failingNumbers) Next(context.Context) (string, error) {
	return "", storeErr("error generating order number", errStoreDown)
}

var (
	_ repository.ProductRepository   = (*memProducts)(nil)
	_ repository.OrderRepository     = (*memOrders)(nil)
	_ repository.OrderItemRepository = (*memItems)(nil)
	_ repository.CustomerRepository  = (*memCustomers)(nil)
)
