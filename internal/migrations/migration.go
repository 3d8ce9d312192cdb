package migrations

import (
	"context"
	"errors"
	"log/slog"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/services"
	"order_manager/internal/store"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func allModels() []interface{} {
	return []interface{}{
		&models.Customer{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
	}
}

// Migrate creates or alters the tables of every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(allModels()...)
}

// Reset drops every table and migrates again.
func Reset(db *gorm.DB, log *slog.Logger) error {
	log.Info("dropping existing tables")
	if err := db.Migrator().DropTable(allModels()...); err != nil {
		log.Warn("error dropping tables", "error", err)
	}
	return Migrate(db)
}

type demoProduct struct {
	name  string
	price string
	stock int
}

var demoProducts = []demoProduct{
	{"Desk Lamp", "100.00", 5},
	{"Office Chair", "249.90", 12},
	{"Notebook A5", "4.50", 300},
}

var demoCustomers = []services.CustomerInput{
	{FirstName: "Ana", LastName: "Ruiz", Email: strPtr("ana.ruiz@example.com"), DocumentType: strPtr("DNI"), DocumentNumber: strPtr("40111222")},
	{FirstName: "Li", LastName: "Wei", Email: strPtr("li.wei@example.com"), Phone: strPtr("+1-555-0100")},
}

func strPtr(s string) *string { return &s }

// SeedDefaultData creates demo customers and products through the services
// so uniqueness rules apply. Rows that already exist are skipped.
func SeedDefaultData(ctx context.Context, customers services.CustomerService, products services.ProductService, log *slog.Logger) error {
	for _, p := range demoProducts {
		_, err := products.CreateProduct(ctx, services.ProductInput{
			Name:  p.name,
			Price: decimal.RequireFromString(p.price),
			Stock: p.stock,
		})
		switch {
		case errors.Is(err, services.ErrDuplicateProductName):
			log.Info("product already exists", "name", p.name)
		case err != nil:
			return err
		default:
			log.Info("product created", "name", p.name)
		}
	}

	for _, c := range demoCustomers {
		_, err := customers.CreateCustomer(ctx, c)
		switch {
		case errors.Is(err, services.ErrDuplicateEmail), errors.Is(err, services.ErrDuplicateDocument):
			log.Info("customer already exists", "email", *c.Email)
		case err != nil:
			return err
		default:
			log.Info("customer created", "email", *c.Email)
		}
	}
	return nil
}

// Seed wires the default services over db and seeds demo data.
func Seed(ctx context.Context, db *gorm.DB, log *slog.Logger) error {
	s := store.New(db)
	return SeedDefaultData(ctx,
		services.NewCustomerService(repository.NewCustomerRepository(s)),
		services.NewProductService(repository.NewProductRepository(s), log),
		log)
}
