package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-ledger-api/internal/models"
	"pos-ledger-api/pkg/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product operations accepted by the manageProduct action.
const (
	ProductOpAdd    = "ADD"
	ProductOpUpdate = "UPDATE"
	ProductOpDelete = "DELETE"
)

// ProductInput carries the editable fields of a product
type ProductInput struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	Category string          `json:"category"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrMissingFields
	}
	if in.Price.IsNegative() {
		return ErrInvalidProduct
	}
	return nil
}

// CatalogService manages the product catalogue
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// List returns all products ordered by name
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Create adds a product with a new id
func (s *CatalogService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product := &models.Product{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		UnitPrice: in.Price,
		StockQty:  in.Stock,
		Category:  strings.TrimSpace(in.Category),
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	logging.Infof("Product created - id: %s, name: %s", product.ID, product.Name)
	return product, nil
}

// Update replaces every editable field of an existing product
func (s *CatalogService) Update(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingFields
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name = strings.TrimSpace(in.Name)
	product.UnitPrice = in.Price
	product.StockQty = in.Stock
	product.Category = strings.TrimSpace(in.Category)

	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete removes a product. Past sales keep their snapshots.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingFields
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	logging.Infof("Product deleted - id: %s", id)
	return nil
}

func (s *CatalogService) get(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return &product, nil
}
