package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type ProductService struct {
	productRepo *storage.ProductRepository
}

func NewProductService(productRepo *storage.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidf("product name is required")
	}

	product := &models.Product{
		Name:        name,
		Description: req.Description,
		Version:     strings.TrimSpace(req.Version),
		IsActive:    true,
	}
	if product.Version == "" {
		product.Version = models.DefaultProductVersion
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, invalidf("price cannot be negative")
		}
		product.Price = *req.Price
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.productRepo.List(ctx)
}

// Get returns an active product. Retired products are reported as not found.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || !product.IsActive {
		return nil, notFound("product")
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidf("product name cannot be empty")
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Version != nil && strings.TrimSpace(*req.Version) != "" {
		product.Version = strings.TrimSpace(*req.Version)
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, invalidf("price cannot be negative")
		}
		product.Price = *req.Price
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, notFound("product")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// Delete retires the product. Existing licenses keep validating against it.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return notFound("product")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
