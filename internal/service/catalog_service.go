package service

import (
	"context"
	"fmt"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/repo/postgres"
	"github.com/maplecart/storefront/internal/utils"
	"github.com/maplecart/storefront/internal/validate"
)

type CatalogService interface {
	List(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, page, limit int) (*domain.ProductPage, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)

	Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type catalogService struct {
	products postgres.ProductRepository
}

func NewCatalogService(products postgres.ProductRepository) CatalogService {
	return &catalogService{products: products}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *catalogService) List(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, page, limit int) (*domain.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := (page - 1) * limit

	products, total, err := s.products.List(ctx, filter, sort, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}

	return &domain.ProductPage{
		Products:   products,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil
}

func (s *catalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || !product.Active {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *catalogService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || !product.Active {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *catalogService) Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error) {
	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.products.SlugExists(ctx, req.Slug, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("slug %q: %w", req.Slug, domain.ErrDuplicate)
	}

	product, err := s.products.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *catalogService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	if err := validate.Struct(&patch); err != nil {
		return nil, err
	}

	if patch.Slug != nil {
		slug := utils.NormalizeSlug(*patch.Slug)
		patch.Slug = &slug

		exists, err := s.products.SlugExists(ctx, slug, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("slug %q: %w", slug, domain.ErrDuplicate)
		}
	}

	product, err := s.products.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *catalogService) Delete(ctx context.Context, id int64) error {
	deactivated, err := s.products.Deactivate(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if !deactivated {
		return domain.ErrNotFound
	}
	return nil
}
