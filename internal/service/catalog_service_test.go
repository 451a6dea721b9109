package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maplecart/storefront/internal/domain"
	"github.com/maplecart/storefront/internal/service"
)

func TestCatalogService_List_PaginationDefaults(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	repo.On("List", mock.Anything, domain.ProductFilter{}, domain.SortNewest, 20, 0).
		Return([]domain.Product{{ID: 1, Title: "Ceramic Mug"}}, int64(45), nil)

	page, err := svc.List(context.Background(), domain.ProductFilter{}, domain.SortNewest, 0, 0)

	assert.NoError(t, err)
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 20, page.Pagination.Limit)
	assert.Equal(t, int64(45), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.Pages)
	repo.AssertExpectations(t)
}

func TestCatalogService_List_CapsLimit(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	repo.On("List", mock.Anything, domain.ProductFilter{}, domain.SortPriceAsc, 100, 100).
		Return([]domain.Product{}, int64(0), nil)

	page, err := svc.List(context.Background(), domain.ProductFilter{}, domain.SortPriceAsc, 2, 500)

	assert.NoError(t, err)
	assert.Equal(t, 100, page.Pagination.Limit)
	assert.NotNil(t, page.Products)
	repo.AssertExpectations(t)
}

func TestCatalogService_Get_InactiveIsNotFound(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	repo.On("GetByID", mock.Anything, int64(1)).Return(&domain.Product{ID: 1, Active: false}, nil)
	repo.On("GetByID", mock.Anything, int64(2)).Return(nil, nil)
	repo.On("GetByID", mock.Anything, int64(3)).Return(&domain.Product{ID: 3, Active: true}, nil)

	_, err := svc.Get(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	product, err := svc.Get(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), product.ID)
}

func TestCatalogService_Create_NormalizesSlugAndRejectsDuplicates(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	req := &domain.CreateProductRequest{
		Title:       "Ceramic Mug",
		Slug:        "  Ceramic-Mug  ",
		Description: "A mug",
		Price:       30,
		Category:    "kitchen",
		Stock:       5,
	}

	repo.On("SlugExists", mock.Anything, "ceramic-mug", int64(0)).Return(true, nil).Once()
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	repo.On("SlugExists", mock.Anything, "ceramic-mug", int64(0)).Return(false, nil).Once()
	repo.On("Create", mock.Anything, req).Return(&domain.Product{ID: 1, Slug: "ceramic-mug"}, nil)
	product, err := svc.Create(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, "ceramic-mug", product.Slug)
	assert.Equal(t, "ceramic-mug", req.Slug)
}

func TestCatalogService_Create_ValidationFailure(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	_, err := svc.Create(context.Background(), &domain.CreateProductRequest{
		Slug:  "no-title",
		Price: -5,
	})

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_Update_ChecksSlugAgainstOtherProducts(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	slug := "ceramic-mug"
	repo.On("SlugExists", mock.Anything, "ceramic-mug", int64(7)).Return(false, nil)
	repo.On("Update", mock.Anything, int64(7), mock.AnythingOfType("domain.ProductPatch")).
		Return(&domain.Product{ID: 7, Slug: "ceramic-mug"}, nil)

	product, err := svc.Update(context.Background(), 7, domain.ProductPatch{Slug: &slug})

	assert.NoError(t, err)
	assert.Equal(t, int64(7), product.ID)
	repo.AssertExpectations(t)
}

func TestCatalogService_Update_MissingProduct(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	repo.On("Update", mock.Anything, int64(99), mock.AnythingOfType("domain.ProductPatch")).Return(nil, nil)

	_, err := svc.Update(context.Background(), 99, domain.ProductPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalogService_Delete(t *testing.T) {
	repo := new(MockProductRepository)
	svc := service.NewCatalogService(repo)

	repo.On("Deactivate", mock.Anything, int64(7)).Return(true, nil).Once()
	assert.NoError(t, svc.Delete(context.Background(), 7))

	repo.On("Deactivate", mock.Anything, int64(99)).Return(false, nil).Once()
	assert.ErrorIs(t, svc.Delete(context.Background(), 99), domain.ErrNotFound)
}
