package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maplecart/storefront/internal/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	List(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, limit, offset int) ([]domain.Product, int64, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
	Categories(ctx context.Context) ([]string, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

const productCols = `id, title, slug, description, price, compare_at_price,
images, category, subcategory, stock, sku, attributes, tags,
featured, active, average_rating, review_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.CompareAtPrice,
		&p.Images, &p.Category, &p.Subcategory, &p.Stock, &p.SKU, &p.Attributes, &p.Tags,
		&p.Featured, &p.Active, &p.AverageRating, &p.ReviewCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) Create(ctx context.Context, req *domain.CreateProductRequest) (*domain.Product, error) {
	const q = `INSERT INTO products (
		title, slug, description, price, compare_at_price,
		images, category, subcategory, stock, sku, attributes, tags, featured, active
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,true)
	RETURNING ` + productCols

	attrs, err := marshalAttributes(req.Attributes)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanProduct(r.pool.QueryRow(ctx, q,
		req.Title, req.Slug, req.Description, req.Price, req.CompareAtPrice,
		req.Images, req.Category, req.Subcategory, req.Stock, req.SKU, attrs, req.Tags, req.Featured,
	))
}

func (r *productRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanProduct(r.pool.QueryRow(ctx, q, id))
}

func (r *productRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	const q = `SELECT ` + productCols + ` FROM products WHERE slug=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanProduct(r.pool.QueryRow(ctx, q, slug))
}

func (r *productRepository) SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM products WHERE slug=$1 AND id <> $2)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var exists bool
	err := r.pool.QueryRow(ctx, q, slug, excludeID).Scan(&exists)
	return exists, err
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, limit, offset int) ([]domain.Product, int64, error) {
	where, args := buildProductFilter(filter)

	orderBy := "created_at DESC"
	switch sort {
	case domain.SortPriceAsc:
		orderBy = "price ASC"
	case domain.SortPriceDesc:
		orderBy = "price DESC"
	case domain.SortPopular:
		orderBy = "review_count DESC"
	case domain.SortName:
		orderBy = "title ASC"
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int64
	countQ := `SELECT count(*) FROM products ` + where
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQ := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productCols, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}

	return products, total, rows.Err()
}

func buildProductFilter(filter domain.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	if !filter.IncludeInactive {
		conds = append(conds, "active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filter.FeaturedOnly {
		conds = append(conds, "featured")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r *productRepository) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	const q = `UPDATE products SET
		title = COALESCE($2, title),
		slug = COALESCE($3, slug),
		description = COALESCE($4, description),
		price = COALESCE($5, price),
		compare_at_price = COALESCE($6, compare_at_price),
		images = COALESCE($7, images),
		category = COALESCE($8, category),
		subcategory = COALESCE($9, subcategory),
		stock = COALESCE($10, stock),
		sku = COALESCE($11, sku),
		attributes = COALESCE($12, attributes),
		tags = COALESCE($13, tags),
		featured = COALESCE($14, featured),
		updated_at = now()
	WHERE id = $1
	RETURNING ` + productCols

	attrs, err := marshalAttributes(patch.Attributes)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanProduct(r.pool.QueryRow(ctx, q, id,
		patch.Title, patch.Slug, patch.Description, patch.Price, patch.CompareAtPrice,
		patch.Images, patch.Category, patch.Subcategory, patch.Stock, patch.SKU,
		attrs, patch.Tags, patch.Featured,
	))
}

func (r *productRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE products SET active = false, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *productRepository) Categories(ctx context.Context) ([]string, error) {
	const q = `SELECT DISTINCT category FROM products WHERE active ORDER BY category`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// marshalAttributes encodes the free-form attribute map for a jsonb column.
// A nil map becomes SQL NULL so COALESCE keeps the stored value on update.
func marshalAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		return nil, nil
	}
	return json.Marshal(attrs)
}
