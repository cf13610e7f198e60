package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/datamodels/product"
)

type productRepo struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepo{db: db}
}

func (r *productRepo) GetByRef(ctx context.Context, ref string) (*product.Product, error) {
	var p product.Product
	if err := r.db.WithContext(ctx).Where("ref = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListOnline(ctx context.Context) ([]*product.Product, error) {
	var list []*product.Product
	if err := r.db.WithContext(ctx).
		Where("status = ?", 1).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	var list []*product.Product
	query := r.db.WithContext(ctx).Where("status = ?", 1)
	if category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Search(ctx context.Context, category, keyword string) ([]*product.Product, error) {
	var list []*product.Product
	query := r.db.WithContext(ctx).Where("status = ?", 1)
	if category != "" && category != "all" {
		query = query.Where("category = ?", category)
	}
	if keyword != "" {
		like := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if err := query.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *productRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) Update(ctx context.Context, p *product.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&product.Product{}, id).Error
}

// DecrementStock 单条 UPDATE 完成扣减并在 0 处封底，NULL 库存（不限量）不受影响。
// 两个并发订单扣同一商品时不会出现读旧值互相覆盖的丢失更新。
func (r *productRepo) DecrementStock(ctx context.Context, ref string, qty int64) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&product.Product{}).
		Where("ref = ? AND stock IS NOT NULL", ref).
		UpdateColumn("stock", gorm.Expr("GREATEST(stock - ?, 0)", qty)).Error
}
