package main

import (
	"context"
	"log"

	"github.com/example/amargodulce/internal/config"
	"github.com/example/amargodulce/internal/datamodels/product"
	"github.com/example/amargodulce/internal/repository/mysql"
)

func intPtr(v int64) *int64 { return &v }

// 初始化一批演示商品，方便本地把整条链路跑起来
func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db := mysql.Init(&cfg.MySQL)
	repo := mysql.NewProductRepository(db)
	ctx := context.Background()

	seed := []*product.Product{
		{Ref: "alfajor-clasico", Name: "Alfajor Clásico", Description: "经典黑巧克力夹心", Price: 950, Stock: intPtr(120), Category: "alfajores", Status: 1},
		{Ref: "alfajor-blanco", Name: "Alfajor Blanco", Description: "白巧克力夹心", Price: 950, Stock: intPtr(80), Category: "alfajores", Status: 1},
		{Ref: "caja-bombones-12", Name: "Caja de Bombones x12", Description: "12 粒装巧克力礼盒", Price: 4200, Stock: intPtr(30), Category: "gift-boxes", Status: 1},
		{Ref: "tableta-70", Name: "Tableta 70% Cacao", Description: "70% 黑巧排块", Price: 1800, Stock: intPtr(60), Category: "chocolates", Status: 1},
		// 定制款不限量，库存为 NULL
		{Ref: "caja-personalizada", Name: "Caja Personalizada", Description: "定制礼盒，按单制作", Price: 6500, Stock: nil, Category: "gift-boxes", Status: 1},
	}

	for _, p := range seed {
		if _, err := repo.GetByRef(ctx, p.Ref); err == nil {
			log.Printf("product %s already exists, skip", p.Ref)
			continue
		}
		if err := repo.Create(ctx, p); err != nil {
			log.Fatalf("create product %s failed: %v", p.Ref, err)
		}
		log.Printf("created product %s", p.Ref)
	}

	log.Println("seed done")
}
