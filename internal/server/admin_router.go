package server

import (
	"errors"
	"time"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/auth"
	"github.com/example/amargodulce/internal/config"
	"github.com/example/amargodulce/internal/datamodels/coupon"
	"github.com/example/amargodulce/internal/datamodels/order"
	"github.com/example/amargodulce/internal/datamodels/product"
	"github.com/example/amargodulce/internal/infra/redis"
	"github.com/example/amargodulce/internal/repository/mysql"
	"github.com/example/amargodulce/internal/service"
)

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)

	// 仓储与服务
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	couponRepo := mysql.NewCouponRepository(db)

	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(orderRepo)
	couponSvc := service.NewCouponService(couponRepo, redisClient)

	api := app.Party("/api", func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		claims, err := auth.ParseToken(&cfg.JWT, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
			return
		}
		if !claims.IsAdmin {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "需要管理员权限"})
			return
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Next()
	})

	// ---------- 订单面板 ----------

	// 订单列表，支持按状态筛选
	api.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		status := ctx.URLParam("status")
		var list []*order.Order
		var err error
		if status != "" {
			list, err = orderSvc.ListByStatus(ctx.Request().Context(), order.Status(status), limit)
		} else {
			list, err = orderSvc.ListRecent(ctx.Request().Context(), limit)
		}
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 人工推进订单状态（发货/送达）
	api.Post("/orders/{id:int64}/status", func(ctx iris.Context) {
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		id, _ := ctx.Params().GetInt64("id")
		o, err := orderSvc.Advance(ctx.Request().Context(), id, order.Status(req.Status))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
				return
			}
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// ---------- 商品管理 ----------

	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Post("/products", func(ctx iris.Context) {
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := productSvc.Create(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Put("/products/{ref}", func(ctx iris.Context) {
		existing, err := productSvc.GetByRef(ctx.Request().Context(), ctx.Params().Get("ref"))
		if err != nil {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "商品不存在"})
			return
		}
		var p product.Product
		if err := ctx.ReadJSON(&p); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p.ID = existing.ID
		p.Ref = existing.Ref
		if err := productSvc.Update(ctx.Request().Context(), &p); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Delete("/products/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := productSvc.Delete(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// ---------- 优惠券管理 ----------

	api.Get("/coupons", func(ctx iris.Context) {
		list, err := couponSvc.ListAll(ctx.Request().Context())
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Post("/coupons", func(ctx iris.Context) {
		var c coupon.Coupon
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := couponSvc.Create(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	api.Put("/coupons/{id:int64}", func(ctx iris.Context) {
		var c coupon.Coupon
		if err := ctx.ReadJSON(&c); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		id, _ := ctx.Params().GetInt64("id")
		c.ID = id
		if err := couponSvc.Update(ctx.Request().Context(), &c); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": c})
	})

	api.Delete("/coupons/{id:int64}", func(ctx iris.Context) {
		id, _ := ctx.Params().GetInt64("id")
		if err := couponSvc.Delete(ctx.Request().Context(), id); err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// ---------- 监控 ----------

	api.Get("/stats", func(ctx iris.Context) {
		stats := service.GetMonitor().GetStats()
		stats["server_time"] = time.Now()
		ctx.JSON(iris.Map{"code": 0, "data": stats})
	})
}
