package server

import (
	"errors"
	"io"
	"time"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"github.com/example/amargodulce/internal/auth"
	"github.com/example/amargodulce/internal/config"
	"github.com/example/amargodulce/internal/datamodels/product"
	"github.com/example/amargodulce/internal/gateway"
	"github.com/example/amargodulce/internal/infra/mq"
	"github.com/example/amargodulce/internal/infra/redis"
	"github.com/example/amargodulce/internal/middleware"
	"github.com/example/amargodulce/internal/repository/mysql"
	"github.com/example/amargodulce/internal/service"
)

// RegisterRoutes 注册前台 HTTP 路由（店铺 API + 支付网关 webhook）
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	couponRepo := mysql.NewCouponRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)

	gw := gateway.NewHTTPClient(&cfg.Gateway)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(orderRepo)
	reviewSvc := service.NewReviewService(reviewRepo)
	couponSvc := service.NewCouponService(couponRepo, redisClient)
	stock := service.NewStockValidator(productRepo)
	notifier := service.NewMQNotifier(mqConn)
	checkoutSvc := service.NewCheckoutService(orderRepo, productRepo, couponSvc, stock, gw, &cfg.Gateway)
	reconciler := service.NewReconcileService(orderRepo, gw, stock, notifier, redisClient)

	ring := auth.NewHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"code": 0,
			"msg":  "ok",
		})
	})

	// ---------- 支付网关 webhook ----------
	// 任何能读到请求的情况都回 200：失败的处理靠日志和监控兜底，
	// 非 200 只会让网关反复重投同一条通知。
	api.Post("/payments/webhook", func(ctx iris.Context) {
		body, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": "unreadable body"})
			return
		}
		n := service.ParseWebhook(ctx.Request().URL.Query(), body)
		reconciler.HandleNotification(ctx.Request().Context(), n)
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 用户注册/登录
	api.Post("/register", middleware.AuthRateLimit(), func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"id": u.ID, "username": u.Username}})
	})

	api.Post("/login", middleware.AuthRateLimit(), func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// 商品列表（公开，支持分类筛选和关键词搜索）
	api.Get("/products", func(ctx iris.Context) {
		category := ctx.URLParam("category")
		keyword := ctx.URLParam("q")
		var list []*product.Product
		var err error
		switch {
		case keyword != "":
			list, err = productSvc.Search(ctx.Request().Context(), category, keyword)
		case category != "":
			list, err = productSvc.ListByCategory(ctx.Request().Context(), category)
		default:
			list, err = productSvc.ListOnline(ctx.Request().Context())
		}
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/products/{ref}", func(ctx iris.Context) {
		p, err := productSvc.GetByRef(ctx.Request().Context(), ctx.Params().Get("ref"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "商品不存在"})
				return
			}
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	// 商品评价（公开读）
	api.Get("/products/{ref}/reviews", func(ctx iris.Context) {
		afterID := ctx.URLParamUint64("after_id")
		limit := ctx.URLParamIntDefault("limit", 50)
		list, err := reviewSvc.ListByProduct(ctx.Request().Context(), ctx.Params().Get("ref"), afterID, limit)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 需要登录的接口
	authAPI := api.Party("/", func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}
		// 先查缓存，未命中再解析并回填
		claims, hit, err := tokenCache.Get(ctx.Request().Context(), token)
		if err != nil || !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			_ = tokenCache.Set(ctx.Request().Context(), token, claims)
		}
		ctx.Values().Set("user_id", claims.UserID)
		ctx.Values().Set("username", claims.Username)
		ctx.Next()
	})

	// 结账：创建订单 + 支付意向，返回跳转地址
	authAPI.Post("/checkout", middleware.CheckoutRateLimit(), func(ctx iris.Context) {
		var req struct {
			Items      []service.CheckoutLine `json:"items"`
			CouponCode string                 `json:"coupon_code"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		userID, _ := ctx.Values().GetInt64("user_id")
		result, err := checkoutSvc.Checkout(ctx.Request().Context(), userID, req.Items, req.CouponCode)
		if err != nil {
			var shortfall *service.ErrStockShortfall
			if errors.As(err, &shortfall) {
				ctx.StopWithJSON(409, iris.Map{"code": 409, "msg": "库存不足", "data": shortfall.Problems})
				return
			}
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": result})
	})

	// 订单跟踪：按关联键查单（买家轮询支付结果用）
	authAPI.Get("/orders/{ref}", func(ctx iris.Context) {
		o, err := orderSvc.GetByExternalRef(ctx.Request().Context(), ctx.Params().Get("ref"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
				return
			}
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		userID, _ := ctx.Values().GetInt64("user_id")
		if o.UserID != userID {
			ctx.StopWithJSON(404, iris.Map{"code": 404, "msg": "订单不存在"})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": o})
	})

	// 我的订单
	authAPI.Get("/orders", func(ctx iris.Context) {
		userID, _ := ctx.Values().GetInt64("user_id")
		list, err := orderSvc.ListByUser(ctx.Request().Context(), userID)
		if err != nil {
			ctx.StopWithJSON(500, iris.Map{"code": 500, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 发布评价
	authAPI.Post("/products/{ref}/reviews", func(ctx iris.Context) {
		var req struct {
			Rating  int    `json:"rating"`
			Content string `json:"content"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		userID, _ := ctx.Values().GetInt64("user_id")
		r, err := reviewSvc.Create(ctx.Request().Context(), ctx.Params().Get("ref"), userID, req.Rating, req.Content)
		if err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": r})
	})
}
