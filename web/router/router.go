package router

import (
	"campus_market/service"
	"campus_market/web/controller"
	"campus_market/web/middleware"

	"github.com/gin-gonic/gin"
)

// Route 页面路由
type Route struct {
	Name string
	Path string
	Meta middleware.Meta
}

// Routes 页面路由表
func Routes() []Route {
	auth := middleware.Meta{RequiresAuth: true}
	return []Route{
		{Name: "home", Path: "/"},
		{Name: "goods", Path: "/goods"},
		{Name: "goods-detail", Path: "/goods/:id"},
		{Name: "goods-mine", Path: "/goods/mine", Meta: auth},
		{Name: "admin-review", Path: "/admin/review", Meta: middleware.Meta{RequiresAuth: true, RequiresAdmin: true}},
		{Name: "orders", Path: "/orders", Meta: auth},
		{Name: "cart", Path: "/cart", Meta: auth},
		{Name: "chat", Path: "/chat", Meta: auth},
		{Name: "chat-messages", Path: "/chat/:partnerId", Meta: auth},
		{Name: "flash-sale", Path: "/flash-sale"},
		{Name: "login", Path: "/login"},
		{Name: "profile", Path: "/profile", Meta: auth},
	}
}

// InitRouter 初始化控制台路由
func InitRouter(app *service.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(app.Logger.Named("http")))

	ctl := controller.NewConsoleController(app)
	guard := middleware.NewGuard(app.Session, app.Logger.Named("guard"))

	views := map[string]gin.HandlerFunc{
		"home":          ctl.Home,
		"goods":         ctl.GoodsList,
		"goods-detail":  ctl.GoodsDetail,
		"goods-mine":    ctl.MyGoods,
		"admin-review":  ctl.AdminReview,
		"orders":        ctl.Orders,
		"cart":          ctl.Cart,
		"chat":          ctl.Chat,
		"chat-messages": ctl.ChatMessages,
		"flash-sale":    ctl.FlashSale,
		"login":         ctl.Login,
		"profile":       ctl.Profile,
	}
	// 页面视图，守卫不放行时重定向
	for _, route := range Routes() {
		r.GET(route.Path, middleware.Navigation(guard, route.Meta), views[route.Name])
	}
	r.GET("/notifications", ctl.Notifications)

	// 操作接口
	api := r.Group("/api")
	{
		api.POST("/login", ctl.DoLogin)
		api.POST("/register", ctl.DoRegister)

		authed := api.Group("", middleware.AuthMiddleware(guard))
		{
			authed.POST("/logout", ctl.DoLogout)
			authed.POST("/cart", ctl.AddToCart)
			authed.DELETE("/cart/sold", ctl.PurgeCart)
			authed.POST("/orders", ctl.SubmitOrder)
			authed.PATCH("/orders/:id", ctl.ChangeOrderStatus)
			authed.POST("/chat/:partnerId/messages", ctl.SendMessage)
			authed.POST("/chat/:partnerId/read", ctl.MarkRead)
			authed.POST("/flash-sale/:id/purchase", ctl.Purchase)

			// 管理接口组，需要管理员权限
			admin := authed.Group("/admin", middleware.AdminMiddleware(guard))
			{
				admin.PUT("/goods/:id/review", ctl.ReviewGoods)
			}
		}
	}
	return r
}
