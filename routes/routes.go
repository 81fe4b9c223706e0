package routes

import (
	"backend/controllers"
	"backend/middlewares"

	"github.com/gin-gonic/gin"
)

// Controllers bundles everything the router mounts.
type Controllers struct {
	Auth         *controllers.AuthController
	Meals        *controllers.MealController
	Foods        *controllers.FoodController
	Character    *controllers.CharacterController
	Subscription *controllers.SubscriptionController
	Coach        *controllers.CoachController
	Realtime     *controllers.RealtimeController
	Devices      *controllers.DeviceController
	Notification *controllers.NotificationController
	Dev          *controllers.DevController
}

func SetupRouter(c Controllers) *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", c.Auth.Register)
		auth.POST("/login", c.Auth.Login)
	}

	// Everything below requires a valid token.
	api := r.Group("/")
	api.Use(middlewares.AuthMiddleware())
	{
		api.GET("/user/profile", c.Auth.Profile)
		api.POST("/user/notifications/toggle", c.Notification.Toggle)

		api.POST("/meals", c.Meals.Submit)
		api.GET("/meals", c.Meals.ListByDate)
		api.GET("/meals/recent", c.Meals.Recent)

		api.POST("/food/score/preview", c.Meals.PreviewScore)
		api.GET("/food/search", c.Foods.Search)
		api.GET("/food/barcode/:code", c.Foods.BarcodeLookup)
		api.POST("/food/recognize", c.Foods.Recognize)

		api.GET("/character", c.Character.Get)
		api.GET("/subscription", c.Subscription.Get)

		api.POST("/coach", c.Coach.Chat)

		api.GET("/ws/progress", c.Realtime.ProgressWS)
		api.POST("/devices", c.Devices.Register)

		dev := api.Group("/dev")
		{
			dev.POST("/push-test", c.Dev.PushTest)
			dev.POST("/run-monthly", c.Dev.RunMonthly)
		}
	}

	return r
}
