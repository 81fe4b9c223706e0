package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"backend/config"
	"backend/controllers"
	"backend/logger"
	"backend/routes"
	"backend/services"
	"backend/utils"
)

func main() {
	logger.Init()

	db := config.InitDB()
	utils.InitS3()
	utils.InitMailer()

	hub := services.NewRealtimeHub()

	push, err := services.NewPushService(db)
	if err != nil {
		logger.Error("push service init failed", "error", err)
		os.Exit(1)
	}

	vision, err := services.NewVisionService()
	if err != nil {
		logger.Error("vision service init failed", "error", err)
		os.Exit(1)
	}

	characters := services.NewCharacterService(db, hub, push)
	foods := services.NewFoodService(db)
	subs := services.NewSubscriptionService(db, push)
	meals := services.NewMealService(db, foods, characters, subs)
	barcode := services.NewBarcodeService()
	coach := services.NewCoachService()
	auth := services.NewAuthService(db)

	r := routes.SetupRouter(routes.Controllers{
		Auth:         controllers.NewAuthController(auth),
		Meals:        controllers.NewMealController(meals),
		Foods:        controllers.NewFoodController(foods, barcode, vision),
		Character:    controllers.NewCharacterController(characters),
		Subscription: controllers.NewSubscriptionController(subs),
		Coach:        controllers.NewCoachController(coach, characters),
		Realtime:     controllers.NewRealtimeController(hub),
		Devices:      controllers.NewDeviceController(push),
		Notification: controllers.NewNotificationController(db),
		Dev:          controllers.NewDevController(push, subs),
	})

	// In-process schedulers (daily reminder, monthly settlement). Off by
	// default so multi-instance deployments can run them elsewhere.
	if os.Getenv("ENABLE_JOBS") == "true" {
		ctx, cancel := context.WithCancel(context.Background())
		reminders := services.NewReminderService(db, push, subs)
		reminders.Start(ctx)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sig
			cancel()
			reminders.Stop()
			os.Exit(0)
		}()
	}

	if err := r.Run(":8080"); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
