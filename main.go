package main

import (
	"time"

	"github.com/ichacara/attendance/config"
	"github.com/ichacara/attendance/models"
	"github.com/ichacara/attendance/repository"
	"github.com/ichacara/attendance/routes"
	"github.com/ichacara/attendance/services"
	"github.com/ichacara/attendance/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.CheckIn{})

	// Object storage is best-effort at boot: uploads report unavailable
	// until the endpoint comes up.
	objects, err := utils.NewObjectStore(cfg)
	if err != nil {
		utils.Sugar.Warnf("object storage unavailable: %v", err)
		objects = nil
	}

	checkinRepo := repository.NewCheckinRepo(db)
	userRepo := repository.NewUserRepo(db)
	checkinSvc := services.NewCheckinService(checkinRepo, nil)
	broker := services.NewTokenBroker(utils.GetRedis(), checkinRepo, time.Duration(cfg.QrCodeTTLSeconds)*time.Second, nil)

	r := routes.SetupRouter(db, objects, checkinSvc, broker)

	// Daily sweep demoting members idle past the threshold
	sweep := services.NewIdleSweep(userRepo, checkinSvc, cfg.IdleDaysBeforeInactive, cfg.SweepHour, utils.Sugar, nil)
	sweep.Start()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
