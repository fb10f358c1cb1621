package main

import (
	"github.com/cppla/livewall/bus"
	"github.com/cppla/livewall/config"
	"github.com/cppla/livewall/models"
	"github.com/cppla/livewall/objectstore"
	"github.com/cppla/livewall/routes"
	"github.com/cppla/livewall/storage"
	"github.com/cppla/livewall/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.Post{}, &models.StoredObject{})

	posts := storage.NewGormPosts(db)
	postBus := bus.New()
	defer postBus.Close()
	objects := objectstore.NewDisk(cfg.ObjectsDir, cfg.PublicBaseURL+"/objects", db)

	r := routes.SetupRouter(posts, postBus, objects)

	// Background sweep for uploads never bound to a post (best-effort)
	utils.StartObjectSweeper(objects)
	defer utils.StopObjectSweeper()

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
