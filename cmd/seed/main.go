package main

import (
	"encoding/json"
	"flag"
	"os"

	"go.uber.org/zap"

	"plaasstop-backend/internal/model"
	"plaasstop-backend/pkg/config"
	"plaasstop-backend/pkg/database"
	"plaasstop-backend/pkg/logger"
)

// seedFarm is one entry of the scraped lead-farm file.
type seedFarm struct {
	Name     string   `json:"name"`
	Products []string `json:"products"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

func main() {
	file := flag.String("file", "seeds/farms.json", "path to the lead farm JSON file")
	flag.Parse()

	appConfig, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	db, err := database.InitDB(&appConfig.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(&model.User{}, &model.Farm{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("Failed to read seed file", zap.String("file", *file), zap.Error(err))
	}

	var farms []seedFarm
	if err := json.Unmarshal(data, &farms); err != nil {
		log.Fatal("Failed to parse seed file", zap.String("file", *file), zap.Error(err))
	}

	created := 0
	for _, f := range farms {
		if f.Name == "" {
			continue
		}

		// Re-running the seeder must not duplicate leads.
		var count int64
		if err := db.Model(&model.Farm{}).Where("name = ? AND type = ?", f.Name, model.FarmTypeLead).Count(&count).Error; err != nil {
			log.Fatal("Failed to check existing farm", zap.String("name", f.Name), zap.Error(err))
		}
		if count > 0 {
			continue
		}

		farm := model.Farm{
			Name:     f.Name,
			Type:     model.FarmTypeLead,
			Status:   model.FarmStatusUnclaimed,
			Products: f.Products,
			Lat:      f.Lat,
			Lng:      f.Lng,
		}
		if err := db.Create(&farm).Error; err != nil {
			log.Fatal("Failed to create farm", zap.String("name", f.Name), zap.Error(err))
		}
		created++
	}

	log.Info("Seed complete",
		zap.Int("total", len(farms)),
		zap.Int("created", created))
}
