package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/database"
	"github.com/parkwise/service-parking/internal/common/logger"
	"github.com/parkwise/service-parking/internal/config"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
	"github.com/parkwise/service-parking/internal/repository"
)

// carParkRecord is one entry of the public car park catalogue export.
type carParkRecord struct {
	CarParkNo           string    `json:"car_park_no"`
	Address             string    `json:"address"`
	Latitude            flexFloat `json:"latitude"`
	Longitude           flexFloat `json:"longitude"`
	CarParkType         string    `json:"car_park_type"`
	TypeOfParkingSystem string    `json:"type_of_parking_system"`
	ShortTermParking    string    `json:"short_term_parking"`
	FreeParking         string    `json:"free_parking"`
	NightParking        string    `json:"night_parking"`
}

// flexFloat accepts both 1.35 and "1.35".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid coordinate %q: %w", b, err)
	}
	*f = flexFloat(v)
	return nil
}

func main() {
	file := flag.String("file", "assets/carparks_sg.json", "path to the car park catalogue JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.AppEnv, "parking-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal("failed to read catalogue", zap.String("file", *file), zap.Error(err))
	}
	var records []carParkRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Fatal("failed to parse catalogue", zap.String("file", *file), zap.Error(err))
	}

	dbConfig := database.PostgresConfig{
		DSN:      cfg.DBConfig.DSN,
		Host:     cfg.DBConfig.Host,
		Port:     cfg.DBConfig.Port,
		User:     cfg.DBConfig.User,
		Password: cfg.DBConfig.Password,
		DBName:   cfg.DBConfig.DBName,
		SSLMode:  cfg.DBConfig.SSLMode,
	}
	db, err := database.Connect(dbConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.IsDevelopment() || dbConfig.IsSQLite() {
		if err := db.AutoMigrate(repository.Models()...); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
	} else if err := database.RunMigrations(dbConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	availability := application.NewAvailabilityService(repository.NewGormAvailabilityRepository(db), nil, log)
	facilities := application.NewFacilityService(repository.NewGormFacilityRepository(db), availability, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	imported, skipped, err := facilities.Import(ctx, toImports(records))
	if err != nil {
		log.Fatal("import failed", zap.Error(err))
	}
	log.Info("catalogue imported",
		zap.String("file", *file),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
	)
}

func toImports(records []carParkRecord) []application.FacilityImport {
	rows := make([]application.FacilityImport, 0, len(records))
	for _, r := range records {
		rows = append(rows, application.FacilityImport{
			CarParkNo: r.CarParkNo,
			Address:   r.Address,
			Location: facilityDomain.Coordinates{
				Lat: float64(r.Latitude),
				Lon: float64(r.Longitude),
			},
			Details: facilityDomain.Details{
				CarParkType:       r.CarParkType,
				ParkingSystemType: r.TypeOfParkingSystem,
				ShortTermParking:  r.ShortTermParking,
				FreeParking:       r.FreeParking,
				NightParking:      r.NightParking,
			},
		})
	}
	return rows
}
