package handlers

import (
	"log/slog"

	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/config"
	"github.com/easydigitaldownloads/edd-campaign-tracker/internal/services"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Handler struct {
	cfg                config.Config
	logger             *slog.Logger
	db                 *gorm.DB
	rdb                *redis.Client
	attributionService *services.AttributionService
	reportService      *services.ReportService
	touchService       *services.TouchService
	emailTags          *services.EmailTagRegistry
}

func NewHandler(
	cfg config.Config,
	logger *slog.Logger,
	db *gorm.DB,
	rdb *redis.Client,
	attributionService *services.AttributionService,
	reportService *services.ReportService,
	touchService *services.TouchService,
	emailTags *services.EmailTagRegistry,
) *Handler {
	return &Handler{
		cfg:                cfg,
		logger:             logger,
		db:                 db,
		rdb:                rdb,
		attributionService: attributionService,
		reportService:      reportService,
		touchService:       touchService,
		emailTags:          emailTags,
	}
}
