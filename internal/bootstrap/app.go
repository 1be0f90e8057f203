package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/olivere/elastic/v7"

	"github.com/locvowork/excelstream/internal/config"
	"github.com/locvowork/excelstream/internal/database"
	"github.com/locvowork/excelstream/internal/handler"
	"github.com/locvowork/excelstream/internal/logger"
	"github.com/locvowork/excelstream/internal/repository"
	"github.com/locvowork/excelstream/internal/service"
	"github.com/locvowork/excelstream/pkg/googlecloud"
)

const reportCatalog = "reports.yaml"

type App struct {
	Echo   *echo.Echo
	DB     *sql.DB
	GCP    *googlecloud.Client
	Search *elastic.Client

	Service service.ExportService
}

func NewApp() *App {
	e := echo.New()
	e.HideBanner = true
	return &App{Echo: e}
}

// Configure loads the environment and render profile and sets up logging.
// The returned deps carry no data sources.
func Configure(ctx context.Context) (service.Deps, error) {
	if err := config.LoadEnvConfig(); err != nil {
		return service.Deps{}, fmt.Errorf("failed to load env config: %w", err)
	}
	env := config.DefaultEnvConfig

	logger.InitLogging(env.LOG_FILE_PATH)
	logger.SetLevel(env.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	profile, err := config.LoadRenderProfile(env.EXPORT_PROFILE)
	if err != nil {
		return service.Deps{}, err
	}
	if err := profile.Validate(); err != nil {
		return service.Deps{}, fmt.Errorf("invalid render profile: %w", err)
	}
	return service.Deps{
		TemplateDir: env.TEMPLATE_DIR,
		Options:     profile.Options(env),
	}, nil
}

// Initialize configures the app and connects the configured sources.
// Sources are optional: an export whose backend is missing answers 503.
func (a *App) Initialize(ctx context.Context) error {
	deps, err := Configure(ctx)
	if err != nil {
		return err
	}
	env := config.DefaultEnvConfig

	if env.DB_NAME != "" {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            env.DB_HOST,
			Port:            env.DB_PORT,
			User:            env.DB_USER,
			Password:        env.DB_PASSWORD,
			DBName:          env.DB_NAME,
			SSLMode:         env.DB_SSL_MODE,
			MaxOpenConns:    env.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    env.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: env.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize database: %v", err)
		} else {
			a.DB = db
			reports, err := loadReports(filepath.Join(env.TEMPLATE_DIR, reportCatalog))
			if err != nil {
				return err
			}
			deps.Reports = repository.NewReportRepository(db, reports)
			logger.InfoLog(ctx, "database connected, %d reports", len(reports))
		}
	}

	if env.ES_URL != "" {
		client, err := elastic.NewClient(
			elastic.SetURL(env.ES_URL),
			elastic.SetSniff(false),
			elastic.SetHealthcheck(false),
		)
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize elasticsearch client: %v", err)
		} else {
			a.Search = client
			deps.Search = client
		}
	}

	if env.GCP_PROJECT_ID != "" {
		gcpClient, err := googlecloud.NewClient(ctx, env.GCP_PROJECT_ID, logger.Logger())
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize GCP client: %v", err)
		} else {
			a.GCP = gcpClient
			deps.Entities = gcpClient
		}
	}

	a.Service = service.NewExportService(deps)

	a.RegisterMiddlewares()
	a.RegisterRoutes(handler.NewExportHandler(a.Service))
	return nil
}

// loadReports treats a missing catalog as empty.
func loadReports(path string) ([]repository.Report, error) {
	reports, err := repository.LoadReports(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return reports, err
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.RequestID())
	a.Echo.Use(requestLogger)
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
}

// requestLogger tags the request context with the id set by middleware.RequestID.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		ctx := logger.WithRequestID(req.Context(), id)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (a *App) RegisterRoutes(h *handler.ExportHandler) {
	exportGroup := a.Echo.Group("/export")
	exportGroup.GET("/demo", h.DemoHandler)
	exportGroup.POST("/template", h.TemplateHandler)
	exportGroup.GET("/sql", h.ReportsHandler)
	exportGroup.GET("/sql/:report", h.QueryHandler)
	exportGroup.GET("/search/:index", h.SearchHandler)
	exportGroup.GET("/datastore/:kind", h.DatastoreHandler)

	a.Echo.POST("/import/:sheet", h.ImportHandler)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
	if a.GCP != nil {
		a.GCP.Close()
	}
	if a.Search != nil {
		a.Search.Stop()
	}
}

func (a *App) Run() error {
	defer a.Close()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
