package api

import (
	"github.com/gin-gonic/gin"

	"github.com/gargarushee/VisualMemorySearch/internal/api/handler"
	"github.com/gargarushee/VisualMemorySearch/internal/api/middleware"
	"github.com/gargarushee/VisualMemorySearch/internal/logger"
	"github.com/gargarushee/VisualMemorySearch/internal/service"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Ingest    *service.IngestService
	Jobs      *service.JobTracker
	Library   *service.LibraryService
	Search    *service.SearchService
	Snapshots handler.JobSnapshotReader
	Log       *logger.Logger

	// StaticUploadsDir, when set, serves stored screenshots under /uploads
	// for local-disk storage. S3-backed deployments leave it empty.
	StaticUploadsDir string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps, mode string, cors middleware.CORSConfig) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	screenshotHandler := handler.NewScreenshotHandler(deps.Ingest, deps.Jobs, deps.Library, deps.Snapshots)
	searchHandler := handler.NewSearchHandler(deps.Search)

	r.GET("/health", healthHandler.Health)

	if deps.StaticUploadsDir != "" {
		r.Static("/uploads", deps.StaticUploadsDir)
	}

	api := r.Group("/api")
	{
		api.POST("/screenshots/upload", screenshotHandler.Upload)
		api.GET("/screenshots/status/:job_id", screenshotHandler.Status)
		api.POST("/screenshots/search", searchHandler.Search)
		api.GET("/screenshots", screenshotHandler.List)
		api.GET("/screenshots/:id", screenshotHandler.Get)
		api.DELETE("/screenshots/:id", screenshotHandler.Delete)
	}

	return r
}
