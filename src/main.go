package main

import (
	"campusmarket/src/boot"
	"campusmarket/src/config"
	"campusmarket/src/controllers"
	"campusmarket/src/db"
	"campusmarket/src/lib"
	"campusmarket/src/middlewares"
	"campusmarket/src/models"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"regexp"
	"syscall"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const apiPrefix = "/api/v1"

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine, enabled bool) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		if enabled {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	})
	return g
}

func corsMiddleware(g *gin.Engine, cfg *config.Config) *gin.Engine {
	if cfg.APIEnv == "local" || cfg.AppHost == "" {
		g.Use(cors.Default())
		return g
	}
	appHost := regexp.MustCompile(regexp.QuoteMeta(cfg.AppHost) + "$")
	cc := cors.DefaultConfig()
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization")
	cc.AllowOriginFunc = func(origin string) bool {
		return appHost.MatchString(origin)
	}
	cc.AllowCredentials = true
	cc.AllowAllOrigins = false
	g.Use(cors.New(cc))
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

// errorJSON aborts with the error's message. Internal errors are logged and
// replaced with the status text.
func errorJSON(ctx *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s %s: %s\n", ctx.Request.Method, ctx.FullPath(), err.Error())
		ctx.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func registerRoutes(router *gin.Engine, auth gin.HandlerFunc, ctrl *controllers.Controller) {
	authorized := apiv1Group(router)
	authorized.Use(auth)
	{
		itemHandlers(authorized, ctrl)
		bookingHandlers(authorized, ctrl)
		notificationHandlers(authorized, ctrl)
		commentHandlers(authorized, ctrl)
	}
}

func newAPI(cfg *config.Config, gormDB *gorm.DB, ctrl *controllers.Controller) *gin.Engine {
	router := setupRouter()
	router = corsMiddleware(router, cfg)
	router = maintenanceModeMiddleware(router, cfg.MaintenanceMode)
	registerRoutes(router, middlewares.AuthMiddleware(gormDB, cfg.JWTSecret), ctrl)
	return router
}

func initLogger(logDir string) {
	cwd, _ := os.Getwd()
	dir := logDir
	if !path.IsAbs(dir) {
		dir = path.Join(cwd, logDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Could not create log dir %s: %s\n", dir, err.Error())
		return
	}
	serverLogs := path.Join(dir, "server.log")
	apiLogs := path.Join(dir, "api.log")

	apiWriter := &lumberjack.Logger{
		Filename:   apiLogs,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}
	gin.DefaultWriter = io.MultiWriter(apiWriter, os.Stdout)
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	}))
}

func serve(cfg *config.Config) error {
	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	gormDB, err := boot.InitDb(cfg)
	if err != nil {
		return err
	}
	app, err := boot.NewApp(cfg, gormDB)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.InitScheduler(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newAPI(cfg, gormDB, app.Controller()),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.Printf("Listening on %s\n", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %s\n", err.Error())
			stop()
		}
	}()
	<-ctx.Done()

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "campusmarket",
		Short:         "Campus marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var cfg *config.Config
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		initLogger(cfg.LogDir)
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the booking sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and broker topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, err := boot.InitDb(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := gormDB.DB(); err == nil {
				defer sqlDB.Close()
			}
			if cfg.KafkaBroker == "" {
				return nil
			}
			results, err := lib.KafkaCreateTopics(cmd.Context(), cfg.KafkaBroker, cfg.TransitionsTopic)
			if err != nil {
				return err
			}
			for _, r := range results {
				log.Printf("Topic %s: %s\n", r.Topic, r.Error.String())
			}
			return nil
		},
	})

	var userID uint
	var ttl time.Duration
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed API token for an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.IsProd() {
				return errors.New("token issuing is disabled in production")
			}
			gormDB, err := db.Open(cfg.DatabaseDriver, cfg.DSN)
			if err != nil {
				return err
			}
			var user models.User
			if err := gormDB.First(&user, userID).Error; err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			token, err := middlewares.GenerateToken(cfg.JWTSecret, user.ID, user.Email, user.Name, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().UintVar(&userID, "user", 0, "user id")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("user")
	root.AddCommand(tokenCmd)

	var groupID string
	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Tail committed booking transitions from the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.KafkaBroker == "" {
				return errors.New("KAFKA_BROKER is not set")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			out := cmd.OutOrStdout()
			return lib.ConsumeTopic(ctx, cfg.KafkaBroker, groupID, cfg.TransitionsTopic, func(key []byte, value []byte) {
				fmt.Fprintf(out, "item=%s %s\n", key, value)
			})
		},
	}
	eventsCmd.Flags().StringVar(&groupID, "group", "campusmarket-events", "consumer group id")
	root.AddCommand(eventsCmd)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("Error: %s\n", err.Error())
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
