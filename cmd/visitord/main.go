package main

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visitorgate/internal/auth"
	"visitorgate/internal/camera"
	"visitorgate/internal/config"
	"visitorgate/internal/entry"
	"visitorgate/internal/face"
	"visitorgate/internal/httpmiddleware"
	"visitorgate/internal/ledger"
	"visitorgate/internal/metrics"
	"visitorgate/internal/queue"
	"visitorgate/internal/session"
	"visitorgate/internal/snapshot"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	led := ledger.New(cfg.DBPath)
	if err := led.EnsureSchema(context.Background()); err != nil {
		log.Printf("warning: store not reachable: %v", err)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(cfg.RedisAddr, "")
	}

	source := camera.NewGocvSource()
	cameras := camera.Probe(source, cfg.CameraProbeMax)
	log.Printf("cameras available: %v", cameras)

	var locator face.Locator
	if cascade, err := face.NewCascadeLocator(cfg.CascadePath); err != nil {
		log.Printf("warning: face cascade unavailable, snapshots use the full frame: %v", err)
		locator = face.None{}
	} else {
		locator = cascade
		defer cascade.Close()
	}

	producer := snapshot.NewProducer(locator, cfg.StagingPath())
	preview := &latestFrame{}
	sess := session.New(source, producer, preview, cfg.PollInterval)
	defer sess.Close()

	builder := entry.NewBuilder(led, producer, q, cfg.DefaultPhotoPath(), cfg.DBPath)
	gate := auth.Gate{Username: cfg.AdminUser, Password: cfg.AdminPass}
	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics", "/v1/camera/preview"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	// The preview is polled continuously, far above the per-minute budget.
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).
		GinMiddleware("/v1/camera/preview", "/healthz", "/metrics"))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		queueHealthy := q.Healthy(c.Request.Context())
		storeHealthy := led.Ping(c.Request.Context()) == nil
		status := http.StatusOK
		if !storeHealthy || !queueHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "queue": queueHealthy, "store": storeHealthy})
	})

	r.GET("/v1/now", func(c *gin.Context) {
		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"time": now.Format(ledger.TimeLayout),
			"date": now.Format(ledger.DateLayout),
		})
	})

	r.GET("/v1/cameras", func(c *gin.Context) {
		current, streaming := sess.DeviceIndex()
		resp := gin.H{"cameras": cameras, "state": sess.State().String()}
		if streaming {
			resp["current"] = current
		}
		c.JSON(http.StatusOK, resp)
	})

	r.POST("/v1/camera/open", func(c *gin.Context) {
		var req struct {
			Index int `json:"index"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := sess.Open(req.Index); err != nil {
			c.JSON(cameraErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": sess.State().String(), "index": req.Index})
	})

	r.POST("/v1/camera/device", func(c *gin.Context) {
		var req struct {
			Index int `json:"index"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := sess.ChangeDevice(req.Index); err != nil {
			c.JSON(cameraErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": sess.State().String(), "index": req.Index})
	})

	r.POST("/v1/camera/snap", func(c *gin.Context) {
		data, err := sess.Snap()
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		metrics.SnapshotsTaken.Inc()
		c.JSON(http.StatusOK, gin.H{"staged": true, "bytes": len(data)})
	})

	r.POST("/v1/camera/close", func(c *gin.Context) {
		sess.Close()
		c.JSON(http.StatusOK, gin.H{"state": sess.State().String()})
	})

	r.GET("/v1/camera/preview", func(c *gin.Context) {
		data, ok := preview.JPEG()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no frame yet"})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", data)
	})

	r.POST("/v1/records", func(c *gin.Context) {
		var form entry.Form
		if err := c.ShouldBindJSON(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := builder.Save(c.Request.Context(), form)
		if err != nil {
			var verr entry.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		metrics.SavesTotal.WithLabelValues(result.Outcome.String()).Inc()
		c.JSON(http.StatusOK, gin.H{
			"outcome":       result.Outcome.String(),
			"default_photo": result.DefaultPhoto,
		})
	})

	r.GET("/v1/records/lookup", func(c *gin.Context) {
		tag := c.Query("tag")
		name := c.Query("name")
		if tag == "" && name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tag or name required"})
			return
		}
		date := time.Now().Format(ledger.DateLayout)
		rec, err := led.FindByIdentityAndDate(c.Request.Context(), tag, name, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no record for today"})
			return
		}
		resp := gin.H{"record": rec}
		if len(rec.Picture) > 0 {
			resp["picture"] = base64.StdEncoding.EncodeToString(rec.Picture)
		} else {
			resp["default_photo"] = cfg.DefaultPhotoPath()
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/v1/records", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			date = time.Now().Format(ledger.DateLayout)
		}
		entries, err := led.ListByDate(c.Request.Context(), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": date, "records": entries})
	})

	r.POST("/v1/admin/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !gate.Check(req.Username, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		token, expiresAt, err := auth.Issue(req.Username, "admin", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_at": expiresAt.Unix()})
	})

	adminGroup := r.Group("/v1", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	adminGroup.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"cameras":    cameras,
			"db_path":    cfg.DBPath,
			"images_dir": cfg.ImagesDir,
			"dark_theme": cfg.DarkTheme,
		})
	})

	adminGroup.POST("/backup", func(c *gin.Context) {
		job := queue.NewBackupJob(cfg.DBPath)
		if err := q.Publish(ctx, job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "backup enqueue failed"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "job_id": job.ID})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// cameraErrorStatus maps capture errors onto HTTP statuses.
func cameraErrorStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CORS middleware for browser requests from the operator frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
