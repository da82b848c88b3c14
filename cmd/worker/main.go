package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitorgate/internal/backup"
	"visitorgate/internal/config"
	"visitorgate/internal/metrics"
	"visitorgate/internal/queue"
)

// Worker consumes backup jobs and uploads the datastore file to Dropbox.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(cfg.RedisAddr, "")
	}

	var uploader *backup.Client
	if cfg.DropboxToken != "" {
		uploader = backup.New(cfg.DropboxToken)
		log.Println("Dropbox backup configured")
	} else {
		log.Println("Dropbox not configured (DROPBOX_TOKEN not set); backup jobs will be skipped")
	}

	jobs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for backup jobs...")
	for job := range jobs {
		if uploader == nil {
			log.Printf("backup job %s skipped: no access token", job.ID)
			metrics.BackupsTotal.WithLabelValues("skipped").Inc()
			continue
		}

		path := job.DBPath
		if path == "" {
			path = cfg.DBPath
		}
		at := job.RequestedAt
		if at.IsZero() {
			at = time.Now()
		}

		result, err := uploader.UploadFile(ctx, path, backup.Name(at))
		if err != nil {
			log.Printf("backup job %s failed: %v", job.ID, err)
			metrics.BackupsTotal.WithLabelValues("failed").Inc()
			continue
		}

		metrics.BackupsTotal.WithLabelValues("ok").Inc()
		log.Printf("backup job %s uploaded: %s (%d bytes)", job.ID, result.PathDisplay, result.Size)
	}

	log.Println("worker stopped")
}
