package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-subscribe/internal/config"
	"github.com/noah-isme/toko-subscribe/internal/jobs"
	"github.com/noah-isme/toko-subscribe/internal/obs"
)

func main() {
	action := flag.String("action", "close", "task to enqueue: close or issue_next")
	planFlag := flag.String("plan", "", "plan id")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "plans").Logger()

	planID, err := uuid.Parse(*planFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "a valid -plan id is required")
		os.Exit(2)
	}

	opt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := asynq.NewClient(opt)
	defer client.Close()

	enqueuer := jobs.Enqueuer{Client: client, MaxRetry: cfg.JobMaxRetry, UniqueFor: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var info *asynq.TaskInfo
	switch *action {
	case "close":
		info, err = enqueuer.ClosePlan(ctx, planID)
	case "issue_next":
		info, err = enqueuer.IssueNext(ctx, planID)
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", *action)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal().Err(err).Str("plan_id", planID.String()).Msg("enqueue task")
	}
	if info == nil {
		logger.Info().Str("plan_id", planID.String()).Msg("task already queued")
		return
	}
	logger.Info().Str("task_id", info.ID).Str("type", info.Type).Str("plan_id", planID.String()).Msg("task enqueued")
}
