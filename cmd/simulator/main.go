package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	"devflow/internal/utils"
	"devflow/simulator"

	"go.uber.org/zap"
)

func main() {
	config := simulator.DefaultConfig()
	flag.StringVar(&config.EngineURL, "url", config.EngineURL, "engine base URL")
	flag.IntVar(&config.NumUsers, "users", config.NumUsers, "number of users to sign up")
	flag.IntVar(&config.NumQuestions, "questions", config.NumQuestions, "number of questions to ask")
	flag.IntVar(&config.NumVotes, "votes", config.NumVotes, "number of votes to cast")
	flag.IntVar(&config.NumEdits, "edits", config.NumEdits, "number of tag edits")
	flag.IntVar(&config.Workers, "workers", config.Workers, "concurrent clients")
	flag.Float64Var(&config.ZipfS, "zipf", config.ZipfS, "Zipf exponent for question popularity (> 1)")
	flag.Int64Var(&config.Seed, "seed", 0, "workload seed (0 picks one)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run limit")
	env := flag.String("env", "development", "logger environment")
	flag.Parse()

	logger, err := utils.NewLogger(*env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	sim := simulator.NewSimulator(config, logger)
	report, err := sim.Run(ctx)
	if err != nil {
		logger.Fatal("Simulation failed", zap.Error(err))
	}

	metrics := sim.GetMetrics()
	logger.Info("Simulation completed",
		zap.Int("users", metrics.TotalUsers),
		zap.Int("questions", metrics.TotalQuestions),
		zap.Int("votes", metrics.TotalVotes),
		zap.Int("edits", metrics.TotalEdits),
		zap.Int64("errors", metrics.ErrorCount),
		zap.Duration("avgLatency", metrics.AverageLatency),
		zap.Float64("requestsPerSecond", metrics.RequestsPerSecond),
	)
	if !report.OK() {
		logger.Sync()
		os.Exit(1)
	}
}
