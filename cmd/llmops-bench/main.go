// Command llmops-bench runs the provider benchmark suites and prints a
// side-by-side comparison.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hirepath/llmops/internal/benchmark"
	"github.com/hirepath/llmops/internal/config"
	"github.com/hirepath/llmops/internal/llmops"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "llmops.yaml", "Path to configuration file")
	providerName := flag.String("provider", "", "Provider to benchmark (empty = all enabled providers)")
	model := flag.String("model", "", "Model override (empty = provider default)")
	suite := flag.String("suite", "", "Benchmark suite to run (empty = full catalogue)")
	concurrency := flag.Int("concurrency", 1, "Concurrent in-flight tests per provider")
	listSuites := flag.Bool("list-suites", false, "List available suites and exit")
	flag.Parse()

	logger := setupLogger()

	if *listSuites {
		for _, name := range benchmark.Suites() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	manager, err := llmops.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create LLM operations manager")
	}
	defer manager.Close()

	targets := manager.Providers()
	if *providerName != "" {
		targets = []string{*providerName}
	}

	ctx := context.Background()
	var benchmarks []benchmark.ProviderBenchmark
	for _, name := range targets {
		bench, err := manager.RunBenchmark(ctx, name, *model, *suite, *concurrency)
		if err != nil {
			logger.Error().Str("provider", name).Err(err).Msg("Benchmark run failed")
			continue
		}
		benchmarks = append(benchmarks, *bench)
		printBenchmark(bench)
	}

	if len(benchmarks) < 2 {
		return
	}

	comparison, err := manager.CompareBenchmarks(benchmarks)
	if err != nil {
		logger.Fatal().Err(err).Msg("Comparison failed")
	}
	printComparison(comparison)
}

func printBenchmark(b *benchmark.ProviderBenchmark) {
	fmt.Printf("\n%s (%s)\n", b.Provider, b.Model)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("  tests:         %d (%d ok, %d failed)\n", b.TotalTests, b.Succeeded, b.Failed)
	fmt.Printf("  latency:       avg %v / median %v / p95 %v\n", b.AvgLatency.Round(time.Millisecond), b.MedianLatency.Round(time.Millisecond), b.P95Latency.Round(time.Millisecond))
	fmt.Printf("  tokens:        %d ($%.5f)\n", b.TotalTokens, b.TotalCost)
	fmt.Printf("  quality:       %.3f\n", b.AvgQuality)
	fmt.Printf("  overall score: %.3f\n", b.OverallScore)
}

func printComparison(c *benchmark.Comparison) {
	fmt.Println("\nComparison")
	fmt.Println(strings.Repeat("=", 40))
	for metric, winner := range c.BestByMetric {
		fmt.Printf("  best %-18s %s\n", metric+":", winner)
	}
	fmt.Println("\nRanking")
	for i, r := range c.Ranking {
		fmt.Printf("  %d. %s (%s) score %.3f\n", i+1, r.Provider, r.Model, r.OverallScore)
	}
}

// setupLogger configures zerolog.
func setupLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).
		With().
		Timestamp().
		Logger()

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
