package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"retailetl/internal/config"
	"retailetl/internal/metrics"
	"retailetl/internal/metrics/datadog"
	"retailetl/internal/metrics/prompush"

	// register all engine backends with the factory.
	_ "retailetl/internal/engine/all"
)

// main loads the pipeline config, optionally initializes a metrics backend,
// and executes the batch run. Exit codes: 0 on success, 1 on a pipeline
// failure, 2 when the post-write validation fails (the dataset was already
// published).
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/retail.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend (pushgateway, datadog, none); overrides the config")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	// A .env next to the binary feeds the RETAIL_* overrides; absence is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("env: %v", err)
	}

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}

	var p config.Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		f.Close()
		fatalf("decode config: %v", err)
	}
	f.Close()

	config.ApplyDefaults(&p)
	config.ApplyEnv(&p)

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	setupMetrics(p, metricsBackendFlg, pushGatewayURLFlg, *verbose)

	ctx := context.Background()
	start := time.Now()

	err = run(ctx, p, os.Stdout)
	if flushErr := metrics.Flush(); flushErr != nil {
		log.Printf("metrics: flush error: %v", flushErr)
	}
	switch {
	case errors.Is(err, errValidationFailed):
		log.Printf("validation failed after publish: %v", err)
		os.Exit(2)
	case err != nil:
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics resolves the backend name (flag wins over config, config over
// METRICS_BACKEND) and installs it. Failures fall back to the nop backend.
func setupMetrics(p config.Pipeline, backendFlag, gatewayFlag string, verbose bool) {
	backendName := backendFlag
	if backendName == "" {
		backendName = p.Metrics.Backend
	}
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	jobName := p.Job
	if jobName == "" {
		jobName = "retailetl"
	}

	switch backendName {
	case "pushgateway":
		gwURL := gatewayFlag
		if gwURL == "" {
			gwURL = p.Metrics.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: pushgateway init failed: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, jobName)
		metrics.SetBackend(b)

	case "datadog":
		addr := p.Metrics.DatadogAddr
		if addr == "" {
			addr = os.Getenv("DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Namespace: "retailetl."})
		if err != nil {
			log.Printf("metrics: datadog init failed: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", addr, jobName)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
