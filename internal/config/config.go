// Package config defines the canonical, JSON-serializable configuration model
// for the retail analytics pipeline. It is intentionally small, explicit, and
// dependency-free so that pipelines can be loaded from disk (or other sources)
// and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: field names in Go mirror the JSON structure used in pipeline
//     files under configs/*.json.
//  3. Minimalism: decoding is performed by the standard library; the only
//     external input beyond the file are a handful of environment overrides
//     (12-factor style) applied by ApplyEnv.
//
// Example (trimmed):
//
//	{
//	  "job":     "retail_analytics",
//	  "source":  { "base_path": "/data/olist" },
//	  "engine":  { "kind": "sqlite", "dsn": "file:retail.db" },
//	  "output":  { "path": "/warehouse/retail_analytics" },
//	  "catalog": { "path": "/warehouse/catalog.db", "table": "retail_fact_orders" }
//	}
package config

import "os"

// Pipeline describes the full analytics pipeline in JSON. It is the top-level
// object decoded from a pipeline file.
type Pipeline struct {
	// Job is the logical run name used for logging and metrics labeling.
	Job string `json:"job"`

	// Source describes where the seven delimited input files live.
	Source Source `json:"source"`

	// Engine selects and configures the SQL engine the declarative
	// transformations are delegated to.
	Engine Engine `json:"engine"`

	// Output configures the columnar sink.
	Output Output `json:"output"`

	// Catalog configures the external-table catalog.
	Catalog Catalog `json:"catalog"`

	// Report tunes the aggregate result sizes. Zero values fall back to the
	// defaults applied by ApplyDefaults.
	Report Report `json:"report"`

	// Runtime controls loader batching and buffering.
	Runtime RuntimeConfig `json:"runtime"`

	// Metrics optionally enables a metrics push backend.
	Metrics Metrics `json:"metrics"`
}

// Source identifies the input dataset location.
type Source struct {
	// BasePath is the directory containing the seven Olist CSV files.
	BasePath string `json:"base_path"`

	// Comma optionally overrides the field delimiter (single character).
	// Empty means ','.
	Comma string `json:"comma"`
}

// Engine selects the SQL engine backend.
type Engine struct {
	// Kind selects the engine implementation: "sqlite" (embedded, default)
	// or "postgres".
	Kind string `json:"kind"`

	// DSN is the engine connection string. For sqlite this is a file DSN
	// (e.g., "file:retail.db?cache=shared"); for postgres a pgxpool DSN.
	DSN string `json:"dsn"`
}

// Output configures the columnar file sink.
type Output struct {
	// Path is the warehouse directory; the fact table is written beneath it
	// at <path>/fact_orders. Prior content at that location is overwritten.
	Path string `json:"path"`
}

// Catalog configures the external table catalog.
type Catalog struct {
	// Path is the catalog metastore file location.
	Path string `json:"path"`

	// Table is the external table name registered over the sink output.
	Table string `json:"table"`
}

// Report holds the aggregate result-set sizes.
type Report struct {
	// TopProducts is the product-revenue leaderboard length.
	TopProducts int `json:"top_products"`

	// TopPerSeller is the per-seller dense-rank cutoff.
	TopPerSeller int `json:"top_per_seller"`

	// TopCustomers is the customer order-count leaderboard length.
	TopCustomers int `json:"top_customers"`

	// SellerPreview is the number of per-seller rows echoed to the report
	// output; the full result set is still computed.
	SellerPreview int `json:"seller_preview"`
}

// RuntimeConfig controls batching and channel buffer sizes for the loader.
type RuntimeConfig struct {
	// BatchSize is the number of rows per bulk-load call.
	BatchSize int `json:"batch_size"`

	// ChannelBuffer is the row channel capacity between parser and loader.
	ChannelBuffer int `json:"channel_buffer"`

	// SampleRows is the number of leading rows inspected for type inference.
	SampleRows int `json:"sample_rows"`
}

// Metrics selects an optional metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog", "none", or empty (disabled).
	Backend string `json:"backend"`

	// PushgatewayURL is the Pushgateway base URL for the "pushgateway" kind.
	PushgatewayURL string `json:"pushgateway_url"`

	// DatadogAddr is the DogStatsD address for the "datadog" kind.
	DatadogAddr string `json:"datadog_addr"`
}

// Defaults applied by ApplyDefaults when the corresponding field is zero.
const (
	DefaultEngineKind    = "sqlite"
	DefaultCatalogTable  = "retail_fact_orders"
	DefaultTopProducts   = 10
	DefaultTopPerSeller  = 5
	DefaultTopCustomers  = 10
	DefaultSellerPreview = 20
	DefaultBatchSize     = 1000
	DefaultChannelBuffer = 256
	DefaultSampleRows    = 200
)

// ApplyDefaults fills zero-valued tunables in place. It never overrides a
// value the operator set explicitly.
func ApplyDefaults(p *Pipeline) {
	if p.Engine.Kind == "" {
		p.Engine.Kind = DefaultEngineKind
	}
	if p.Catalog.Table == "" {
		p.Catalog.Table = DefaultCatalogTable
	}
	if p.Report.TopProducts <= 0 {
		p.Report.TopProducts = DefaultTopProducts
	}
	if p.Report.TopPerSeller <= 0 {
		p.Report.TopPerSeller = DefaultTopPerSeller
	}
	if p.Report.TopCustomers <= 0 {
		p.Report.TopCustomers = DefaultTopCustomers
	}
	if p.Report.SellerPreview <= 0 {
		p.Report.SellerPreview = DefaultSellerPreview
	}
	if p.Runtime.BatchSize <= 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Runtime.ChannelBuffer <= 0 {
		p.Runtime.ChannelBuffer = DefaultChannelBuffer
	}
	if p.Runtime.SampleRows <= 0 {
		p.Runtime.SampleRows = DefaultSampleRows
	}
}

// Environment variables recognized by ApplyEnv. Base and output paths are the
// only externally configurable contract values; the rest exist so deployments
// can keep credentials out of the pipeline file.
const (
	EnvBasePath    = "RETAIL_BASE_PATH"
	EnvOutputPath  = "RETAIL_OUTPUT_PATH"
	EnvEngineDSN   = "RETAIL_ENGINE_DSN"
	EnvCatalogPath = "RETAIL_CATALOG_PATH"
)

// ApplyEnv overlays recognized environment variables onto the pipeline.
// A set variable always wins over the file value.
func ApplyEnv(p *Pipeline) {
	if v := os.Getenv(EnvBasePath); v != "" {
		p.Source.BasePath = v
	}
	if v := os.Getenv(EnvOutputPath); v != "" {
		p.Output.Path = v
	}
	if v := os.Getenv(EnvEngineDSN); v != "" {
		p.Engine.DSN = v
	}
	if v := os.Getenv(EnvCatalogPath); v != "" {
		p.Catalog.Path = v
	}
}
