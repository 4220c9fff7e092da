package migrations

import "embed"

// PostgresFS embeds the risk_scenarios and simulation_runs migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the outcome_samples migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
