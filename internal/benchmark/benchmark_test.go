// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"commodore-cli/internal/config"
	"commodore-cli/internal/container"
	"commodore-cli/internal/executor"
	"commodore-cli/internal/fragment"
	"commodore-cli/internal/ledger"
	"commodore-cli/internal/manifest"
	"commodore-cli/internal/provision"
	"commodore-cli/internal/readiness"
	"commodore-cli/internal/shell"
	"commodore-cli/internal/testutil"
)

const (
	commodity = "db2_community"
	prefix    = "db2-community"

	// benchApps is the size of a large dev-env.
	benchApps = 50

	sampleConfig = `
root_dir: "/srv/dev-env"
container: {
	engine: "docker"
	compose_command: "docker compose"
}
readiness: {
	poll_interval: "2s"
	grace_delay: "7s"
	max_attempts: 120
}
acceptance: sql: [0, 2, 4, 6]
ledger: backend: "sqlite"
`
)

// newDevEnv creates benchApps applications. Even applications declare the
// commodity and ship a SQL fragment; every fourth one also ships a shell fragment.
func newDevEnv(b *testing.B) (*testutil.DevEnv, []string) {
	b.Helper()
	env := testutil.NewDevEnv(b)
	apps := make([]string, benchApps)
	for i := range apps {
		app := fmt.Sprintf("service-%02d", i)
		apps[i] = app
		if i%2 != 0 {
			env.WriteManifest(b, app, "postgres")
			continue
		}
		env.WriteManifest(b, app, "postgres", commodity)
		env.WriteFragment(b, app, fragment.FileName(prefix, fragment.KindSQL), "CONNECT TO "+app+";\n")
		if i%4 == 0 {
			env.WriteFragment(b, app, fragment.FileName(prefix, fragment.KindShell), "#!/bin/bash\n")
		}
	}
	env.WriteDevEnvConfig(b, apps...)
	return env, apps
}

// BenchmarkLoadDevEnv measures ordered extraction of the applications mapping.
func BenchmarkLoadDevEnv(b *testing.B) {
	env, _ := newDevEnv(b)

	b.ResetTimer()
	for b.Loop() {
		devEnv, err := config.LoadDevEnv(env.Root)
		if err != nil {
			b.Fatalf("LoadDevEnv failed: %v", err)
		}
		if len(devEnv.Applications) != benchApps {
			b.Fatalf("got %d applications", len(devEnv.Applications))
		}
	}
}

// BenchmarkConfigLoad measures CUE schema validation and viper decoding.
func BenchmarkConfigLoad(b *testing.B) {
	path := filepath.Join(b.TempDir(), config.LocalConfigFileName)
	testutil.MustWriteFile(b, path, sampleConfig)
	provider := config.NewProvider()
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		if _, err := provider.Load(ctx, config.LoadOptions{ConfigFilePath: path}); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// BenchmarkShouldProcess measures the gate and skip decision for every app.
func BenchmarkShouldProcess(b *testing.B) {
	env, apps := newDevEnv(b)
	l := ledger.NewMemoryLedger()
	gate := manifest.NewGate(env.Root, commodity)
	locator := fragment.NewLocator(env.Root, prefix, commodity, l)
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		for _, app := range apps {
			required, err := gate.Requires(ctx, app)
			if err != nil {
				b.Fatalf("Requires(%s) failed: %v", app, err)
			}
			if !required {
				continue
			}
			if _, err := locator.ShouldProcess(ctx, app, false); err != nil {
				b.Fatalf("ShouldProcess(%s) failed: %v", app, err)
			}
		}
	}
}

func benchmarkLedger(b *testing.B, store ledger.Store) {
	b.Helper()
	ctx := context.Background()
	keys := make([]ledger.Key, benchApps)
	for i := range keys {
		keys[i] = ledger.NewKey(fmt.Sprintf("service-%02d", i), commodity)
	}

	b.ResetTimer()
	i := 0
	for b.Loop() {
		key := keys[i%len(keys)]
		if err := store.Set(ctx, key, i%3 != 0); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
		if _, _, err := store.Get(ctx, key); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
		i++
	}
}

// BenchmarkFileLedger measures the TOML ledger, which rewrites the file on every Set.
func BenchmarkFileLedger(b *testing.B) {
	benchmarkLedger(b, ledger.NewFileLedger(filepath.Join(b.TempDir(), ".commodities.toml")))
}

// BenchmarkSQLiteLedger measures the SQLite ledger with attempt history.
func BenchmarkSQLiteLedger(b *testing.B) {
	store, err := ledger.OpenSQLiteLedger(filepath.Join(b.TempDir(), ".commodities.db"), ledger.WithRunID("bench"))
	if err != nil {
		b.Fatalf("OpenSQLiteLedger failed: %v", err)
	}
	b.Cleanup(func() { _ = store.Close() })
	benchmarkLedger(b, store)
}

// BenchmarkInterpRunner measures the embedded shell on a pipeline.
func BenchmarkInterpRunner(b *testing.B) {
	runner := shell.NewInterpRunner(shell.WithDir(b.TempDir()))
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		res, err := runner.Run(ctx, `echo '"healthy"' | cat`)
		if err != nil || res.ExitCode != 0 {
			b.Fatalf("Run failed: %v (exit %d)", err, res.ExitCode)
		}
	}
}

// BenchmarkOrchestratorRun measures a full run with a fresh container, so
// every declaring application is processed.
func BenchmarkOrchestratorRun(b *testing.B) {
	env, apps := newDevEnv(b)
	runner := testutil.NewScriptedRunner()
	runner.On("docker inspect", shell.Result{Lines: []string{`"healthy"`}})
	client := container.NewClient(runner, container.NewDockerEngine(), commodity)
	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		l := ledger.NewMemoryLedger()
		orch := provision.New(commodity, provision.Deps{
			Gate:      manifest.NewGate(env.Root, commodity),
			Locator:   fragment.NewLocator(env.Root, prefix, commodity, l),
			Readiness: readiness.NewMonitor(client, commodity, readiness.WithClock(testutil.NewAutoClock())),
			Executor:  executor.New(client),
			Ledger:    l,
		})
		report := orch.Run(ctx, apps, []string{commodity})
		if report.HasFailures() {
			b.Fatalf("run failed: %+v", report.Failed())
		}
	}
}
