package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sqlstore "github.com/zzstoatzz/statuswire/store/sql"
)

func TestFileConfigLoaderBlankPathYieldsEmptyLayer(t *testing.T) {
	values, err := fileConfigLoader{}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty layer, got %#v", values)
	}
}

func TestFileConfigLoaderReadsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"environment":"production","dispatch":{"queue_size":64}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	values, err := fileConfigLoader{path: path}.LoadRaw(context.Background())
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if values["environment"] != "production" {
		t.Fatalf("expected environment layer, got %#v", values)
	}
}

func TestFileConfigLoaderRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := (fileConfigLoader{path: path}).LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfigAppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"dispatch":{"queue_size":64}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(context.Background(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Dispatch.QueueSize != 64 {
		t.Fatalf("expected file queue size, got %d", cfg.Dispatch.QueueSize)
	}
	if cfg.ServiceName != "statuswire" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	if _, _, err := openDatabase("oracle", "dsn"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, _, err := openDatabase("sqlite", "  "); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}

func TestBuildRepositoryFactoryCachesSubscriptionReads(t *testing.T) {
	db, _, err := openDatabase("sqlite", "file:serve-factory?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	factory, err := buildRepositoryFactory(db)
	if err != nil {
		t.Fatalf("build repository factory: %v", err)
	}
	if _, ok := factory.SubscriptionStore().(*sqlstore.CachedSubscriptionStore); !ok {
		t.Fatalf("expected cached subscription store, got %T", factory.SubscriptionStore())
	}

	plain, err := sqlstore.NewRepositoryFactoryFromDB(db)
	if err != nil {
		t.Fatalf("build plain factory: %v", err)
	}
	if _, ok := plain.SubscriptionStore().(*sqlstore.CachedSubscriptionStore); ok {
		t.Fatalf("expected uncached subscription store without cache service")
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(out.String(), "statuswired") {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestSlogProviderResolvesNamedLoggers(t *testing.T) {
	provider := newSlogProvider("debug")
	logger := provider.GetLogger("statuswire.firehose")
	if logger == nil {
		t.Fatalf("expected logger")
	}
	logger.Debug("probe", "k", "v")

	var nilProvider *slogProvider
	if nilProvider.GetLogger("x") == nil {
		t.Fatalf("nil provider should fall back to nop logger")
	}
}
