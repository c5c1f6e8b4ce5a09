package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望 port=8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.TxIsolation != "serializable" {
		t.Errorf("期望默认隔离级别 serializable，实际=%s", cfg.Database.TxIsolation)
	}
	if cfg.Cache.ForestTTL != 5*time.Minute {
		t.Errorf("期望 forest_ttl=5m，实际=%s", cfg.Cache.ForestTTL)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis 默认应关闭")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("LOCATION_SERVER_PORT", "9090")
	t.Setenv("LOCATION_DB_TX_ISOLATION", "read_committed")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.TxIsolation != "read_committed" {
		t.Errorf("期望 read_committed，实际=%s", cfg.Database.TxIsolation)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("GO_ENV", "test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 7000\ndb:\n  name: tree_test\nlog:\n  format: console\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("期望 port=7000，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Name != "tree_test" {
		t.Errorf("期望 db.name=tree_test，实际=%s", cfg.Database.Name)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("期望 log.format=console，实际=%s", cfg.Log.Format)
	}
}

func TestValidate_InvalidIsolation(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{TxIsolation: "chaos"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("非法隔离级别应校验失败")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 70000},
		Database: DatabaseConfig{TxIsolation: "serializable"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("非法端口应校验失败")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := &DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p",
		Name: "locations", SSLMode: "disable", Timezone: "UTC",
	}
	want := "host=db port=5432 user=u password=p dbname=locations sslmode=disable TimeZone=UTC"
	if got := c.DSN(); got != want {
		t.Errorf("DSN 不符\n期望: %s\n实际: %s", want, got)
	}
}
