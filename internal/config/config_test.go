package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FAIRSHARE_TOKEN_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "fairshare.db" || cfg.LogLevel != "info" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PruneAt != "03:30" {
		t.Errorf("prune at = %q", cfg.PruneAt)
	}
	if cfg.RequestRetention != 90*24*time.Hour {
		t.Errorf("retention = %v", cfg.RequestRetention)
	}
	if cfg.PushEnabled() {
		t.Error("push should be disabled without keys")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("FAIRSHARE_TOKEN_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without token secret")
	}
}

func TestLoadTimezone(t *testing.T) {
	t.Setenv("FAIRSHARE_TOKEN_SECRET", "s3cret")
	t.Setenv("FAIRSHARE_TIMEZONE", "Asia/Seoul")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	loc, _ := cfg.Location()
	if loc.String() != "Asia/Seoul" {
		t.Errorf("location = %v", loc)
	}

	t.Setenv("FAIRSHARE_TIMEZONE", "Mars/Olympus")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestLoadClient(t *testing.T) {
	t.Setenv("FAIRSHARE_URL", "http://planner.local:9000")
	t.Setenv("FAIRSHARE_TOKEN", "tok")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.URL != "http://planner.local:9000" || cfg.Token != "tok" || cfg.Timeout != 45*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestBackupConfig(t *testing.T) {
	t.Setenv("FAIRSHARE_TOKEN_SECRET", "s3cret")
	t.Setenv("FAIRSHARE_S3_BUCKET", "household")
	t.Setenv("FAIRSHARE_S3_ACCESS_KEY", "ak")
	t.Setenv("FAIRSHARE_S3_SECRET_KEY", "sk")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backup().Enabled() {
		t.Error("backups need a passphrase")
	}

	t.Setenv("FAIRSHARE_BACKUP_PASSPHRASE", "correct horse")
	cfg, _ = Load()
	b := cfg.Backup()
	if !b.Enabled() || b.S3.Region != "us-east-1" || b.Prefix != "fairshare/" || b.Retention != 30*24*time.Hour {
		t.Errorf("backup = %+v", b)
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	t.Setenv("FAIRSHARE_TOKEN_SECRET", "s3cret")
	t.Setenv("FAIRSHARE_TRUSTED_PROXIES", "127.0.0.1,10.0.0.0/8")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "10.0.0.0/8" {
		t.Errorf("trusted proxies = %v", cfg.TrustedProxies)
	}
}
