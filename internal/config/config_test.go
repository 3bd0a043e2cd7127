package config_test

import (
	"testing"

	"github.com/albumvault/catalogd/internal/config"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("MAX_PARALLEL_DOWNLOADS", "")

	c := config.Load()
	if c.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", c.HTTPPort)
	}
	if c.MaxParallelDownloads != 3 {
		t.Errorf("MaxParallelDownloads = %d, want 3", c.MaxParallelDownloads)
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("MAX_PARALLEL_DOWNLOADS", "7")
	t.Setenv("CACHE_QUOTA_BYTES", "123456789")

	c := config.Load()
	if c.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", c.HTTPPort)
	}
	if c.MaxParallelDownloads != 7 {
		t.Errorf("MaxParallelDownloads = %d, want 7", c.MaxParallelDownloads)
	}
	if c.CacheQuotaBytes != 123456789 {
		t.Errorf("CacheQuotaBytes = %d, want 123456789", c.CacheQuotaBytes)
	}
}

func TestValidate_RequiresJWTSecret(t *testing.T) {
	c := config.Config{MaxParallelDownloads: 3}
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for missing JWT secret")
	}
	c.JWTSecret = "s3cr3t"
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_RejectsOutOfRangeParallelism(t *testing.T) {
	c := config.Config{JWTSecret: "x", MaxParallelDownloads: 11}
	if err := c.Validate(); err == nil {
		t.Errorf("expected error for out-of-range MaxParallelDownloads")
	}
}
