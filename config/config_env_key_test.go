package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"realtime": map[string]any{
			"sendBuffer":   256,
			"pingInterval": "30s",
		},
		"recommender": map[string]any{
			"apiKey": "",
		},
		"secretKey": map[string]any{
			"access": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "REALTIME_SENDBUFFER", want: "realtime.sendBuffer"},
		{envKey: "REALTIME_PINGINTERVAL", want: "realtime.pingInterval"},
		{envKey: "RECOMMENDER_APIKEY", want: "recommender.apiKey"},
		{envKey: "SECRETKEY_ACCESS", want: "secretKey.access"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyRealtimeDefaults(t *testing.T) {
	cfg := &Config{}
	applyRealtimeDefaults(cfg)

	if cfg.Realtime == nil {
		t.Fatal("expected realtime section to be populated")
	}
	if cfg.Realtime.Path != "/ws/orders" {
		t.Fatalf("unexpected default path %q", cfg.Realtime.Path)
	}
	if cfg.Realtime.SendBuffer != 256 {
		t.Fatalf("unexpected default send buffer %d", cfg.Realtime.SendBuffer)
	}
	if cfg.Realtime.PongWait <= cfg.Realtime.PingInterval {
		t.Fatal("pong wait must exceed ping interval")
	}
}
