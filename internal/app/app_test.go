package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// setRequiredEnv は起動に必須の環境変数を設定する。
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/kiji_test?sslmode=disable")
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("BASE_URL", "http://localhost:8080")
}

func TestInit(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "prod")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if cfg.IsDev() {
		t.Error("IsDev() = true, want false")
	}

	// prodではDebugログは出力されない
	slog.Debug("debug message")
	if strings.Contains(buf.String(), "debug message") {
		t.Error("prodではDebugレベルを出力しないべき")
	}
}

func TestInit_DevEnablesDebugLog(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "dev")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !cfg.IsDev() {
		t.Error("IsDev() = false, want true")
	}

	// devではグローバルロガーがDebugレベルまで出力する
	slog.Debug("debug message")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("devではDebugレベルを出力するべき")
	}
}

func TestInit_MissingRequiredEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	if _, err := Init(&buf); err == nil {
		t.Fatal("Init() error = nil, want missing env error")
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{name: "引数なしはserve", args: nil, want: CommandServe},
		{name: "serve", args: []string{"serve"}, want: CommandServe},
		{name: "migrate", args: []string{"migrate"}, want: CommandMigrate},
		{name: "healthcheck", args: []string{"healthcheck"}, want: CommandHealthcheck},
		{name: "未知のコマンドはserve", args: []string{"bogus"}, want: CommandServe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCommand(tt.args); got != tt.want {
				t.Errorf("ParseCommand(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
