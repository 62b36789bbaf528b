package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	interval, _ := time.ParseDuration(cfg.Interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 10 * time.Second}
	for sent := 0; cfg.Count <= 0 || sent < cfg.Count; sent++ {
		req := buildRequest(cfg, sent)
		if err := sendRequest(client, cfg.BaseURL, req); err != nil {
			fmt.Fprintln(os.Stderr, "request error:", err)
		}
		<-ticker.C
	}
}

func loadConfig(path string) (config, error) {
	if strings.TrimSpace(path) == "" {
		return config{}, fmt.Errorf("config path is required")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("payload_type", string(domain.TxBatchAnnouncement))
	v.SetDefault("interval", "1s")
	if err := v.ReadInConfig(); err != nil {
		return config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.ProviderID = strings.TrimSpace(cfg.ProviderID)
	cfg.PayloadType = strings.ToUpper(strings.TrimSpace(cfg.PayloadType))
	cfg.Interval = strings.TrimSpace(cfg.Interval)

	if cfg.BaseURL == "" || cfg.ProviderID == "" {
		return config{}, fmt.Errorf("config must include base_url, provider_id")
	}
	txType := domain.TxType(cfg.PayloadType)
	if !txType.Valid() {
		return config{}, fmt.Errorf("unknown payload_type %q", cfg.PayloadType)
	}
	if txType == domain.TxBatchAnnouncement && len(cfg.StreamKeys) == 0 {
		return config{}, fmt.Errorf("stream_keys are required for %s", domain.TxBatchAnnouncement)
	}

	parsed, err := time.ParseDuration(cfg.Interval)
	if err != nil {
		return config{}, fmt.Errorf("invalid interval duration: %w", err)
	}
	if parsed <= 0 {
		return config{}, fmt.Errorf("interval must be positive")
	}

	return cfg, nil
}

// buildRequest rotates batched requests across the configured streams.
func buildRequest(cfg config, index int) domain.WriteRequest {
	id := uuid.NewString()
	req := domain.WriteRequest{
		ID:          id,
		PayloadType: domain.TxType(cfg.PayloadType),
		ProviderID:  cfg.ProviderID,
		MsaID:       cfg.MsaID,
	}
	if len(cfg.StreamKeys) > 0 {
		req.StreamKey = cfg.StreamKeys[index%len(cfg.StreamKeys)]
	}
	req.Payload, _ = json.Marshal(map[string]any{
		"referenceId": id,
		"generatedAt": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return req
}

func sendRequest(client *http.Client, baseURL string, req domain.WriteRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+"/v1/requests", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("intake rejected %s: %s", req.ID, strings.TrimSpace(string(payload)))
	}

	fmt.Printf("Accepted: %s (ref %s, stream %q)\n", resp.Status, req.ID, req.StreamKey)
	return nil
}
