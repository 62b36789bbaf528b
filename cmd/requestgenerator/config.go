package main

type config struct {
	BaseURL     string   `mapstructure:"base_url"`
	ProviderID  string   `mapstructure:"provider_id"`
	MsaID       string   `mapstructure:"msa_id"`
	PayloadType string   `mapstructure:"payload_type"`
	StreamKeys  []string `mapstructure:"stream_keys"`
	Interval    string   `mapstructure:"interval"`
	Count       int      `mapstructure:"count"`
}
