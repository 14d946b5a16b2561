package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/tftp/internal/client"
	"github.com/Pablu23/tftp/internal/envelope"
	"github.com/Pablu23/tftp/internal/server"
	"github.com/Pablu23/tftp/internal/tftp"
)

type fileConfig struct {
	Address        string `toml:"address"`
	MaxDatagram    int    `toml:"max_datagram"`
	ReplyMalformed bool   `toml:"reply_malformed"`
	Key            string `toml:"key"`
	Timeout        string `toml:"timeout"`
	LogLevel       string `toml:"log_level"`
}

type config struct {
	Server   server.Options
	Client   client.Options
	LogLevel log.Level
}

func defaultConfig() config {
	return config{
		Server:   *server.NewDefaultOptions(),
		Client:   *client.NewDefaultOptions(),
		LogLevel: log.InfoLevel,
	}
}

// loadConfig overlays the keys defined in the TOML file at path on the
// defaults. An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("address") {
		cfg.Server.Address = strings.TrimSpace(raw.Address)
	}

	if meta.IsDefined("max_datagram") {
		if raw.MaxDatagram < tftp.DatagramSize {
			return config{}, fmt.Errorf("parse max_datagram: %d below %d", raw.MaxDatagram, tftp.DatagramSize)
		}
		cfg.Server.MaxDatagram = raw.MaxDatagram
		cfg.Client.MaxDatagram = raw.MaxDatagram
	}

	if meta.IsDefined("reply_malformed") {
		cfg.Server.ReplyMalformed = raw.ReplyMalformed
	}

	if meta.IsDefined("key") {
		key, err := parseKey(raw.Key)
		if err != nil {
			return config{}, err
		}
		cfg.Server.Key = key
		cfg.Client.Key = key
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Client.Timeout = d
	}

	if meta.IsDefined("log_level") {
		lvl, err := log.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}

	return cfg, nil
}

func parseKey(raw string) (*[envelope.KeySize]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}
	if len(b) != envelope.KeySize {
		return nil, fmt.Errorf("parse key: got %d bytes, want %d", len(b), envelope.KeySize)
	}
	key := [envelope.KeySize]byte(b)
	return &key, nil
}

func (cfg config) serverOptions(o *server.Options) {
	*o = cfg.Server
}

func (cfg config) clientOptions(o *client.Options) {
	*o = cfg.Client
}
