// Package config reads and writes the smsvault config file
// (~/.smsvault/config.toml by default).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Server describes the remote IMAP endpoint.
type Server struct {
	Host               string `toml:"host"`
	Port               int    `toml:"port"`
	TLS                bool   `toml:"tls"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// Addr returns the dial address for the endpoint.
func (s Server) Addr() string {
	port := s.Port
	if port == 0 {
		if s.TLS {
			port = 993
		} else {
			port = 143
		}
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}

// Auth holds the credentials for the remote store. Method is "plain" or
// "oauth2".
type Auth struct {
	Method       string `toml:"method"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	RefreshToken string `toml:"refresh_token"`
}

// Backup holds per-run backup tuning.
type Backup struct {
	MaxItemsPerRun int      `toml:"max_items_per_run"`
	ContactGroup   string   `toml:"contact_group"`
	MarkAsRead     string   `toml:"mark_as_read"` // read, unread, message_status
	AddressStyle   string   `toml:"address_style"`
	SubjectPrefix  bool     `toml:"subject_prefix"`
	CallLogTypes   []string `toml:"call_log_types"` // empty = everything
	Identities     []string `toml:"identities"`     // known device identities (multi-SIM)
	Identity       string   `toml:"identity"`       // identity to back up when several exist
}

// Restore holds per-run restore tuning.
type Restore struct {
	MaxRestore  int  `toml:"max_restore"`
	StarredOnly bool `toml:"starred_only"`
	MarkAsRead  bool `toml:"mark_as_read"` // force restored messages to read
}

// Config represents the full config file.
type Config struct {
	Owner    string            `toml:"owner"` // owner email address
	DataDir  string            `toml:"data_dir"`
	Server   Server            `toml:"server"`
	Auth     Auth              `toml:"auth"`
	Backup   Backup            `toml:"backup"`
	Restore  Restore           `toml:"restore"`
	Folders  map[string]string `toml:"folders"` // category name -> folder override
	Platform int               `toml:"platform_version"`
}

// Load reads config from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(path)
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// StoreURI renders the configured endpoint as an imap URI with embedded
// credentials. It is never logged directly; see imapx.MaskURI.
func (c *Config) StoreURI() string {
	scheme := "imap"
	if c.Server.TLS {
		scheme = "imap+ssl"
	}
	return fmt.Sprintf("%s://%s:%s@%s", scheme, c.Auth.Username, c.Auth.Password, c.Server.Addr())
}
