package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultRetentionDays is used by freshness containers that do not set
// retention_days explicitly.
const DefaultRetentionDays = 90

type Config struct {
	Version       int                  `yaml:"version"`
	Containers    []ContainerConfig    `yaml:"containers"`
	Storage       []StorageConfig      `yaml:"storage"`
	Notifications []NotificationConfig `yaml:"notifications"`
}

// ContainerConfig describes one sweep target: a root prefix inside a named
// storage backend, plus the emptiness policy applied to it.
type ContainerConfig struct {
	Name          string `yaml:"name"`
	Storage       string `yaml:"storage"`
	Root          string `yaml:"root"`
	Policy        string `yaml:"policy"`
	RetentionDays int    `yaml:"retention_days"`
	Schedule      string `yaml:"schedule"`
}

type StorageConfig struct {
	Name  string       `yaml:"name"`
	Type  string       `yaml:"type"`
	S3    *S3Config    `yaml:"s3"`
	Minio *MinioConfig `yaml:"minio"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type NotificationConfig struct {
	Type   string              `yaml:"type"`
	On     []string            `yaml:"on"`
	Config NotificationDetails `yaml:"config"`
}

type NotificationDetails struct {
	SMTPHost string            `yaml:"smtp_host"`
	SMTPPort int               `yaml:"smtp_port"`
	From     string            `yaml:"from"`
	To       string            `yaml:"to"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ModifyConfig(&cfg)

	return &cfg, nil
}

// ModifyConfig expands ${ENV} references and normalizes container roots so a
// non-empty root always carries a trailing delimiter.
func ModifyConfig(cfg *Config) {
	for i := range cfg.Containers {
		ct := &cfg.Containers[i]
		ct.Name = os.ExpandEnv(ct.Name)
		ct.Storage = os.ExpandEnv(ct.Storage)
		ct.Root = NormalizeRoot(os.ExpandEnv(ct.Root))
		ct.Policy = strings.ToLower(strings.TrimSpace(os.ExpandEnv(ct.Policy)))
		ct.Schedule = os.ExpandEnv(ct.Schedule)
	}

	for i := range cfg.Storage {
		st := &cfg.Storage[i]
		st.Name = os.ExpandEnv(st.Name)
		st.Type = os.ExpandEnv(st.Type)
		if st.S3 != nil {
			st.S3.Bucket = os.ExpandEnv(st.S3.Bucket)
			st.S3.Region = os.ExpandEnv(st.S3.Region)
			st.S3.Endpoint = os.ExpandEnv(st.S3.Endpoint)
			st.S3.AccessKey = os.ExpandEnv(st.S3.AccessKey)
			st.S3.SecretKey = os.ExpandEnv(st.S3.SecretKey)
		}
		if st.Minio != nil {
			st.Minio.Endpoint = os.ExpandEnv(st.Minio.Endpoint)
			st.Minio.Bucket = os.ExpandEnv(st.Minio.Bucket)
			st.Minio.AccessKey = os.ExpandEnv(st.Minio.AccessKey)
			st.Minio.SecretKey = os.ExpandEnv(st.Minio.SecretKey)
		}
	}

	for i := range cfg.Notifications {
		nt := &cfg.Notifications[i]
		nt.Type = os.ExpandEnv(nt.Type)
		for j := range nt.On {
			nt.On[j] = os.ExpandEnv(nt.On[j])
		}
		nt.Config.SMTPHost = os.ExpandEnv(nt.Config.SMTPHost)
		nt.Config.From = os.ExpandEnv(nt.Config.From)
		nt.Config.To = os.ExpandEnv(nt.Config.To)
		nt.Config.Username = os.ExpandEnv(nt.Config.Username)
		nt.Config.Password = os.ExpandEnv(nt.Config.Password)
		nt.Config.URL = os.ExpandEnv(nt.Config.URL)
		for k, v := range nt.Config.Headers {
			nt.Config.Headers[k] = os.ExpandEnv(v)
		}
	}
}

// NormalizeRoot trims surrounding whitespace and leading delimiters and
// ensures a non-empty root ends with exactly one delimiter. An empty root
// means the whole container.
func NormalizeRoot(root string) string {
	root = strings.TrimSpace(root)
	root = strings.TrimLeft(root, "/")
	if root == "" {
		return ""
	}
	return strings.TrimRight(root, "/") + "/"
}
