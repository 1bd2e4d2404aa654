package config

import (
	"fmt"
	"strings"

	"github.com/dev-tams/sweepkit/internal/schedule"
)

const (
	PolicyPresence  = "presence"
	PolicyFreshness = "freshness"
)

func (c *Config) Validate() error {
	if c.Version == 0 {
		return fmt.Errorf("config.version must be > 0")
	}

	storageNames := map[string]struct{}{}
	for _, st := range c.Storage {
		if st.Name == "" {
			return fmt.Errorf("storage.name is required")
		}
		if _, ok := storageNames[st.Name]; ok {
			return fmt.Errorf("duplicate storage.name %q", st.Name)
		}
		storageNames[st.Name] = struct{}{}

		switch st.Type {
		case "s3":
			if st.S3 == nil {
				return fmt.Errorf("storage %s: s3 config missing", st.Name)
			}
		case "minio":
			if st.Minio == nil {
				return fmt.Errorf("storage %s: minio config missing", st.Name)
			}
		case "":
			return fmt.Errorf("storage.type is required for storage %s", st.Name)
		default:
			return fmt.Errorf("storage %s: unknown type %q", st.Name, st.Type)
		}
	}

	if len(c.Containers) == 0 {
		return fmt.Errorf("at least one container is required")
	}

	containerNames := map[string]struct{}{}
	for i, ct := range c.Containers {
		if ct.Name == "" {
			return fmt.Errorf("containers[%d].name is required", i)
		}
		if _, ok := containerNames[ct.Name]; ok {
			return fmt.Errorf("duplicate container name %q", ct.Name)
		}
		containerNames[ct.Name] = struct{}{}

		if ct.Storage == "" {
			return fmt.Errorf("containers[%d] storage is required (must match a storage.name)", i)
		}
		if _, ok := storageNames[ct.Storage]; !ok {
			return fmt.Errorf("containers[%d] storage=%q not found in storage list", i, ct.Storage)
		}

		switch ct.Policy {
		case PolicyPresence, PolicyFreshness:
		case "":
			return fmt.Errorf("containers[%d] policy is required (presence or freshness)", i)
		default:
			return fmt.Errorf("containers[%d] policy=%q is not supported (presence or freshness)", i, ct.Policy)
		}

		if ct.Policy == PolicyPresence && ct.RetentionDays != 0 {
			return fmt.Errorf("containers[%d] retention_days only applies to the freshness policy", i)
		}
		if ct.RetentionDays < 0 {
			return fmt.Errorf("containers[%d] retention_days must be >= 0", i)
		}

		if s := strings.TrimSpace(ct.Schedule); s != "" {
			if _, err := schedule.ParseCronSpec(s); err != nil {
				return fmt.Errorf("containers[%d] schedule %q: %w", i, s, err)
			}
		}
	}

	return nil
}
