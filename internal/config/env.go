package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "YOUYAKU_"

// LoadDotEnv loads .env from dir (when set) and from the working directory.
// Variables already present in the environment are never overridden.
func LoadDotEnv(dir string) error {
	var files []string
	if dir != "" {
		files = append(files, filepath.Join(dir, ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, ".env")
		if len(files) == 0 || files[0] != p {
			files = append(files, p)
		}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with YOUYAKU_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sDEBUG: %w", envPrefix, err)
		}
		cfg.Debug = b
	}
	if v, ok := lookup("HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPORT: %w", envPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup("DATABASE_PATH"); ok {
		cfg.Storage.DatabasePath = v
	}
	if v, ok := lookup("MODEL_PROVIDER"); ok {
		cfg.Model.Provider = v
	}
	if v, ok := lookup("MODEL_BASE_URL"); ok {
		cfg.Model.BaseURL = v
	}
	if v, ok := lookup("MODEL_API_KEY"); ok {
		cfg.Model.APIKey = v
	}
	if v, ok := lookup("MODEL_NAME"); ok {
		cfg.Model.Name = v
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSAllowedOrigins = origins
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
