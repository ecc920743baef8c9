package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultDatabase is used when MONGODB_DATABASE is unset.
const DefaultDatabase = "default_db_name"

// Secrets holds the values read from the environment rather than the YAML file.
type Secrets struct {
	TMDBAPIKey string `env:"TMDB_API_KEY,required"`
	MongoURI   string `env:"MONGO_URI,required"`
	Database   string `env:"MONGODB_DATABASE" envDefault:"default_db_name"`
}

// LoadSecrets loads .env files (missing files are ignored) and parses the environment.
// Variables already set in the process environment take precedence over file values.
func LoadSecrets(envFiles ...string) (*Secrets, error) {
	for _, file := range envFiles {
		if file == "" {
			continue
		}

		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	var secrets Secrets
	if err := env.Parse(&secrets); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &secrets, nil
}

// DatabaseName returns the database name with spaces replaced by underscores.
func (s *Secrets) DatabaseName() string {
	name := strings.TrimSpace(s.Database)
	if name == "" {
		name = DefaultDatabase
	}

	return strings.ReplaceAll(name, " ", "_")
}
