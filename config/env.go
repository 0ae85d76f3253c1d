package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads .env into the process environment. A missing file is only
// an error in production, where the environment is expected to be complete.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) && os.Getenv(Production) != "true" {
		return nil
	}

	return err
}
