package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against the struct validation tags and
// the cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			first := errs[0]
			return fmt.Errorf("invalid value for %s: failed %q constraint",
				first.Namespace(), first.Tag())
		}
		return err
	}

	if !cfg.Server.InMemory && cfg.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir is required unless server.in_memory is set")
	}

	return nil
}
