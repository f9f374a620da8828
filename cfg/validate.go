package cfg

import "fmt"

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if config.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}

	if config.FileSystem.BlockSizeBytes == 0 {
		return fmt.Errorf("file-system.block-size-bytes must be greater than zero")
	}
	if config.FileSystem.BlockSizeBytes%16 != 0 {
		return fmt.Errorf("file-system.block-size-bytes must be a multiple of 16, since the inline-data threshold is block-size/16")
	}

	if config.FileSystem.MaxNameLen <= 0 {
		return fmt.Errorf("file-system.max-name-len must be greater than zero")
	}

	if _, err := ParseOctal(config.FileSystem.DirMode); err != nil {
		return fmt.Errorf("file-system.dir-mode: %w", err)
	}
	if _, err := ParseOctal(config.FileSystem.FileMode); err != nil {
		return fmt.Errorf("file-system.file-mode: %w", err)
	}

	switch config.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", config.Logging.Format)
	}

	return nil
}
