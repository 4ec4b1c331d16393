// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural constraints plus the cross-field rules the tag
// syntax cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			// Report the first violation with its config path; one actionable
			// error beats a wall of them.
			v := verrs[0]
			return fmt.Errorf("invalid value for %s: failed %q constraint", v.Namespace(), v.Tag())
		}
		return err
	}

	if c.Embedding.MaxBatchSize < c.Embedding.BatchSize {
		return fmt.Errorf("embedding.max_batch_size (%d) must be >= embedding.batch_size (%d)",
			c.Embedding.MaxBatchSize, c.Embedding.BatchSize)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.New("metrics.listen_addr is required when metrics.enabled is true")
	}
	return nil
}
