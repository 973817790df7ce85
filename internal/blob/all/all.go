// Package all registers the built-in blob backends ("s3", "minio",
// "local"). Import it for side effects.
package all

import (
	_ "kpietl/internal/blob/local"
	_ "kpietl/internal/blob/minio"
	_ "kpietl/internal/blob/s3"
)
