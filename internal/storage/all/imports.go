// Package all registers the built-in warehouse backends ("postgres",
// "sqlite") with the storage factory. Import it for side effects:
//
//	import _ "kpietl/internal/storage/all"
package all

import (
	_ "kpietl/internal/storage/postgres"
	_ "kpietl/internal/storage/sqlite"
)
