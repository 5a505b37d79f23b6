// Package all links every storage backend into the binary. Import it for
// side effects wherever storage.Open is called with a configured kind.
package all

import (
	_ "txnalytics/internal/storage/mssql"
	_ "txnalytics/internal/storage/postgres"
	_ "txnalytics/internal/storage/sqlite"
)
