package main

import (
	"pickwire/ingestion/internal/adapters"
)

// siteAdapters returns the compiled-in adapter set. Site-specific extraction
// code is maintained out of tree; builds link their adapters in here.
func siteAdapters() []adapters.Adapter {
	return []adapters.Adapter{}
}
