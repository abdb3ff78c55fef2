package domain

// CachedImage records one downloaded remote image and the local asset
// it was stored as. SourceURL is the unique key: at most one cached
// copy exists per distinct source URL, regardless of how many listings
// reference it.
type CachedImage struct {
	SourceURL string `json:"source_url"`
	FileName  string `json:"file_name"`
	LocalURL  string `json:"local_url"`
}
