package assets

// Loader reads one asset type from disk. The concrete result type depends on
// the loader; the typed accessors on AssetManager assert it.
type Loader interface {
	Load(path string) (any, error)
}
