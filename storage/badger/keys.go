package badger

// Key prefixes for different data types. Collection names cannot contain
// ':', so "<prefix>:<collection>:" never matches another collection's keys.
const (
	collectionPrefix = "col"
	chunkPrefix      = "chk"
	manifestPrefix   = "src"
)

// makeCollectionKey generates the key holding a collection's CollectionInfo.
// Format: col:name
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + ":" + name)
}

// makeCollectionScanPrefix matches every collection info key.
func makeCollectionScanPrefix() []byte {
	return []byte(collectionPrefix + ":")
}

// makeChunkKey generates the key for a chunk record.
// Format: chk:collection:id
func makeChunkKey(collection, id string) []byte {
	return append(makeChunkPrefix(collection), id...)
}

// makeChunkPrefix matches every chunk of a collection.
func makeChunkPrefix(collection string) []byte {
	return []byte(chunkPrefix + ":" + collection + ":")
}

// makeManifestKey generates the key for a source manifest.
// Format: src:collection:source
func makeManifestKey(collection, source string) []byte {
	return append(makeManifestPrefix(collection), source...)
}

// makeManifestPrefix matches every manifest of a collection.
func makeManifestPrefix(collection string) []byte {
	return []byte(manifestPrefix + ":" + collection + ":")
}
