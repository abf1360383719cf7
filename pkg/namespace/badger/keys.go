package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so prefixed keys organize the snapshot
// into logical namespaces:
//
// Data Type        Prefix  Key Format                  Value Type
// =====================================================================
// Entries          "e:"    e:<path>                    Entry (JSON)
// File Records     "b:"    b:<path>                    FileRecord (JSON)
// Children Index   "c:"    c:<dirPath>\x00<childName>  (empty)
//
// Paths are canonical ("/a/b/c"), so point lookups are O(1) and listing a
// directory is a single prefix scan. The \x00 separator in the children
// index cannot appear in a name segment, so prefix scans never bleed into a
// sibling directory whose name shares a prefix ("/audio" vs "/audiobook").
//
// Values are JSON: a namespace snapshot is debugging material first, and
// being able to inspect it with badger's CLI beats a few bytes of binary
// encoding.

const (
	entryPrefix    = "e:"
	recordPrefix   = "b:"
	childrenPrefix = "c:"

	childSeparator = "\x00"
)

func entryKey(path string) []byte {
	return []byte(entryPrefix + path)
}

func recordKey(path string) []byte {
	return []byte(recordPrefix + path)
}

func childKey(dirPath, name string) []byte {
	return []byte(childrenPrefix + dirPath + childSeparator + name)
}

func childScanPrefix(dirPath string) []byte {
	return []byte(childrenPrefix + dirPath + childSeparator)
}
