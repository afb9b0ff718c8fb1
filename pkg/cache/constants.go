package cache

import "github.com/glorpus-work/iafetch/pkg/fsutil"

// CacheDirPerm is the default permission mode for cache directories (rwx------).
const CacheDirPerm = fsutil.DirModePrivate

// MetadataDir is the subdirectory holding one JSON document per item.
const MetadataDir = "metadata"

const metadataExt = ".json"
