package persist

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EnvCacheDir overrides the cache root.
const EnvCacheDir = "STOREKIT_CACHE_DIR"

// FileExt is appended to the region name to form the snapshot file name.
const FileExt = ".cache"

// ErrNoCacheRoot is returned when no cache root can be resolved.
var ErrNoCacheRoot = errors.New("no cache directory available")

// Root resolves the base cache directory.
// Precedence:
//  1. STOREKIT_CACHE_DIR, if set and non-empty
//  2. os.UserCacheDir()/storekit
func Root() (string, error) {
	if c, ok := os.LookupEnv(EnvCacheDir); ok && c != "" {
		return c, nil
	}
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "storekit"), nil
	}
	return "", ErrNoCacheRoot
}

// FilePath returns where the snapshot of region name lives under root:
// <root>/<Name>/<name>.cache, the folder being the name with its first
// letter upper-cased.
func FilePath(root, name string) string {
	return filepath.Join(root, folderName(name), name+FileExt)
}

// ValidName reports whether name can be used as a region name.
func ValidName(name string) bool {
	return name != "" &&
		name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.ContainsRune(name, os.PathSeparator)
}

func folderName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}
