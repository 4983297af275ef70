package capture

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// =============================================================================
// Capture File Discovery
// =============================================================================

// DiscoveredFile is a capture file found under a run root.
type DiscoveredFile struct {
	Path string
	Type FileType
	Size int64
}

// Discovery is the result of walking a run root.
type Discovery struct {
	Files []DiscoveredFile

	// NumSkipped counts regular files that are not capture files
	// (.log, .list, .cfg, .info, .bak, ...).
	NumSkipped int

	// Unreadable lists entries below the root that could not be read.
	// Unreadable directories are skipped as a whole.
	Unreadable []string
}

// TotalBytes returns the combined size of all discovered capture files.
func (d *Discovery) TotalBytes() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	return total
}

// DiscoverFiles walks root in lexical order and collects capture files.
// Only an unreadable root is an error.
func DiscoverFiles(root string) (*Discovery, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("run directory does not exist: %s", root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to access run directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("run path is not a directory: %s", root)
	}

	result, err := discoverFS(os.DirFS(root), root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk run directory %s: %w", root, err)
	}
	return result, nil
}

// discoverFS walks fsys from its top. Paths are reported joined to root.
func discoverFS(fsys fs.FS, root string) (*Discovery, error) {
	result := &Discovery{}
	err := fs.WalkDir(fsys, ".", func(rel string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if rel == "." {
				return walkErr
			}
			result.Unreadable = append(result.Unreadable, filepath.Join(root, filepath.FromSlash(rel)))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		fileType := DetectFileType(d.Name())
		if fileType == FileTypeUnknown {
			result.NumSkipped++
			return nil
		}

		var size int64
		if fi, infoErr := d.Info(); infoErr == nil {
			size = fi.Size()
		}
		result.Files = append(result.Files, DiscoveredFile{
			Path: filepath.Join(root, filepath.FromSlash(rel)),
			Type: fileType,
			Size: size,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
