package filestorage

import (
	"io"
	"os"
	"path"
	"path/filepath"
)

// FileSystem stores artifacts under a local root directory.
type FileSystem struct {
	RootDir string
}

// NewFileSystem returns a FileSystem backend rooted at rootdir,
// creating the directory if needed.
func NewFileSystem(rootdir string) (*FileSystem, error) {
	err := os.MkdirAll(rootdir, os.FileMode(0755))
	if err != nil {
		return nil, err
	}
	return &FileSystem{RootDir: rootdir}, nil
}

// StoreFile moves srcpath to destpath under the root, falling back to
// copy-and-remove across filesystem boundaries.
func (fs FileSystem) StoreFile(srcpath string, destpath string) error {
	fulldestpath := path.Join(fs.RootDir, destpath)
	err := os.MkdirAll(filepath.Dir(fulldestpath), os.FileMode(0755))
	if err != nil {
		return err
	}

	err = os.Rename(srcpath, fulldestpath)
	if err != nil {
		fsrc, err := os.Open(srcpath)
		if err != nil {
			return err
		}
		defer fsrc.Close()

		fdest, err := os.Create(fulldestpath)
		if err != nil {
			return err
		}
		defer fdest.Close()

		_, err = io.Copy(fdest, fsrc)
		if err != nil {
			return err
		}
		os.Remove(srcpath)
	}

	return nil
}

// DeleteFile removes filepath from the root. A missing file is not an
// error.
func (fs FileSystem) DeleteFile(filepath string) error {
	abspath := path.Join(fs.RootDir, filepath)
	err := os.Remove(abspath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FileExists returns true if the file exists, false otherwise.
func (fs FileSystem) FileExists(filepath string) bool {
	abspath := path.Join(fs.RootDir, filepath)
	_, err := os.Stat(abspath)
	return err == nil
}
