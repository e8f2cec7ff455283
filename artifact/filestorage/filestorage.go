// Package filestorage provides the storage backends a finished
// artifact can be placed into: the local serving directory, or a
// caller-owned S3 bucket.
package filestorage

// FileStorage is the interface implemented by artifact storage
// backends.
type FileStorage interface {
	// StoreFile moves the file at srcpath into the backend under
	// destpath, consuming the source.
	StoreFile(srcpath string, destpath string) error
	DeleteFile(filepath string) error
	FileExists(filepath string) bool
}
