// Package imagecache is a persistent content-addressed store for optimized
// images. Keys are derived from the bytes of the source file and the codec
// settings, so identical input is never compressed twice.
//
// The Store interface keeps the cache independent of the image codecs; the
// on-disk FileStore is used by the CLI and MemoryStore by tests.
package imagecache
