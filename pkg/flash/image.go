//go:build !windows

// image.go provides a memory-mapped flash image file.
//
// The image emulates a device with two disjoint flash areas of identical
// geometry. Contents survive process restarts; the OS flushes dirty pages
// asynchronously and Sync forces them to disk.
//
// File Format:
//
//	Header (64 bytes):
//	  - Magic: "UAFL" (4 bytes)
//	  - Version: uint16 (2 bytes)
//	  - Page size: uint32 (4 bytes)
//	  - Page count: uint32 (4 bytes)
//	  - Area count: uint16 (2 bytes)
//	  - Reserved: 48 bytes
//
//	Areas (area count * page count * page size bytes):
//	  - Area 0: audit
//	  - Area 1: config
//
// A freshly created image is filled with 0xFF (erased).

package flash

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// image file constants
const (
	imageMagic      = "UAFL"
	imageVersion    = uint16(1)
	imageHeaderSize = 64
)

// imageHeader represents the header of the image file
type imageHeader struct {
	Magic     [4]byte
	Version   uint16
	PageSize  uint32
	PageCount uint32
	AreaCount uint16
}

// Image is an mmap-backed flash image with an audit and a config area.
type Image struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	data   []byte // mmap'd region
	geo    Geometry
	areas  [areaCount]*imageArea
	closed bool
}

// OpenImage opens the image at path, creating it if it does not exist.
//
// An existing image must have been created with the same geometry.
//
// Parameters:
//   - path: Path of the image file (parent directories are created)
//   - geo: Page geometry of each area
func OpenImage(path string, geo Geometry) (*Image, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	img := &Image{
		path: path,
		geo:  geo,
	}

	_, err := os.Stat(path)
	if err == nil {
		err = img.openExisting()
	} else {
		err = img.createNew()
	}
	if err != nil {
		return nil, err
	}

	areaSize := geo.Size()
	for i := range img.areas {
		start := imageHeaderSize + uint64(i)*areaSize
		img.areas[i] = &imageArea{
			img: img,
			r:   region{geo: geo, data: img.data[start : start+areaSize]},
		}
	}

	return img, nil
}

func (img *Image) fileSize() uint64 {
	return imageHeaderSize + areaCount*img.geo.Size()
}

// createNew creates a new erased image file.
func (img *Image) createNew() error {
	f, err := os.OpenFile(img.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	size := img.fileSize()
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return fmt.Errorf("truncate file: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap: %w", err)
	}

	img.file = f
	img.data = data

	for i := imageHeaderSize; i < len(data); i++ {
		data[i] = ErasedByte
	}

	hdr := imageHeader{
		Version:   imageVersion,
		PageSize:  img.geo.PageSize,
		PageCount: img.geo.PageCount,
		AreaCount: areaCount,
	}
	copy(hdr.Magic[:], imageMagic)
	img.writeHeader(&hdr)

	return nil
}

// openExisting maps an existing image file and validates its header.
func (img *Image) openExisting() error {
	f, err := os.OpenFile(img.path, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat file: %w", err)
	}

	size := uint64(info.Size())
	if size < imageHeaderSize {
		f.Close()
		return ErrCorrupted
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap: %w", err)
	}

	img.file = f
	img.data = data

	hdr := img.readHeader()
	switch {
	case string(hdr.Magic[:]) != imageMagic:
		img.closeLocked()
		return ErrCorrupted
	case hdr.Version != imageVersion:
		img.closeLocked()
		return ErrVersionMismatch
	case hdr.PageSize != img.geo.PageSize || hdr.PageCount != img.geo.PageCount || hdr.AreaCount != areaCount:
		img.closeLocked()
		return fmt.Errorf("%w: image has %d pages of %d bytes, requested %d pages of %d bytes",
			ErrGeometryMismatch, hdr.PageCount, hdr.PageSize, img.geo.PageCount, img.geo.PageSize)
	case size < img.fileSize():
		img.closeLocked()
		return ErrCorrupted
	}

	return nil
}

// ReadImageGeometry returns the geometry recorded in an existing image file
// without mapping it.
func ReadImageGeometry(path string) (Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Geometry{}, err
	}
	defer f.Close()

	buf := make([]byte, imageHeaderSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return Geometry{}, ErrCorrupted
	}
	if string(buf[0:4]) != imageMagic {
		return Geometry{}, ErrCorrupted
	}
	if binary.LittleEndian.Uint16(buf[4:6]) != imageVersion {
		return Geometry{}, ErrVersionMismatch
	}
	return Geometry{
		PageSize:  binary.LittleEndian.Uint32(buf[6:10]),
		PageCount: binary.LittleEndian.Uint32(buf[10:14]),
	}, nil
}

// Area returns the backend for one of the image areas.
func (img *Image) Area(a Area) (Backend, error) {
	if a < 0 || int(a) >= areaCount {
		return nil, fmt.Errorf("unknown flash area %d", int(a))
	}
	return img.areas[a], nil
}

// Geometry returns the page geometry of every area.
func (img *Image) Geometry() Geometry {
	return img.geo
}

// Path returns the image file path.
func (img *Image) Path() string {
	return img.path
}

// Sync forces dirty pages of the mapping to disk.
func (img *Image) Sync() error {
	img.mu.RLock()
	defer img.mu.RUnlock()

	if img.closed {
		return ErrClosed
	}
	if err := unix.Msync(img.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync: %w", err)
	}
	return nil
}

// Close syncs and unmaps the image.
func (img *Image) Close() error {
	img.mu.Lock()
	defer img.mu.Unlock()

	return img.closeLocked()
}

// closeLocked closes the image (caller must hold lock).
func (img *Image) closeLocked() error {
	if img.closed {
		return nil
	}

	img.closed = true

	if img.data != nil {
		_ = unix.Msync(img.data, unix.MS_SYNC)

		if err := unix.Munmap(img.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}
		img.data = nil
	}

	if img.file != nil {
		if err := img.file.Close(); err != nil {
			return fmt.Errorf("close file: %w", err)
		}
		img.file = nil
	}

	return nil
}

func (img *Image) writeHeader(h *imageHeader) {
	copy(img.data[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(img.data[4:6], h.Version)
	binary.LittleEndian.PutUint32(img.data[6:10], h.PageSize)
	binary.LittleEndian.PutUint32(img.data[10:14], h.PageCount)
	binary.LittleEndian.PutUint16(img.data[14:16], h.AreaCount)
	for i := 16; i < imageHeaderSize; i++ {
		img.data[i] = 0
	}
}

func (img *Image) readHeader() imageHeader {
	var h imageHeader
	copy(h.Magic[:], img.data[0:4])
	h.Version = binary.LittleEndian.Uint16(img.data[4:6])
	h.PageSize = binary.LittleEndian.Uint32(img.data[6:10])
	h.PageCount = binary.LittleEndian.Uint32(img.data[10:14])
	h.AreaCount = binary.LittleEndian.Uint16(img.data[14:16])
	return h
}

// imageArea is one area of an Image. All areas share the image lock.
type imageArea struct {
	img *Image
	r   region
}

func (a *imageArea) PageSize() uint32  { return a.r.geo.PageSize }
func (a *imageArea) PageCount() uint32 { return a.r.geo.PageCount }

func (a *imageArea) ErasePage(index uint32) error {
	a.img.mu.Lock()
	defer a.img.mu.Unlock()

	if a.img.closed {
		return ErrClosed
	}
	return a.r.erase(index)
}

func (a *imageArea) ReadAt(address uint32, buf []byte) (int, error) {
	a.img.mu.RLock()
	defer a.img.mu.RUnlock()

	if a.img.closed {
		return 0, ErrClosed
	}
	return a.r.read(address, buf)
}

func (a *imageArea) WriteWords(address uint32, words []uint64) (int, error) {
	a.img.mu.Lock()
	defer a.img.mu.Unlock()

	if a.img.closed {
		return 0, ErrClosed
	}
	return a.r.write(address, words)
}

// Ensure imageArea implements Backend.
var _ Backend = (*imageArea)(nil)
