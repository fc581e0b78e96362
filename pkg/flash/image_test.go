//go:build !windows

package flash

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var testGeometry = Geometry{PageSize: 256, PageCount: 4}

func TestOpenImage_CreateNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "flash.img")

	img, err := OpenImage(path, testGeometry)
	if err != nil {
		t.Fatalf("OpenImage() error = %v", err)
	}
	defer img.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("image not created: %v", err)
	}
	if want := int64(imageHeaderSize + 2*testGeometry.Size()); info.Size() != want {
		t.Errorf("image size = %d, want %d", info.Size(), want)
	}

	dev, err := img.Area(AreaAudit)
	if err != nil {
		t.Fatalf("Area() error = %v", err)
	}
	buf := make([]byte, testGeometry.Size())
	if _, err := dev.ReadAt(0, buf); err != nil {
		t.Fatalf("ReadAt() error = %v", err)
	}
	for i, b := range buf {
		if b != ErasedByte {
			t.Fatalf("byte %d = 0x%02x, want erased", i, b)
		}
	}
}

func TestOpenImage_PersistsAndSeparatesAreas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	img, err := OpenImage(path, testGeometry)
	if err != nil {
		t.Fatalf("OpenImage() error = %v", err)
	}
	auditArea, _ := img.Area(AreaAudit)
	if _, err := auditArea.WriteWords(0, []uint64{0x1122334455667788}); err != nil {
		t.Fatalf("WriteWords() error = %v", err)
	}
	if err := img.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if err := img.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	img, err = OpenImage(path, testGeometry)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer img.Close()

	auditArea, _ = img.Area(AreaAudit)
	configArea, _ := img.Area(AreaConfig)

	buf := make([]byte, 8)
	if _, err := auditArea.ReadAt(0, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x88 || buf[7] != 0x11 {
		t.Errorf("audit area = % x, want little-endian word", buf)
	}

	if _, err := configArea.ReadAt(0, buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != ErasedByte {
		t.Error("write to the audit area leaked into the config area")
	}
}

func TestOpenImage_GeometryMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	img, err := OpenImage(path, testGeometry)
	if err != nil {
		t.Fatal(err)
	}
	_ = img.Close()

	_, err = OpenImage(path, Geometry{PageSize: 512, PageCount: 4})
	if !errors.Is(err, ErrGeometryMismatch) {
		t.Errorf("OpenImage() error = %v, want ErrGeometryMismatch", err)
	}

	geo, err := ReadImageGeometry(path)
	if err != nil {
		t.Fatalf("ReadImageGeometry() error = %v", err)
	}
	if geo != testGeometry {
		t.Errorf("ReadImageGeometry() = %+v, want %+v", geo, testGeometry)
	}
}

func TestOpenImage_Corrupted(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.img")
	if err := os.WriteFile(short, []byte("UAFL"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenImage(short, testGeometry); !errors.Is(err, ErrCorrupted) {
		t.Errorf("short file error = %v, want ErrCorrupted", err)
	}

	garbage := filepath.Join(dir, "garbage.img")
	if err := os.WriteFile(garbage, make([]byte, imageHeaderSize+2*testGeometry.Size()), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenImage(garbage, testGeometry); !errors.Is(err, ErrCorrupted) {
		t.Errorf("bad magic error = %v, want ErrCorrupted", err)
	}
}

func TestImage_Closed(t *testing.T) {
	img, err := OpenImage(filepath.Join(t.TempDir(), "flash.img"), testGeometry)
	if err != nil {
		t.Fatal(err)
	}
	dev, _ := img.Area(AreaAudit)

	if err := img.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := img.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := dev.ReadAt(0, make([]byte, 8)); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadAt() after close = %v, want ErrClosed", err)
	}
	if err := dev.ErasePage(0); !errors.Is(err, ErrClosed) {
		t.Errorf("ErasePage() after close = %v, want ErrClosed", err)
	}
	if err := img.Sync(); !errors.Is(err, ErrClosed) {
		t.Errorf("Sync() after close = %v, want ErrClosed", err)
	}
}
