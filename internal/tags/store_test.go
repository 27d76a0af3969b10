package tags_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.senan.xyz/taglib"

	"tagbrain/internal/metadata"
	"tagbrain/internal/tags"
)

// writeMinimalFLAC creates a FLAC file holding only a STREAMINFO block, which
// is enough for TagLib to attach a Vorbis comment.
func writeMinimalFLAC(t *testing.T) string {
	t.Helper()
	var info [34]byte
	binary.BigEndian.PutUint16(info[0:], 4096)
	binary.BigEndian.PutUint16(info[2:], 4096)
	// 20-bit sample rate, 3-bit channels-1, 5-bit bits-per-sample-1, 36-bit sample count.
	binary.BigEndian.PutUint64(info[10:], uint64(44100)<<44|uint64(1)<<41|uint64(15)<<36)

	data := []byte("fLaC")
	data = append(data, 0x80, 0x00, 0x00, byte(len(info)))
	data = append(data, info[:]...)

	path := filepath.Join(t.TempDir(), "track.flac")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStoreDropsASINAcrossReadAndWrite(t *testing.T) {
	path := writeMinimalFLAC(t)
	seed := map[string][]string{
		metadata.KeyTitle:  {"So What"},
		metadata.KeyArtist: {"Miles Davis"},
		metadata.KeyASIN:   {"B000002ADT"},
		"X_RIPPER_NOTE":    {"ignored"},
	}
	if err := taglib.WriteTags(path, seed, taglib.Clear); err != nil {
		t.Fatalf("seed tags: %v", err)
	}

	store := tags.NewStore()
	read, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := read.First(metadata.KeyTitle); got != "So What" {
		t.Fatalf("title = %q", got)
	}
	if _, ok := read[metadata.KeyASIN]; ok {
		t.Fatalf("ASIN should be dropped on read: %v", read)
	}
	if _, ok := read["X_RIPPER_NOTE"]; ok {
		t.Fatalf("unknown key should be dropped on read: %v", read)
	}

	read[metadata.KeyAlbum] = []string{"Kind of Blue"}
	read[metadata.KeyASIN] = []string{"B000002ADT"}
	if err := store.Write(path, read); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := taglib.ReadTags(path)
	if err != nil {
		t.Fatalf("ReadTags: %v", err)
	}
	for key := range raw {
		if key == metadata.KeyASIN || key == "X_RIPPER_NOTE" {
			t.Fatalf("%s survived the rewrite: %v", key, raw)
		}
	}
	if !slices.Equal(raw[metadata.KeyAlbum], []string{"Kind of Blue"}) {
		t.Fatalf("album = %v", raw[metadata.KeyAlbum])
	}
	if !slices.Equal(raw[metadata.KeyArtist], []string{"Miles Davis"}) {
		t.Fatalf("artist = %v", raw[metadata.KeyArtist])
	}
}
