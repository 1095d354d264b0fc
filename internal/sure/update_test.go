package sure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scannedFile(name string, ino, size, ctime, perm string) *File {
	return &File{Name: name, Atts: map[string]string{
		"kind": KindFile, "ino": ino, "size": size, "ctime": ctime, "perm": perm,
	}}
}

func hashedFile(name string, ino, size, ctime, perm, digest string) *File {
	f := scannedFile(name, ino, size, ctime, perm)
	f.Atts["sha1"] = digest
	return f
}

func TestUpdateFromReusesDigest(t *testing.T) {
	old := &Tree{Name: "__root__", Files: []*File{
		hashedFile("same", "1", "10", "100", "420", "aaaa"),
		hashedFile("grown", "2", "10", "100", "420", "bbbb"),
		hashedFile("touched", "3", "10", "100", "420", "cccc"),
		hashedFile("chmod", "4", "10", "100", "420", "dddd"),
	}}
	cur := &Tree{Name: "__root__", Files: []*File{
		scannedFile("same", "1", "10", "100", "420"),
		scannedFile("grown", "2", "99", "100", "420"),
		scannedFile("touched", "3", "10", "200", "420"),
		scannedFile("chmod", "4", "10", "100", "493"),
		scannedFile("new", "5", "10", "100", "420"),
	}}

	cur.UpdateFrom(old, "sha1")

	byName := make(map[string]*File)
	for _, f := range cur.Files {
		byName[f.Name] = f
	}
	assert.Equal(t, "aaaa", byName["same"].Atts["sha1"], "unchanged identity keeps old digest")
	_, ok := byName["grown"].Atts["sha1"]
	assert.False(t, ok, "size change forces rehash")
	_, ok = byName["touched"].Atts["sha1"]
	assert.False(t, ok, "ctime change forces rehash")
	_, ok = byName["chmod"].Atts["sha1"]
	assert.False(t, ok, "perm change forces rehash")
	_, ok = byName["new"].Atts["sha1"]
	assert.False(t, ok, "new file has no digest to reuse")
}

func TestUpdateFromRecursesIntoMatchingDirs(t *testing.T) {
	old := &Tree{Name: "__root__", Children: []*Tree{
		{Name: "sub", Files: []*File{hashedFile("f", "1", "10", "100", "420", "aaaa")}},
	}}
	cur := &Tree{Name: "__root__", Children: []*Tree{
		{Name: "sub", Files: []*File{scannedFile("f", "1", "10", "100", "420")}},
		{Name: "other", Files: []*File{scannedFile("f", "1", "10", "100", "420")}},
	}}

	cur.UpdateFrom(old, "sha1")

	assert.Equal(t, "aaaa", cur.Children[0].Files[0].Atts["sha1"])
	_, ok := cur.Children[1].Files[0].Atts["sha1"]
	assert.False(t, ok)
}

func TestUpdateFromSkipsNonRegularOld(t *testing.T) {
	old := &Tree{Name: "__root__", Files: []*File{
		{Name: "f", Atts: map[string]string{"kind": KindLink, "sha1": "stale"}},
	}}
	cur := &Tree{Name: "__root__", Files: []*File{
		scannedFile("f", "", "", "", ""),
	}}

	cur.UpdateFrom(old, "sha1")
	_, ok := cur.Files[0].Atts["sha1"]
	assert.False(t, ok)
}

func TestUpdateFromOtherAlgoDigestNotCopied(t *testing.T) {
	old := &Tree{Name: "__root__", Files: []*File{
		hashedFile("f", "1", "10", "100", "420", "aaaa"),
	}}
	cur := &Tree{Name: "__root__", Files: []*File{
		scannedFile("f", "1", "10", "100", "420"),
	}}

	cur.UpdateFrom(old, "xxh3")
	_, ok := cur.Files[0].Atts["xxh3"]
	assert.False(t, ok, "a sha1 digest must not satisfy an xxh3 scan")
}
