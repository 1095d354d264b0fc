//go:build !linux

package scan

import (
	"os"
	"strconv"

	"github.com/gosure/gosure/internal/sure"
)

// statAtts on platforms without syscall.Stat_t records the portable
// subset of attributes.
func statAtts(path string, fi os.FileInfo, warn func(path string, err error)) (map[string]string, uint64) {
	atts := map[string]string{
		"perm": strconv.FormatUint(uint64(fi.Mode().Perm()), 10),
	}
	switch {
	case fi.IsDir():
		atts["kind"] = sure.KindDir
	case fi.Mode()&os.ModeSymlink != 0:
		atts["kind"] = sure.KindLink
		targ, err := os.Readlink(path)
		if err != nil {
			warn(path, err)
			targ = "???"
		}
		atts["targ"] = sure.Escape([]byte(targ))
	case fi.Mode().IsRegular():
		atts["kind"] = sure.KindFile
		atts["size"] = strconv.FormatInt(fi.Size(), 10)
		atts["mtime"] = strconv.FormatInt(fi.ModTime().Unix(), 10)
	default:
		atts["kind"] = "unknown"
	}
	return atts, 0
}
