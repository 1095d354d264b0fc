//go:build linux

package scan

import (
	"os"
	"strconv"
	"syscall"

	"github.com/gosure/gosure/internal/sure"
)

// statAtts converts a lstat result into surefile attributes. The
// second result is the device number, used to keep the walk on one
// filesystem.
func statAtts(path string, fi os.FileInfo, warn func(path string, err error)) (map[string]string, uint64) {
	st, okSys := fi.Sys().(*syscall.Stat_t)
	if !okSys {
		// Non-unix FileInfo (synthetic sources in tests).
		return map[string]string{"kind": sure.KindFile}, 0
	}

	atts := map[string]string{
		"uid":  strconv.FormatUint(uint64(st.Uid), 10),
		"gid":  strconv.FormatUint(uint64(st.Gid), 10),
		"perm": strconv.FormatUint(uint64(st.Mode) & 0o7777, 10),
	}

	switch st.Mode & syscall.S_IFMT {
	case syscall.S_IFDIR:
		atts["kind"] = sure.KindDir
	case syscall.S_IFREG:
		atts["kind"] = sure.KindFile
		atts["ino"] = strconv.FormatUint(uint64(st.Ino), 10)
		atts["size"] = strconv.FormatInt(st.Size, 10)
		addTimes(atts, st)
	case syscall.S_IFLNK:
		atts["kind"] = sure.KindLink
		targ, err := os.Readlink(path)
		if err != nil {
			warn(path, err)
			targ = "???"
		}
		atts["targ"] = sure.Escape([]byte(targ))
	case syscall.S_IFIFO:
		atts["kind"] = sure.KindFifo
	case syscall.S_IFSOCK:
		atts["kind"] = sure.KindSock
	case syscall.S_IFCHR:
		atts["kind"] = sure.KindChar
		addDev(atts, st)
	case syscall.S_IFBLK:
		atts["kind"] = sure.KindBlock
		addDev(atts, st)
	default:
		atts["kind"] = "unknown"
	}

	return atts, uint64(st.Dev)
}

func addTimes(atts map[string]string, st *syscall.Stat_t) {
	atts["mtime"] = strconv.FormatInt(st.Mtim.Sec, 10)
	atts["ctime"] = strconv.FormatInt(st.Ctim.Sec, 10)
}

// addDev splits a device number the way historical surefiles did.
func addDev(atts map[string]string, st *syscall.Stat_t) {
	rdev := uint64(st.Rdev)
	atts["devmaj"] = strconv.FormatUint((rdev>>8)&0xfff, 10)
	atts["devmin"] = strconv.FormatUint(rdev&0xff, 10)
}
