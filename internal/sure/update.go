package sure

// UpdateFrom copies content digests from a prior snapshot into this one
// for files whose identity is unchanged, so the scanner does not reread
// their content. Identity means same kind, inode, size, permissions and
// change-time; the heuristic relies on ctime advancing on any content or
// metadata modification, which coarse timestamp resolution or a clock
// rolled backward can defeat. A full rehash is the escape hatch for
// that.
func (t *Tree) UpdateFrom(old *Tree, algo string) {
	byName := make(map[string]*Tree, len(old.Children))
	for _, ch := range old.Children {
		byName[ch.Name] = ch
	}
	for _, ch := range t.Children {
		if och, ok := byName[ch.Name]; ok {
			ch.UpdateFrom(och, algo)
		}
	}

	oldFiles := make(map[string]*File, len(old.Files))
	for _, f := range old.Files {
		oldFiles[f.Name] = f
	}
	for _, f := range t.Files {
		of, ok := oldFiles[f.Name]
		if !ok {
			continue
		}
		if !f.NeedsHash(algo) {
			continue
		}
		if !of.IsReg() {
			continue
		}
		if f.Atts["ino"] != of.Atts["ino"] ||
			f.Atts["ctime"] != of.Atts["ctime"] ||
			f.Atts["size"] != of.Atts["size"] ||
			f.Atts["perm"] != of.Atts["perm"] {
			continue
		}
		digest, ok := of.Atts[algo]
		if !ok {
			continue
		}
		f.Atts[algo] = digest
	}
}
