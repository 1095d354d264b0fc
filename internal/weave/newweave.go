package weave

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// NewWeave writes the initial revision of a weave file. Lines are added
// with WriteLine; Close finishes the control structure and moves the new
// file into place. An abandoned NewWeave leaves the store untouched.
type NewWeave struct {
	naming   Naming
	tempName string
	file     io.WriteCloser
	w        *bufio.Writer
	serial   int
	closed   bool
}

// Create starts a new weave whose first delta carries the given tags.
func Create(naming Naming, tags map[string]string) (*NewWeave, error) {
	header := Header{Version: headerVersion}
	serial, err := header.Add(tags)
	if err != nil {
		return nil, err
	}

	tempName, file, err := naming.TempFile(naming.Compressed())
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriter(file)
	line, err := header.encode()
	if err == nil {
		_, err = fmt.Fprintf(w, "%s\n\x01I %d\n", line, serial)
	}
	if err != nil {
		file.Close()
		naming.Remove(tempName)
		return nil, err
	}

	return &NewWeave{
		naming:   naming,
		tempName: tempName,
		file:     file,
		w:        w,
		serial:   serial,
	}, nil
}

// WriteLine appends one content line to the initial revision.
func (nw *NewWeave) WriteLine(text string) error {
	if nw.closed {
		return errors.New("weave: write to closed NewWeave")
	}
	_, err := fmt.Fprintln(nw.w, text)
	return err
}

// Close terminates the insert block, commits the temp file as the main
// file, and rotates any previous main file to the backup name.
func (nw *NewWeave) Close() error {
	if nw.closed {
		return errors.New("weave: NewWeave already closed")
	}
	nw.closed = true

	if _, err := fmt.Fprintf(nw.w, "\x01E %d\n", nw.serial); err != nil {
		nw.abort()
		return err
	}
	if err := nw.w.Flush(); err != nil {
		nw.abort()
		return err
	}
	if err := nw.file.Close(); err != nil {
		nw.naming.Remove(nw.tempName)
		return err
	}
	return nw.naming.Rotate(nw.tempName)
}

func (nw *NewWeave) abort() {
	nw.file.Close()
	nw.naming.Remove(nw.tempName)
}
