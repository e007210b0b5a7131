package vasp

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/ianaindex"

	"github.com/kingrea/phonon-interface/internal/backend"
)

// ReadVasprunForces returns the forces of the last ionic step in a
// vasprun.xml file.
func ReadVasprunForces(path string) ([][3]float64, error) {
	//nolint:gosec // G304: path comes from the user's command line.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return DecodeVasprunForces(f)
}

// DecodeVasprunForces streams through vasprun.xml and keeps the last
// <varray name="forces"> block.
func DecodeVasprunForces(r io.Reader) ([][3]float64, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader
	var (
		last    [][3]float64
		current [][3]float64
		inBlock bool
		inV     bool
		text    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Interrupted runs leave a truncated file; keep what was complete.
			if last != nil {
				break
			}
			return nil, fmt.Errorf("decode vasprun.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "varray" && attr(t, "name") == "forces":
				inBlock = true
				current = nil
			case inBlock && t.Name.Local == "v":
				inV = true
				text.Reset()
			}
		case xml.CharData:
			if inV {
				text.Write(t)
			}
		case xml.EndElement:
			switch {
			case inV && t.Name.Local == "v":
				inV = false
				v, err := backend.Vec3(strings.Fields(text.String()))
				if err != nil {
					return nil, fmt.Errorf("forces: %w", err)
				}
				current = append(current, v)
			case inBlock && t.Name.Local == "varray":
				inBlock = false
				last = current
			}
		}
	}
	if last == nil {
		return nil, fmt.Errorf("no forces found in vasprun.xml")
	}
	return last, nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// charsetReader decodes the ISO-8859-1 declared by VASP (and any other
// IANA charset) into UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
