// Copyright 2017 Robert Iannucci Jr. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package archive

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/luci/luci-go/common/data/stringset"
	"github.com/luci/luci-go/common/errors"

	"github.com/quinacrid/parc/par/sllz"
)

// manifestHeader is the fixed first line of a manifest sidecar.
const manifestHeader = "PXD ARCHIVE MANIFEST"

func ynString(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func parseYN(value string) (bool, error) {
	switch value {
	case "Y":
		return true, nil
	case "N":
		return false, nil
	}
	return false, errors.Reason("archive: manifest Y/N field %(value)q").D("value", value).Err()
}

// WriteManifest writes a plaintext sidecar describing a's archive-level
// header fields (platform, endianness, extension flags, size mode,
// unknown_a, flat counts — the ones a plain filesystem walk can't recover)
// plus its tree: one <dir>/<file> tag pair per entry, nested to match the
// tree, each containing its own TAB-separated Key\tValue metadata lines.
func WriteManifest(a *Archive, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Annotate(err).Reason("archive: creating manifest %(path)q").D("path", path).Err()
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintln(bw, manifestHeader)
	fmt.Fprintln(bw, "<archive>")
	fmt.Fprintf(bw, "\tName\t%s\n", a.Name)
	fmt.Fprintf(bw, "\tPlat\t%d\n", a.Platform)
	fmt.Fprintf(bw, "\tEndi\t%d\n", byte(a.Endian))
	fmt.Fprintf(bw, "\tSExt\t%s\n", ynString(a.SizeExtended))
	fmt.Fprintf(bw, "\tRelo\t%s\n", ynString(a.Relocated))
	fmt.Fprintf(bw, "\tFSM\t%d\n", byte(a.FileSizeMode))
	fmt.Fprintf(bw, "\tUnkA\t%d\n", a.UnknownA)
	fmt.Fprintf(bw, "\tDC\t%d\n", len(a.Directories))
	fmt.Fprintf(bw, "\tFC\t%d\n", len(a.Files))

	var walk func(d *Directory, indent string) error
	walk = func(d *Directory, indent string) error {
		for _, c := range d.Subdirectories {
			fmt.Fprintf(bw, "%s<dir>\n", indent)
			fmt.Fprintf(bw, "%sName\t%s\n", indent+"\t", c.Name)
			fmt.Fprintf(bw, "%sDC\t%d\n", indent+"\t", len(c.Subdirectories))
			fmt.Fprintf(bw, "%sFDI\t%d\n", indent+"\t", c.FirstDirIndex)
			fmt.Fprintf(bw, "%sFC\t%d\n", indent+"\t", len(c.Files))
			fmt.Fprintf(bw, "%sFFI\t%d\n", indent+"\t", c.FirstFileIndex)
			fmt.Fprintf(bw, "%sAttr\t%x\n", indent+"\t", c.Attributes)
			if err := walk(c, indent+"\t"); err != nil {
				return err
			}
			fmt.Fprintf(bw, "%s</dir>\n", indent)
		}
		for _, file := range d.Files {
			fmt.Fprintf(bw, "%s<file>\n", indent)
			fmt.Fprintf(bw, "%sName\t%s\n", indent+"\t", file.Name)
			fmt.Fprintf(bw, "%sComp\t%s\n", indent+"\t", ynString(file.OrigCompressed))
			if file.OrigCompressed {
				version, endian, _ := file.sllzInfo()
				fmt.Fprintf(bw, "%sEndi\t%d\n", indent+"\t", byte(endian))
				fmt.Fprintf(bw, "%sSLLZ\t%d\n", indent+"\t", byte(version))
			}
			fmt.Fprintf(bw, "%sAttr\t%x\n", indent+"\t", file.Attributes)
			fmt.Fprintf(bw, "%sTime\t%d\n", indent+"\t", file.Timestamp)
			fmt.Fprintf(bw, "%s</file>\n", indent)
		}
		return nil
	}
	if a.Root != nil {
		if err := walk(a.Root, "\t"); err != nil {
			return err
		}
	}
	fmt.Fprintln(bw, "</archive>")
	return bw.Flush()
}

// manifestFile is one <file> block's parsed metadata.
type manifestFile struct {
	name        string
	compressed  bool
	sllzVersion sllz.Version
	sllzEndian  sllz.Endianness
	attributes  uint32
	timestamp   uint64
}

// manifestDir is one <dir> block's parsed metadata.
type manifestDir struct {
	name           string
	firstDirIndex  uint32
	firstFileIndex uint32
	attributes     uint32
	subdirs        []manifestDir
	files          []manifestFile
}

// manifestArchive is the parsed <archive> block: header-level metadata
// plus the top-level tree entries nested directly beneath it.
type manifestArchive struct {
	name         string
	platform     byte
	endian       Endianness
	sizeExtended bool
	relocated    bool
	fileSizeMode FileSizeMode
	unknownA     uint16
	subdirs      []manifestDir
	files        []manifestFile
}

type manifestFrameKind int

const (
	frameArchive manifestFrameKind = iota
	frameDir
	frameFile
)

// manifestFrame accumulates one open tag's fields and children while the
// scanner is still inside it.
type manifestFrame struct {
	kind manifestFrameKind

	name string

	// archive fields
	platform     byte
	endian       Endianness
	sizeExtended bool
	relocated    bool
	fileSizeMode FileSizeMode
	unknownA     uint16

	// archive/dir fields
	declaredDirCount  int
	declaredFileCount int
	firstDirIndex     uint32
	firstFileIndex    uint32
	attributes        uint32

	// file fields
	compressed  bool
	sllzVersion sllz.Version
	sllzEndian  sllz.Endianness
	timestamp   uint64
	sawTime     bool

	subdirs []manifestDir
	files   []manifestFile
	names   stringset.Set
}

func countAllDirs(dirs []manifestDir) int {
	n := len(dirs)
	for _, d := range dirs {
		n += countAllDirs(d.subdirs)
	}
	return n
}

func countAllFiles(dirs []manifestDir) int {
	n := 0
	for _, d := range dirs {
		n += len(d.files) + countAllFiles(d.subdirs)
	}
	return n
}

// ReadManifest parses a sidecar written by WriteManifest, validating that
// every <archive>/<dir>/<file> open tag has a matching close tag, that no
// scope repeats a child name, and that each scope's declared DC/FC counts
// match the number of children actually read.
func ReadManifest(path string) (*manifestArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Annotate(err).Reason("archive: opening manifest %(path)q").D("path", path).Err()
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return nil, errors.New("archive: empty manifest")
	}
	if strings.TrimSpace(sc.Text()) != manifestHeader {
		return nil, errors.Reason("archive: manifest missing %(want)q header").D("want", manifestHeader).Err()
	}

	var stack []*manifestFrame
	var result *manifestArchive

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case line == "<archive>":
			if result != nil || len(stack) != 0 {
				return nil, errors.New("archive: manifest has more than one top-level <archive> tag")
			}
			stack = append(stack, &manifestFrame{kind: frameArchive, names: stringset.New(0)})
		case line == "</archive>":
			closed, err := closeManifestFrame(&stack, frameArchive)
			if err != nil {
				return nil, err
			}
			result = closed.(*manifestArchive)
		case line == "<dir>":
			if len(stack) == 0 {
				return nil, errors.New("archive: manifest <dir> tag outside an <archive> tag")
			}
			stack = append(stack, &manifestFrame{kind: frameDir, names: stringset.New(0)})
		case line == "</dir>":
			closed, err := closeManifestFrame(&stack, frameDir)
			if err != nil {
				return nil, err
			}
			if err := appendManifestChild(stack, closed); err != nil {
				return nil, err
			}
		case line == "<file>":
			if len(stack) == 0 {
				return nil, errors.New("archive: manifest <file> tag outside an <archive> tag")
			}
			stack = append(stack, &manifestFrame{kind: frameFile})
		case line == "</file>":
			closed, err := closeManifestFrame(&stack, frameFile)
			if err != nil {
				return nil, err
			}
			if err := appendManifestChild(stack, closed); err != nil {
				return nil, err
			}
		default:
			if len(stack) == 0 {
				return nil, errors.Reason("archive: manifest metadata line %(line)q outside any tag").D("line", line).Err()
			}
			if err := applyManifestField(stack[len(stack)-1], line); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(stack) != 0 {
		return nil, errors.Reason("archive: manifest has %(n)d unclosed tag(s)").D("n", len(stack)).Err()
	}
	if result == nil {
		return nil, errors.New("archive: manifest has no <archive> tag")
	}
	return result, nil
}

// closeManifestFrame pops the top frame off stack, validates its declared
// counts (where applicable) against the children it actually accumulated,
// and returns the finished manifestArchive/manifestDir/manifestFile value.
func closeManifestFrame(stack *[]*manifestFrame, want manifestFrameKind) (interface{}, error) {
	s := *stack
	if len(s) == 0 {
		return nil, errors.New("archive: unmatched closing tag in manifest")
	}
	top := s[len(s)-1]
	if top.kind != want {
		return nil, errors.New("archive: mismatched open/close tag in manifest")
	}
	*stack = s[:len(s)-1]

	switch top.kind {
	case frameArchive:
		gotDirs := countAllDirs(top.subdirs)
		if top.declaredDirCount != gotDirs {
			return nil, errors.Reason("archive: manifest archive DC %(want)d does not match %(got)d directories read").
				D("want", top.declaredDirCount).D("got", gotDirs).Err()
		}
		gotFiles := countAllFiles(top.subdirs) + len(top.files)
		if top.declaredFileCount != gotFiles {
			return nil, errors.Reason("archive: manifest archive FC %(want)d does not match %(got)d files read").
				D("want", top.declaredFileCount).D("got", gotFiles).Err()
		}
		return &manifestArchive{
			name:         top.name,
			platform:     top.platform,
			endian:       top.endian,
			sizeExtended: top.sizeExtended,
			relocated:    top.relocated,
			fileSizeMode: top.fileSizeMode,
			unknownA:     top.unknownA,
			subdirs:      top.subdirs,
			files:        top.files,
		}, nil
	case frameDir:
		if top.declaredDirCount != len(top.subdirs) {
			return nil, errors.Reason("archive: manifest directory %(name)q DC %(want)d does not match %(got)d children read").
				D("name", top.name).D("want", top.declaredDirCount).D("got", len(top.subdirs)).Err()
		}
		if top.declaredFileCount != len(top.files) {
			return nil, errors.Reason("archive: manifest directory %(name)q FC %(want)d does not match %(got)d children read").
				D("name", top.name).D("want", top.declaredFileCount).D("got", len(top.files)).Err()
		}
		return manifestDir{
			name:           top.name,
			firstDirIndex:  top.firstDirIndex,
			firstFileIndex: top.firstFileIndex,
			attributes:     top.attributes,
			subdirs:        top.subdirs,
			files:          top.files,
		}, nil
	case frameFile:
		if !top.sawTime {
			return nil, errors.Reason("archive: manifest file %(name)q missing mandatory Time line").D("name", top.name).Err()
		}
		return manifestFile{
			name:        top.name,
			compressed:  top.compressed,
			sllzVersion: top.sllzVersion,
			sllzEndian:  top.sllzEndian,
			attributes:  top.attributes,
			timestamp:   top.timestamp,
		}, nil
	}
	return nil, errors.New("archive: unknown manifest frame kind")
}

// appendManifestChild attaches a closed <dir>/<file> frame's result to the
// frame now on top of stack, rejecting a duplicate sibling name.
func appendManifestChild(stack []*manifestFrame, closed interface{}) error {
	if len(stack) == 0 {
		return errors.New("archive: manifest tag closed with no enclosing tag")
	}
	parent := stack[len(stack)-1]
	switch v := closed.(type) {
	case manifestDir:
		if !parent.names.Add(v.name) {
			return errors.Reason("archive: duplicate manifest entry name %(name)q").D("name", v.name).Err()
		}
		parent.subdirs = append(parent.subdirs, v)
	case manifestFile:
		if !parent.names.Add(v.name) {
			return errors.Reason("archive: duplicate manifest entry name %(name)q").D("name", v.name).Err()
		}
		parent.files = append(parent.files, v)
	default:
		return errors.New("archive: unexpected manifest child type")
	}
	return nil
}

// applyManifestField parses one "Key\tValue" line and stores it onto fr.
func applyManifestField(fr *manifestFrame, line string) error {
	key, value, ok := strings.Cut(line, "\t")
	if !ok {
		return errors.Reason("archive: malformed manifest line %(line)q").D("line", line).Err()
	}
	switch key {
	case "Name":
		fr.name = value
	case "Plat":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing Plat %(value)q").D("value", value).Err()
		}
		fr.platform = byte(n)
	case "Endi":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing Endi %(value)q").D("value", value).Err()
		}
		if fr.kind == frameFile {
			fr.sllzEndian = sllz.Endianness(n)
		} else {
			fr.endian = Endianness(n)
		}
	case "SExt":
		b, err := parseYN(value)
		if err != nil {
			return err
		}
		fr.sizeExtended = b
	case "Relo":
		b, err := parseYN(value)
		if err != nil {
			return err
		}
		fr.relocated = b
	case "FSM":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing FSM %(value)q").D("value", value).Err()
		}
		fr.fileSizeMode = FileSizeMode(n)
	case "UnkA":
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing UnkA %(value)q").D("value", value).Err()
		}
		fr.unknownA = uint16(n)
	case "DC":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing DC %(value)q").D("value", value).Err()
		}
		fr.declaredDirCount = n
	case "FDI":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing FDI %(value)q").D("value", value).Err()
		}
		fr.firstDirIndex = uint32(n)
	case "FC":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing FC %(value)q").D("value", value).Err()
		}
		fr.declaredFileCount = n
	case "FFI":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing FFI %(value)q").D("value", value).Err()
		}
		fr.firstFileIndex = uint32(n)
	case "Attr":
		n, err := strconv.ParseUint(value, 16, 32)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing Attr %(value)q").D("value", value).Err()
		}
		fr.attributes = uint32(n)
	case "Comp":
		b, err := parseYN(value)
		if err != nil {
			return err
		}
		fr.compressed = b
	case "SLLZ":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing SLLZ %(value)q").D("value", value).Err()
		}
		fr.sllzVersion = sllz.Version(n)
	case "Time":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Annotate(err).Reason("archive: parsing Time %(value)q").D("value", value).Err()
		}
		fr.timestamp = n
		fr.sawTime = true
	default:
		return errors.Reason("archive: unknown manifest key %(key)q").D("key", key).Err()
	}
	return nil
}

// ArchiveFromManifest reads a manifest sidecar and rebuilds the Archive it
// describes: archive-level header fields come straight from the <archive>
// tag, and each <file> entry's payload is read from payloadRoot at the
// same relative path the manifest's nesting implies. A file whose manifest
// entry records SLLZ compression is re-encoded with those exact
// parameters after being read, rather than trusting the on-disk bytes to
// already be in that state.
func ArchiveFromManifest(ctx context.Context, manifestPath, payloadRoot string, opts *Options) (*Archive, error) {
	o := resolveOptions(opts)

	ma, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	buildFile := func(e manifestFile, path string) (*File, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Annotate(err).Reason("archive: reading payload %(path)q").D("path", path).Err()
		}
		f := NewFile(e.name)
		f.Attributes = e.attributes
		f.Timestamp = e.timestamp
		f.Size = int64(len(data))
		f.EntryLength = uint32(len(data))
		f.SetData(data, false)
		if e.compressed {
			scheme := SLLZv1
			if e.sllzVersion == sllz.V2 {
				scheme = SLLZv2
			}
			if err := f.Encode(ctx, o, EncodeParams{Scheme: scheme, Endian: e.sllzEndian}, true); err != nil {
				return nil, errors.Annotate(err).Reason("archive: re-encoding %(name)q from manifest").D("name", e.name).Err()
			}
		}
		return f, nil
	}

	var buildDir func(dirs []manifestDir, files []manifestFile, dirPath string) ([]*Directory, []*File, error)
	buildDir = func(dirs []manifestDir, files []manifestFile, dirPath string) ([]*Directory, []*File, error) {
		var outDirs []*Directory
		var outFiles []*File
		for _, e := range dirs {
			d := NewDirectory(e.name)
			d.Attributes = e.attributes
			subDirs, subFiles, err := buildDir(e.subdirs, e.files, filepath.Join(dirPath, e.name))
			if err != nil {
				return nil, nil, err
			}
			d.Subdirectories = subDirs
			d.Files = subFiles
			outDirs = append(outDirs, d)
		}
		for _, e := range files {
			f, err := buildFile(e, filepath.Join(dirPath, e.name))
			if err != nil {
				return nil, nil, err
			}
			outFiles = append(outFiles, f)
		}
		return outDirs, outFiles, nil
	}

	subDirs, subFiles, err := buildDir(ma.subdirs, ma.files, payloadRoot)
	if err != nil {
		return nil, err
	}

	a := NewArchive(ma.name)
	a.Platform = ma.platform
	a.Endian = ma.endian
	a.SizeExtended = ma.sizeExtended
	a.Relocated = ma.relocated
	a.FileSizeMode = ma.fileSizeMode
	a.UnknownA = ma.unknownA
	a.Root = NewDirectory("")
	a.Root.Subdirectories = subDirs
	a.Root.Files = subFiles
	a.flatten(o.RootDirEmission)
	a.dataLoaded = true
	return a, nil
}
