package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/1siamBot/spritepak/engine/catalog"
	"github.com/1siamBot/spritepak/engine/imagecodec"
	"github.com/1siamBot/spritepak/engine/manifest"
	"github.com/1siamBot/spritepak/engine/pak"
)

func dims(a *pak.Asset) string {
	if a.Image == nil {
		return "-"
	}
	b := a.Image.Bounds()
	return fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
}

func encoding(a *pak.Asset) string {
	switch {
	case a.Encoding == pak.EncodingRaw:
		return "raw " + a.Geometry.String()
	case a.Encoding != "":
		return a.Encoding
	}
	return "-"
}

func short(digest string) string {
	if len(digest) > 16 {
		return digest[:16]
	}
	return digest
}

func runList(e *env, args []string) error {
	flags := pflag.NewFlagSet("list", pflag.ContinueOnError)
	previews := flags.Bool("previews", false, "only list assets that decode to an image")
	path, err := oneArg(flags, args)
	if err != nil {
		return err
	}
	r, err := e.resolver()
	if err != nil {
		return err
	}
	c, err := r.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "%s: %s, %d assets\n", path, c.Strategy, c.Len())
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tOFFSET\tSIZE\tENCODING\tIMAGE")
	for i, a := range c.Assets {
		if *previews && !a.HasPreview() {
			continue
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n", i, a.Name, a.Offset, a.Size(), encoding(a), dims(a))
	}
	return w.Flush()
}

func runExtract(e *env, args []string) error {
	exp, err := e.cfg.ExportOptions()
	if err != nil {
		return err
	}
	flags := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	out := flags.StringP("out", "o", "", "output directory (default: <file>_extracted)")
	format := flags.String("format", string(exp.Format), "image format: png, bmp, jpeg or gif")
	flags.IntVar(&exp.Scale, "scale", exp.Scale, "nearest-neighbour upscale factor")
	flags.IntVar(&exp.Quality, "quality", exp.Quality, "JPEG quality")
	path, err := oneArg(flags, args)
	if err != nil {
		return err
	}
	if exp.Format, err = imagecodec.ParseFormat(*format); err != nil {
		return usagef("extract: %v", err)
	}
	if _, err := imagecodec.Encoder(exp.Format, exp.Quality); err != nil {
		return usagef("extract: %v", err)
	}

	r, err := e.resolver()
	if err != nil {
		return err
	}
	c, err := r.ReadFile(path)
	if err != nil {
		return err
	}
	dir := *out
	if dir == "" {
		dir = path + "_extracted"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &pak.FileError{Op: "mkdir", Path: dir, Err: err}
	}

	m := manifest.New(filepath.Base(path), c)
	file := &catalog.File{Path: path, Container: c}
	failed := 0
	for i, a := range c.Assets {
		written, err := catalog.ExportSprite(catalog.Sprite{File: file, Index: i, Asset: a}, dir, exp)
		if err != nil {
			// One bad asset does not stop the rest.
			e.log.Warn("export failed", "asset", a.Name, "err", err)
			failed++
			continue
		}
		m.Entries[i].File = filepath.Base(written)
	}
	if err := manifest.Write(filepath.Join(dir, manifest.FileName), m); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s: %s, exported %d of %d assets to %s\n", path, c.Strategy, c.Len()-failed, c.Len(), dir)
	if failed > 0 {
		return fmt.Errorf("%d assets failed to export", failed)
	}
	return nil
}

func runScan(e *env, args []string) error {
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	path, err := oneArg(flags, args)
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return &pak.FileError{Op: "read", Path: path, Err: err}
	}
	opts, err := e.cfg.ResolverOptions(e.log)
	if err != nil {
		return err
	}

	type hit struct {
		offset int
		format imagecodec.Format
	}
	var hits []hit
	for _, sig := range pak.DefaultSignatures() {
		for at := pak.FindSignature(buf, sig.Magic, 0); at != pak.NotFound; at = pak.FindSignature(buf, sig.Magic, at+1) {
			hits = append(hits, hit{at, sig.Format})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].offset < hits[j].offset })

	decoded := map[int64]*pak.Asset{}
	if c, err := pak.NewSignatureSweep(opts.Sniffer, opts.Window).Attempt(buf); err == nil {
		for _, a := range c.Assets {
			decoded[a.Offset] = a
		}
	}

	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tSIGNATURE\tDECODED\tSIZE\tIMAGE")
	for _, h := range hits {
		if a, ok := decoded[int64(h.offset)]; ok && a.Encoding == string(h.format) {
			fmt.Fprintf(w, "%#x\t%s\tyes\t%d\t%s\n", h.offset, h.format, a.Size(), dims(a))
			continue
		}
		fmt.Fprintf(w, "%#x\t%s\tno\t-\t-\n", h.offset, h.format)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d signature hits, %d decoded\n", len(hits), len(decoded))
	return nil
}

func runCatalog(e *env, args []string) error {
	flags := pflag.NewFlagSet("catalog", pflag.ContinueOnError)
	filter := flags.String("filter", catalog.All, "only show files of this category")
	dups := flags.Bool("duplicates", false, "list sprites with identical payloads")
	dir, err := oneArg(flags, args)
	if err != nil {
		return err
	}
	r, err := e.resolver()
	if err != nil {
		return err
	}
	cat := catalog.New(r, catalog.Options{
		Rules:      e.cfg.Catalog.Categories,
		Extensions: e.cfg.Catalog.Extensions,
		Logger:     e.log,
	})
	n, err := cat.LoadFolder(dir)
	if err != nil {
		return err
	}
	cat.SetFilter(*filter)

	if *dups {
		for _, group := range cat.Duplicates() {
			fmt.Fprintf(e.stdout, "%s (%d bytes):\n", short(manifest.Digest(group[0].Asset.Data)), group[0].Asset.Size())
			for _, s := range group {
				fmt.Fprintf(e.stdout, "  %s/%s\n", s.File.Name(), s.Asset.Name)
			}
		}
		return nil
	}

	fmt.Fprintf(e.stdout, "%s: %d files, %d sprites (filter %s)\n", dir, n, cat.Len(), cat.Filter())
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tFILE\tCATEGORY\tNAME\tSIZE\tIMAGE")
	for i, s := range cat.Sprites() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", i, s.File.Name(), s.File.Category, s.Asset.Name, s.Asset.Size(), dims(s.Asset))
	}
	return w.Flush()
}

func runManifest(e *env, args []string) error {
	flags := pflag.NewFlagSet("manifest", pflag.ContinueOnError)
	diag := flags.Bool("diag", false, "print CBOR diagnostic notation")
	verify := flags.String("verify", "", "check digests against this container file")
	path, err := oneArg(flags, args)
	if err != nil {
		return err
	}

	if *diag {
		data, err := os.ReadFile(path)
		if err != nil {
			return &pak.FileError{Op: "read", Path: path, Err: err}
		}
		text, err := manifest.Diagnose(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, text)
		return nil
	}

	m, err := manifest.Read(path)
	if err != nil {
		return err
	}
	if *verify != "" {
		r, err := e.resolver()
		if err != nil {
			return err
		}
		c, err := r.ReadFile(*verify)
		if err != nil {
			return err
		}
		if err := m.Verify(c); err != nil {
			return fmt.Errorf("verify %s: %w", *verify, err)
		}
		fmt.Fprintf(e.stdout, "%s: %d assets match\n", *verify, len(m.Entries))
		return nil
	}

	fmt.Fprintf(e.stdout, "%s: %s, %d assets\n", m.Source, m.Strategy, len(m.Entries))
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOFFSET\tSIZE\tENCODING\tBLAKE3\tFILE")
	for _, en := range m.Entries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n", en.Name, en.Offset, en.Size, en.Encoding, short(en.Digest), en.File)
	}
	return w.Flush()
}
