package app

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/artpar/sage/domain/bundle"
	"github.com/artpar/sage/domain/catalog"
	"github.com/artpar/sage/ports"
)

// Resolver maps an uploaded artifact onto the catalogs of a package spec:
// it checks the declared format, extracts archives into a per-run scratch
// directory, and pairs member files with the catalogs that validate them.
type Resolver struct {
	specs  *SpecService
	ids    ports.IDGenerator
	logger zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(specs *SpecService, ids ports.IDGenerator, logger zerolog.Logger) *Resolver {
	return &Resolver{
		specs:  specs,
		ids:    ids,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// Match pairs one data file with the catalog spec that validates it.
type Match struct {
	Ref  bundle.CatalogRef
	Spec *catalog.Spec
	File string
}

// Resolution is the outcome of mapping an artifact onto a package's catalogs.
// Structural problems (missing catalog specs, unmatched files) accumulate in
// Errors; they do not stop the catalogs that did resolve.
type Resolution struct {
	Matches []Match
	Errors  []string

	scratchDir string
}

// Cleanup removes the scratch extraction directory. Safe to call on every
// exit path, including when no archive was extracted.
func (r *Resolution) Cleanup() {
	if r.scratchDir != "" {
		os.RemoveAll(r.scratchDir)
		r.scratchDir = ""
	}
}

// Resolve maps artifact onto spec's catalogs. A format mismatch or an
// unreadable archive returns a *FormatError and no Resolution; all later
// failures are recorded in Resolution.Errors instead.
func (r *Resolver) Resolve(spec *bundle.Spec, artifact string) (*Resolution, error) {
	actual, err := bundle.FormatFromFilename(artifact)
	if err != nil {
		return nil, &FormatError{Expected: spec.Format, Got: filepath.Ext(artifact), Err: err}
	}
	if actual != spec.Format {
		return nil, &FormatError{Expected: spec.Format, Got: string(actual)}
	}

	res := &Resolution{}

	var files []string
	if spec.Format == bundle.FormatZIP {
		scratch, members, err := r.extract(artifact)
		if err != nil {
			return nil, &FormatError{Expected: spec.Format, Got: string(actual), Err: err}
		}
		res.scratchDir = scratch
		files = members
		r.logger.Info().Int("files", len(files)).Str("artifact", artifact).Msg("archive extracted")
	} else {
		files = []string{artifact}
	}

	used := make(map[string]bool, len(files))
	for _, ref := range spec.Catalogs {
		catSpec, err := r.specs.LoadCatalog(ref.Path)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("catalog file not found: %s", ref.Path))
			continue
		}

		file, ok := matchFile(ref, files, used, spec.Format)
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("no file in artifact matches catalog %q", ref.Name))
			continue
		}
		used[file] = true
		res.Matches = append(res.Matches, Match{Ref: ref, Spec: catSpec, File: file})
	}

	for _, f := range files {
		if !used[f] {
			res.Errors = append(res.Errors, fmt.Sprintf("file %s matches no catalog", filepath.Base(f)))
		}
	}

	return res, nil
}

// matchFile picks the member file backing one catalog reference: explicit
// filename first, then filename pattern, then the catalog name itself.
// Single-file packages match their one file to the first unmatched catalog.
func matchFile(ref bundle.CatalogRef, files []string, used map[string]bool, format bundle.Format) (string, bool) {
	if format != bundle.FormatZIP {
		for _, f := range files {
			if !used[f] {
				return f, true
			}
		}
		return "", false
	}

	var re *regexp.Regexp
	if ref.FilenamePattern != "" {
		re, _ = regexp.Compile(ref.FilenamePattern)
	}

	for _, f := range files {
		if used[f] {
			continue
		}
		base := filepath.Base(f)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		switch {
		case ref.Filename != "" && base == ref.Filename:
			return f, true
		case re != nil && re.MatchString(base):
			return f, true
		case ref.Filename == "" && re == nil && stem == ref.Name:
			return f, true
		}
	}
	return "", false
}

// extract unpacks a zip artifact into a uniquely named scratch directory and
// returns the member file paths. Directory members and paths escaping the
// scratch root are rejected.
func (r *Resolver) extract(artifact string) (string, []string, error) {
	zr, err := zip.OpenReader(artifact)
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer zr.Close()

	scratch, err := os.MkdirTemp("", "sage-extract-"+r.ids.New())
	if err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}

	var members []string
	for _, member := range zr.File {
		if member.FileInfo().IsDir() {
			continue
		}

		dest := filepath.Join(scratch, member.Name)
		if !strings.HasPrefix(dest, filepath.Clean(scratch)+string(os.PathSeparator)) {
			os.RemoveAll(scratch)
			return "", nil, fmt.Errorf("archive member %q escapes extraction dir", member.Name)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			os.RemoveAll(scratch)
			return "", nil, fmt.Errorf("extract %s: %w", member.Name, err)
		}

		if err := extractMember(member, dest); err != nil {
			os.RemoveAll(scratch)
			return "", nil, fmt.Errorf("extract %s: %w", member.Name, err)
		}
		members = append(members, dest)
	}

	return scratch, members, nil
}

func extractMember(member *zip.File, dest string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
