package butler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/pipecheck/internal/ctxlog"
	"github.com/specialistvlad/pipecheck/internal/dataid"
	"github.com/specialistvlad/pipecheck/internal/dataset"
	"github.com/specialistvlad/pipecheck/internal/fsutil"
	"github.com/specialistvlad/pipecheck/internal/hclutil"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrDatasetNotFound is returned when no dataset of the requested kind
	// belongs to a data reference.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrAmbiguousLookup is returned when several datasets of a kind match a
	// data reference equally well.
	ErrAmbiguousLookup = errors.New("ambiguous dataset lookup")
)

// Entry is one dataset declared in the repository.
type Entry struct {
	Kind     dataset.Kind
	DataID   dataid.DataID
	Filename string
	// Object is the inline object description, or nil when the object must
	// be read from Filename.
	Object any
	// Source is the file and line that declared the entry.
	Source string
}

// Repository is a loaded, read-only dataset catalog.
type Repository struct {
	root     string
	datasets map[dataset.Kind][]*Entry
}

// hclRepoFile represents the top-level structure of a repository file.
type hclRepoFile struct {
	Datasets []*hclDataset `hcl:"dataset,block"`
}

type hclDataset struct {
	Kind     string    `hcl:"kind,label"`
	DataID   cty.Value `hcl:"data_id,optional"`
	Filename string    `hcl:"filename"`
	Body     hcl.Body  `hcl:",remain"`
}

// source reports where the dataset block was declared.
func (d *hclDataset) source() string {
	rng := d.Body.MissingItemRange()
	return fmt.Sprintf("%s:%d", rng.Filename, rng.Start.Line)
}

type hclExposure struct {
	PixelType string `hcl:"pixel_type"`
	Width     int    `hcl:"width"`
	Height    int    `hcl:"height"`
}

type hclCatalog struct {
	Records int `hcl:"records"`
}

var objectSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "exposure"},
		{Type: "catalog"},
		{Type: "background"},
	},
}

// Load reads every .hcl file under root into a Repository. Relative dataset
// filenames are resolved against root (or against root's directory when root
// is a single file).
func Load(ctx context.Context, root string) (*Repository, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading repository.", "root", root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	base := root
	if !info.IsDir() {
		base = filepath.Dir(root)
	}

	files, err := fsutil.FindFilesByExtension(root, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find repository files in %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in repository %s", root)
	}

	repo := &Repository{
		root:     base,
		datasets: make(map[dataset.Kind][]*Entry),
	}
	seen := make(map[string]string)
	parser := hclparse.NewParser()

	for _, file := range files {
		entries, err := repo.parseFile(parser, file)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			key := e.Kind.String() + " " + e.DataID.String()
			if prev, dup := seen[key]; dup {
				return nil, fmt.Errorf("%s: dataset %s with data ID %s already declared at %s", e.Source, e.Kind, e.DataID, prev)
			}
			seen[key] = e.Source
			repo.datasets[e.Kind] = append(repo.datasets[e.Kind], e)
		}
	}

	logger.Debug("Repository loaded.", "files", len(files), "datasets", len(seen))
	return repo, nil
}

func (r *Repository) parseFile(parser *hclparse.Parser, path string) ([]*Entry, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclRepoFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	entries := make([]*Entry, 0, len(parsed.Datasets))
	for _, d := range parsed.Datasets {
		e, err := r.newEntry(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.source(), err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Repository) newEntry(d *hclDataset) (*Entry, error) {
	kind, err := dataset.ParseKind(d.Kind)
	if err != nil {
		return nil, err
	}
	values, err := hclutil.StringMap(d.DataID)
	if err != nil {
		return nil, fmt.Errorf("data_id: %w", err)
	}
	id := make(dataid.DataID, len(values))
	for k, v := range values {
		id[k] = dataid.Canonical(v)
	}
	if d.Filename == "" {
		return nil, errors.New("filename must not be empty")
	}
	filename := d.Filename
	if !filepath.IsAbs(filename) {
		filename = filepath.Join(r.root, filename)
	}

	obj, err := decodeObject(kind, d.Body)
	if err != nil {
		return nil, err
	}

	return &Entry{
		Kind:     kind,
		DataID:   id,
		Filename: filename,
		Object:   obj,
		Source:   d.source(),
	}, nil
}

// decodeObject reads the optional inline object block of a dataset.
func decodeObject(kind dataset.Kind, body hcl.Body) (any, error) {
	content, diags := body.Content(objectSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	if len(content.Blocks) > 1 {
		return nil, fmt.Errorf("at most one object block is allowed, found %d", len(content.Blocks))
	}

	if block, diags := hclutil.FindUniqueBlock(content.Blocks, "exposure"); diags.HasErrors() {
		return nil, diags
	} else if block != nil {
		var exp hclExposure
		if diags := gohcl.DecodeBody(block.Body, nil, &exp); diags.HasErrors() {
			return nil, diags
		}
		return dataset.NewExposure(exp.PixelType, exp.Width, exp.Height)
	}

	if block, _ := hclutil.FindUniqueBlock(content.Blocks, "catalog"); block != nil {
		var cat hclCatalog
		if diags := gohcl.DecodeBody(block.Body, nil, &cat); diags.HasErrors() {
			return nil, diags
		}
		if cat.Records < 0 {
			return nil, fmt.Errorf("catalog records must not be negative")
		}
		if kind.Class() == dataset.ClassMatches {
			return &dataset.MatchCatalog{Records: cat.Records}, nil
		}
		return &dataset.Catalog{Records: cat.Records}, nil
	}

	if block, _ := hclutil.FindUniqueBlock(content.Blocks, "background"); block != nil {
		if _, diags := block.Body.Content(&hcl.BodySchema{}); diags.HasErrors() {
			return nil, diags
		}
		return &dataset.Background{}, nil
	}

	return nil, nil
}

// Root returns the directory relative filenames resolve against.
func (r *Repository) Root() string {
	return r.root
}

// Entries returns the datasets declared for kind in load order.
func (r *Repository) Entries(kind dataset.Kind) []*Entry {
	return r.datasets[kind]
}

// lookup finds the dataset of the given kind belonging to id. A dataset
// belongs to id when its data ID is a subset of id; the most specific match
// wins.
func (r *Repository) lookup(kind dataset.Kind, id dataid.DataID) (*Entry, error) {
	var best *Entry
	tie := false
	for _, e := range r.datasets[kind] {
		if !id.Contains(e.DataID) {
			continue
		}
		switch {
		case best == nil || len(e.DataID) > len(best.DataID):
			best, tie = e, false
		case len(e.DataID) == len(best.DataID):
			tie = true
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%s for %s: %w", kind, id, ErrDatasetNotFound)
	}
	if tie {
		return nil, fmt.Errorf("%s for %s: %w", kind, id, ErrAmbiguousLookup)
	}
	return best, nil
}

// Subset returns references for every dataset of kind whose data ID matches
// at least one selector, in repository order and without duplicates.
func (r *Repository) Subset(kind dataset.Kind, selectors []dataid.Selector) []DataRef {
	var refs []DataRef
	for _, e := range r.datasets[kind] {
		for _, sel := range selectors {
			if sel.Matches(e.DataID) {
				refs = append(refs, r.Ref(e.DataID))
				break
			}
		}
	}
	return refs
}

// Ref returns a reference to the unit of work identified by id.
func (r *Repository) Ref(id dataid.DataID) DataRef {
	return &dataRef{repo: r, id: id.Clone()}
}
