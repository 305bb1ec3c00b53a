package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/licensescan/internal/model"
)

const (
	// nodeModulesDir is where npm installs dependencies.
	nodeModulesDir = "node_modules"

	// defaultCacheSize bounds the number of parsed manifests kept in memory.
	// Large monorepos install a few thousand packages; re-reading the rest
	// from disk is cheap.
	defaultCacheSize = 4096

	// defaultConcurrency is the number of start paths resolved in parallel.
	defaultConcurrency = 4
)

// NPMResolver resolves licenses from installed npm packages.
//
// For each start path it finds the project manifests (package.json files
// outside node_modules) and follows their declared dependencies into
// node_modules using Node's lookup rules: <dir>/node_modules/<name>,
// then each parent directory up to the start path.
type NPMResolver struct {
	// logger reports skipped packages and progress.
	logger *slog.Logger

	// diag receives the per-package diagnostic tree. Nil disables it.
	diag io.Writer

	// concurrency is the number of start paths resolved in parallel.
	concurrency int

	// cache holds parsed manifests keyed by absolute package.json path.
	// It is shared by all start paths of one resolver.
	cache *lru.Cache[string, *manifest]
}

// Option configures an NPMResolver.
type Option func(*NPMResolver)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *NPMResolver) {
		r.logger = logger
	}
}

// WithDiagnosticWriter sets the destination of the diagnostic tree.
// Pass nil to silence it.
func WithDiagnosticWriter(w io.Writer) Option {
	return func(r *NPMResolver) {
		r.diag = w
	}
}

// WithConcurrency sets the number of start paths resolved in parallel.
func WithConcurrency(n int) Option {
	return func(r *NPMResolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewNPMResolver creates an NPMResolver. Diagnostics go to stdout unless
// WithDiagnosticWriter says otherwise.
func NewNPMResolver(opts ...Option) (*NPMResolver, error) {
	cache, err := lru.New[string, *manifest](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest cache: %w", err)
	}

	r := &NPMResolver{
		diag:        os.Stdout,
		concurrency: defaultConcurrency,
		cache:       cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// Resolve implements Resolver.
func (r *NPMResolver) Resolve(ctx context.Context, opts Options) (map[string]model.PackageLicenseInfo, error) {
	if len(opts.Start) == 0 {
		return nil, &Error{Err: ErrNoStartPath}
	}

	exclude := newExcludeMatcher(opts.Exclude)
	perPath := make([]map[string]model.PackageLicenseInfo, len(opts.Start))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, start := range opts.Start {
		g.Go(func() error {
			res, err := r.resolvePath(gctx, start, opts, exclude)
			if err != nil {
				return &Error{Path: start, Err: err}
			}
			perPath[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var rerr *Error
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		return nil, &Error{Err: err}
	}

	// Merge in start path order; the first path that reports a key wins.
	merged := make(map[string]model.PackageLicenseInfo)
	for _, res := range perPath {
		for name, info := range res {
			if _, ok := merged[name]; !ok {
				merged[name] = info
			}
		}
	}

	r.logger.Debug("resolution complete",
		"paths", len(opts.Start),
		"packages", len(merged),
	)

	if err := newDiagnosticPrinter(r.diag, !opts.NoColor).print(merged); err != nil {
		r.logger.Warn("failed to write diagnostics", "error", err)
	}

	return merged, nil
}

// resolvePath resolves a single start path.
func (r *NPMResolver) resolvePath(ctx context.Context, start string, opts Options, exclude *excludeMatcher) (map[string]model.PackageLicenseInfo, error) {
	root, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read start path: %w", err)
	}
	if !info.IsDir() {
		if filepath.Base(root) != manifestFile {
			return nil, fmt.Errorf("start path is neither a directory nor a %s", manifestFile)
		}
		root = filepath.Dir(root)
	}

	manifests, err := r.findManifests(ctx, root, !opts.Dependencies, exclude)
	if err != nil {
		return nil, err
	}

	results := make(map[string]model.PackageLicenseInfo)

	if !opts.Dependencies {
		for _, path := range manifests {
			m, err := r.loadManifest(path)
			if err != nil {
				r.logger.Warn("skipping unreadable manifest", "path", path, "error", err)
				continue
			}
			if m.Name == "" {
				// Nested manifests such as {"type": "module"} describe no package.
				continue
			}
			r.add(results, m, filepath.Dir(path))
		}
		return results, nil
	}

	for _, path := range manifests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		project, err := r.loadManifest(path)
		if err != nil {
			return nil, err
		}
		if err := r.walkDependencies(ctx, root, filepath.Dir(path), project, opts, exclude, results); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// queued is a dependency waiting to be looked up from a directory.
type queued struct {
	dep  dependency
	from string
}

// walkDependencies adds the dependencies of the project in projectDir to
// results, breadth first. Transitive dependencies are followed only when
// OnlyDirectDependencies is false.
func (r *NPMResolver) walkDependencies(
	ctx context.Context,
	root, projectDir string,
	project *manifest,
	opts Options,
	exclude *excludeMatcher,
	results map[string]model.PackageLicenseInfo,
) error {
	deps := project.projectDependencies()
	queue := make([]queued, 0, len(deps))
	for _, d := range deps {
		queue = append(queue, queued{dep: d, from: projectDir})
	}
	visited := make(map[string]bool)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		item := queue[0]
		queue = queue[1:]

		dir := lookupPackage(item.dep.name, item.from, root)
		if dir == "" {
			level := slog.LevelWarn
			if item.dep.optional {
				level = slog.LevelDebug
			}
			r.logger.Log(ctx, level, "dependency not installed",
				"package", item.dep.name,
				"from", item.from,
			)
			continue
		}
		if visited[dir] {
			continue
		}
		visited[dir] = true

		if exclude.match(root, dir) {
			r.logger.Debug("excluded package path", "path", dir)
			continue
		}

		m, err := r.loadManifest(filepath.Join(dir, manifestFile))
		if err != nil {
			r.logger.Warn("skipping unreadable dependency manifest",
				"package", item.dep.name,
				"error", err,
			)
			continue
		}
		r.add(results, m, dir)

		if opts.OnlyDirectDependencies {
			continue
		}
		for _, d := range m.runtimeDependencies() {
			queue = append(queue, queued{dep: d, from: dir})
		}
	}
	return nil
}

// add stores the license info of m; the first package seen under a key wins.
func (r *NPMResolver) add(results map[string]model.PackageLicenseInfo, m *manifest, dir string) {
	info := m.licenseInfo(dir)
	if _, ok := results[info.Name]; ok {
		return
	}
	results[info.Name] = info
}

// loadManifest reads a manifest through the cache.
func (r *NPMResolver) loadManifest(path string) (*manifest, error) {
	if m, ok := r.cache.Get(path); ok {
		return m, nil
	}
	m, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(path, m)
	return m, nil
}

// findManifests walks root and returns package.json paths in walk order.
// node_modules is descended only when includeInstalled is true; otherwise
// only project manifests are returned.
func (r *NPMResolver) findManifests(ctx context.Context, root string, includeInstalled bool, exclude *excludeMatcher) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			r.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			switch d.Name() {
			case ".git":
				return filepath.SkipDir
			case nodeModulesDir:
				if !includeInstalled {
					return filepath.SkipDir
				}
			}
			if exclude.match(root, path) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() == manifestFile && !exclude.match(root, path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// lookupPackage finds the installed directory of name as seen from dir,
// walking up to root. It returns an empty string if the package is not
// installed.
func lookupPackage(name, dir, root string) string {
	for {
		candidate := filepath.Join(dir, nodeModulesDir, filepath.FromSlash(name))
		if _, err := os.Stat(filepath.Join(candidate, manifestFile)); err == nil {
			return candidate
		}
		if dir == root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
