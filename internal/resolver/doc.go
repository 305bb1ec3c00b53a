// Package resolver discovers the packages a project depends on and
// determines each package's license metadata.
//
// The Resolver interface is the only thing the aggregator depends on.
// NPMResolver is the built-in implementation: it reads package.json
// manifests from installed node_modules trees, the same data the npm
// license crawler works from.
//
// Resolution is a single blocking call that returns either the complete
// result mapping or an *Error. There are no partial results.
package resolver
