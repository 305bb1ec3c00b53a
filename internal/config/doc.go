// Package config provides configuration structures and utilities for licensescan.
// It defines the options of a single scan invocation, the optional
// .licensescan YAML file, and the XDG directories used for scan history.
package config
