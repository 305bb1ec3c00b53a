// Package main provides the entry point for the licensescan CLI.
//
// licensescan walks the installed npm dependencies of one or more projects
// and prints how many packages use each license, so that unknown, custom
// and explicitly unlicensed packages are caught before release.
//
// Usage:
//
//	licensescan <path...>
//	licensescan --indirect --excludeRepo https://github.com/my-org/app .
//	licensescan history --compare .
//
// See --help for all available options.
package main

// main is the entry point for licensescan.
func main() {
	Execute()
}
