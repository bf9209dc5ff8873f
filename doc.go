/*
Package listctl is a tool for building a combined DNS blocklist.

listctl downloads a fixed table of public ad, tracker and malware
blocklists, merges them and writes the sorted, deduplicated union to a
single file suitable for AdGuard Home and similar resolvers. Features
include:
  - Concurrent downloads with an optional connection limit
  - Plain and xz compressed sources
  - Atomic replacement of the output file
  - Optional checksum, JSON manifest and OpenPGP signature
  - Prometheus textfile metrics
  - Scheduled rebuilds

The main packages are:

	github.com/mirrorctl/listctl/internal/blocklist - Fetching, merging and writing lists
	github.com/mirrorctl/listctl/internal/digest    - Size and checksum tracking of written files
	github.com/mirrorctl/listctl/cmd/listctl        - Command-line interface
*/
package listctl
