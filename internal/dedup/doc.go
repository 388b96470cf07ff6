// Package dedup provides the duplicate detection engine for incoming support
// tickets. It combines metadata matching, semantic (embedding) similarity, and
// active-incident correlation over a caller-supplied candidate set, and
// resolves the gathered signals into a single deduplication decision.
package dedup
