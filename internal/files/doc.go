// Package files discovers observation tables on disk. When the configured
// data file is missing, ResolveDataFile falls back to the newest .xlsx or
// .csv file in the raw data directory.
package files
