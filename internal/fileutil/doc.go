// Package fileutil turns command-line targets into the ordered list of
// E-Prime logs a batch will process.
//
// # Target resolution
//
// ResolveTargets accepts any mix of files and directories:
//
//	files, err := fileutil.ResolveTargets(args, fileutil.ScanOptions{
//	    Extension: ".txt",
//	    Recursive: cfg.Recursive,
//	}, log)
//
// A file target must carry the configured extension. A directory target
// expands to its matching regular files, sorted by path, descending into
// sub-directories only when Recursive is set. Hidden directories (such as
// .eprimestat) are never entered. Anything else, including missing paths,
// is reported to the Warner and skipped rather than failing the batch.
//
// Paths are returned absolute and de-duplicated: when two targets name the
// same file, the first position is kept. Batch output follows this order,
// so the same command line always produces the same summary.
//
// # Pattern filtering
//
// ScanOptions.Pattern is a regular expression matched against the file
// name without its extension, e.g. `^sub\d+$` to skip practice exports.
// It applies to file and directory targets alike.
package fileutil
