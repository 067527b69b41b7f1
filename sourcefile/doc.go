// Package sourcefile reads configuration resources from a directory or an
// fs.FS.
//
// A resource name such as "conf/base" is looked up by probing each
// supported extension in order (.edn, .yaml, .yml, .toml, .json, .jsonc);
// the first file found wins.
//
// Example:
//
//	store := strata.NewStore(strata.WithResources(sourcefile.Dir(".")))
package sourcefile
