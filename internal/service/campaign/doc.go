// Package campaign implements campaign lifecycle management.
//
// The service layer validates operator input, normalizes recipient lists,
// and applies dispatch batch results. It depends on the repository interface
// defined in this package and should never import from handler/.
//
// The file-backed implementation lives in repository/filestore/.
package campaign
