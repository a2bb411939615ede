// Package pack loads ahoy language packs.
//
// A language pack is a directory, usually a git repository, laid out as:
//
//	ahoy.yml            manifest (ahoy.json with comments is also accepted)
//	builds/<file>       files copied verbatim into the project (Dockerfiles)
//	services/<name>.yml compose service definitions, one service per file
//
// Packs are referenced by a local path, a bare name for an official pack
// ("php" → codemasonhq/ahoy-install-php), an owner/repo pair, or a full git
// URL. Remote packs are shallow-cloned into memory and never touch disk.
package pack
