// Package config loads server and CLI configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// file (longtext.yaml by default), a .env file, and LONGTEXT_* environment
// variables such as LONGTEXT_DB_PATH or LONGTEXT_MAX_CHUNK_SIZE.
package config
