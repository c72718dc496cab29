// Package persistence provides the terminal's persistent configuration
// store and the credential records kept in it.
//
// A Store holds named string and unsigned integer records within one
// namespace. Three backends are available: MemoryStore for tests and
// simulation, FileStore (a JSON file replaced atomically on Commit) and
// SQLiteStore. Credentials layers the access PIN, admin PIN and door
// duration records on top of any Store and seeds them on first use.
package persistence
