package confschema

// Parser is the contract the core requires from whatever config file
// reader is wired in front of it (spec.md §6: "configuration contract
// consumed from the parser"). Implementations live outside this package
// (see internal/confschema/viperparser for the one this repository
// ships); the core only ever depends on this interface.
type Parser interface {
	// Parse fills in schema from the named section and returns nil on
	// success. A contract violation is returned as a *ParseError
	// describing which one occurred; other failures, such as an error
	// returned by an entry's Callback, may be returned as plain errors.
	Parse(section string, schema *Schema) error

	// RegisterFile tells the parser which backing file to read before
	// any Parse call. It returns a *ParseError with StatusFileNotOpenable
	// if the file cannot be opened.
	RegisterFile(path string) error
}
