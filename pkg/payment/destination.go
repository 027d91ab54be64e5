package payment

// Format is the serialization format of an export.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Extension returns the file extension matching the format, with the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// DestinationKind tells where an export is written.
type DestinationKind string

// Destination kinds. Console is spelled "shell" on the command line.
const (
	Console DestinationKind = "shell"
	File    DestinationKind = "file"
)

// Destination is the target of an export. Path is set only for File.
type Destination struct {
	Kind DestinationKind
	Path string
}

// ConsoleDestination returns the console destination.
func ConsoleDestination() Destination {
	return Destination{Kind: Console}
}

// FileDestination returns a file destination.
func FileDestination(path string) Destination {
	return Destination{Kind: File, Path: path}
}

// String returns "console" or the file path.
func (d Destination) String() string {
	if d.Kind == File {
		return d.Path
	}
	return "console"
}
