package tyson

// Worst-case encoded sizes for common values. For variable-length types
// such as strings and containers, the total encoded size is the
// corresponding header size plus the payload.
const (
	NullSize   = 1
	BoolSize   = 1
	UintSize   = 9
	IntSize    = 9
	DoubleSize = 9

	ShortStringHeaderSize = 1
	LongStringHeaderSize  = 9

	// Tag, 8-byte length, 8-byte count; the index table adds 8 bytes
	// per child in the widest class.
	ContainerHeaderSize = 17
	IndexEntrySize      = 8
)
