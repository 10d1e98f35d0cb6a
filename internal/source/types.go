package source

type (
	// FileID uniquely identifies an input file within a FileSet.
	FileID uint32
)

// NoFileID marks synthesized content that has no backing file.
const NoFileID FileID = 0

// File captures metadata for a single input file.
type File struct {
	ID   FileID
	Path string
	Size int64
}
