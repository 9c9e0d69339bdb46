package searchdb

type DB interface {
	BuildIndex(documents []Document) error
	DeleteDocuments(paths []string) error
	Search(queryString string, limit int, offset int) (*Response, error)
	GetDocCount() (uint64, error)
	Save() error
	Close() error
}
