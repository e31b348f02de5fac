package archive

// Archiver stores raw crawl payloads for later inspection or replay.
type Archiver interface {
	Archive(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
}
