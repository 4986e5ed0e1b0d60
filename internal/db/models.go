package db

type Cache struct {
	Key   string
	Value string
}

type ReplacesHistory struct {
	ID          int64
	GotAt       int64
	Content     []byte
	ContentHash string
}
