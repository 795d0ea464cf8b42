package storage

type IService interface {
	// StoreFile keeps data under name and returns where it ended up.
	StoreFile(name string, data []byte) (string, error)
}
