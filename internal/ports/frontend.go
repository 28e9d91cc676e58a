package ports

// Frontend is an analyst-facing surface over the analysis service
type Frontend interface {
	// Start starts the front end. Servers return once listening.
	Start() error

	// Stop stops the front end
	Stop() error
}
